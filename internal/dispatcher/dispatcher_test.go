package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/peretran/internal/pipelineerr"
)

func TestDispatcher_AllSucceed(t *testing.T) {
	d := New(Config{MaxConcurrency: 2}, func(ctx context.Context, item int) (int, error) {
		return item * 2, nil
	})

	results, stats := d.Run(context.Background(), []int{1, 2, 3, 4})
	if stats.Succeeded != 4 || stats.Failed != 0 {
		t.Fatalf("expected all succeed, got %+v", stats)
	}
	for i, r := range results {
		if r.Status != StatusCompleted {
			t.Errorf("result %d: expected completed, got %v", i, r.Status)
		}
	}
}

func TestDispatcher_RetriesRetryableError(t *testing.T) {
	var calls int32
	d := New(Config{MaxConcurrency: 1, MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		func(ctx context.Context, item int) (int, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 2 {
				return 0, pipelineerr.New(pipelineerr.KindTransport, "transient")
			}
			return item, nil
		})

	results, stats := d.Run(context.Background(), []int{42})
	if stats.Succeeded != 1 {
		t.Fatalf("expected eventual success, got %+v", stats)
	}
	if results[0].Attempts < 2 {
		t.Errorf("expected at least 2 attempts, got %d", results[0].Attempts)
	}
}

func TestDispatcher_NonRetryableFailsImmediately(t *testing.T) {
	var calls int32
	d := New(Config{MaxConcurrency: 1, MaxRetries: 3, BaseDelay: time.Millisecond},
		func(ctx context.Context, item int) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, pipelineerr.New(pipelineerr.KindProviderPermanent, "permanent")
		})

	results, stats := d.Run(context.Background(), []int{1})
	if stats.Failed != 1 {
		t.Fatalf("expected failure, got %+v", stats)
	}
	if results[0].Attempts != 1 {
		t.Errorf("expected exactly 1 attempt for non-retryable error, got %d", results[0].Attempts)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestDispatcher_PlainErrorIsNonRetryable(t *testing.T) {
	d := New(Config{MaxConcurrency: 1, MaxRetries: 3, BaseDelay: time.Millisecond},
		func(ctx context.Context, item int) (int, error) {
			return 0, errors.New("some generic failure")
		})

	_, stats := d.Run(context.Background(), []int{1})
	if stats.Failed != 1 {
		t.Fatalf("expected failure for a plain error, got %+v", stats)
	}
}

func TestDispatcher_CancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(Config{MaxConcurrency: 1, MaxRetries: 3, BaseDelay: time.Millisecond},
		func(ctx context.Context, item int) (int, error) {
			return 0, pipelineerr.New(pipelineerr.KindTransport, "transient")
		})

	results, stats := d.Run(ctx, []int{1})
	if stats.Failed != 1 {
		t.Fatalf("expected failure after cancellation, got %+v", stats)
	}
	if results[0].Err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", results[0].Err)
	}
}

func TestDispatcher_BoundedConcurrency(t *testing.T) {
	const maxConcurrency = 2
	var current, maxSeen int32

	d := New(Config{MaxConcurrency: maxConcurrency}, func(ctx context.Context, item int) (int, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return item, nil
	})

	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}
	d.Run(context.Background(), items)

	if atomic.LoadInt32(&maxSeen) > maxConcurrency {
		t.Errorf("expected at most %d concurrent calls, saw %d", maxConcurrency, maxSeen)
	}
}

func TestBackoff_RateLimitedUsesLongerCap(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 10 * time.Second, RateLimitDelay: 30 * time.Second}
	normal := backoff(cfg, 5, false)
	limited := backoff(cfg, 5, true)
	if normal > cfg.MaxDelay*2 {
		t.Errorf("normal backoff exceeded cap with jitter margin: %v", normal)
	}
	if limited <= normal {
		t.Errorf("expected rate-limited backoff to exceed normal backoff, got normal=%v limited=%v", normal, limited)
	}
}
