// Package dispatcher bounds concurrent execution of translation tasks under
// a semaphore, with per-task retry/backoff and cooperative cancellation.
// Grounded on original_source/core/parallel.py's ParallelProcessor and the
// teacher's internal/orchestrator goroutine+channel+WaitGroup shape,
// generalized from "run N services for one request" to "run N chunks
// under a bounded worker pool" (spec §4.6).
package dispatcher

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/valpere/peretran/internal/pipelineerr"
)

// Status is a task's position in its state machine, grounded on
// parallel.py's TaskStatus enum.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusRetrying
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Work is the function a Dispatcher invokes per item. It should return a
// *pipelineerr.Error so the dispatcher can classify retryability and
// rate-limit backoff; any other error type is treated as non-retryable.
type Work[T, R any] func(ctx context.Context, item T) (R, error)

// TaskResult records the final outcome of one dispatched item, including
// its retry history, for reporting (spec §3's Processing Stats).
type TaskResult[T, R any] struct {
	Item     T
	Result   R
	Err      error
	Status   Status
	Attempts int
}

// Stats summarizes a completed Run, grounded on parallel.py's
// ProcessingStats/print_summary.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Retried   int
}

// Config controls a Dispatcher's concurrency and retry policy.
type Config struct {
	MaxConcurrency int           // bounded worker count; <=0 defaults to 4
	MaxRetries     int           // retries per task beyond the first attempt; <=0 defaults to 3
	BaseDelay      time.Duration // normal backoff base unit; <=0 defaults to 1s
	MaxDelay       time.Duration // normal backoff cap; <=0 defaults to 10s
	RateLimitDelay time.Duration // 429 backoff cap; <=0 defaults to 30s
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = 30 * time.Second
	}
	return c
}

// Dispatcher runs Work over a set of items with bounded concurrency.
type Dispatcher[T, R any] struct {
	cfg  Config
	work Work[T, R]
	sem  *semaphore.Weighted
}

// New constructs a Dispatcher bounded to cfg.MaxConcurrency concurrent
// in-flight calls to work.
func New[T, R any](cfg Config, work Work[T, R]) *Dispatcher[T, R] {
	cfg = cfg.withDefaults()
	return &Dispatcher[T, R]{
		cfg:  cfg,
		work: work,
		sem:  semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
	}
}

// Run dispatches every item to Work under the bounded semaphore, retrying
// per the exponential-backoff policy below, and returns one TaskResult per
// item alongside aggregate Stats. Cancellation is polled before every
// provider call and at every retry boundary (spec §4.6); a cancelled
// context stops further retries but still returns results for items
// already in flight.
func (d *Dispatcher[T, R]) Run(ctx context.Context, items []T) ([]TaskResult[T, R], Stats) {
	results := make([]TaskResult[T, R], len(items))
	var wg sync.WaitGroup
	var mu sync.Mutex
	stats := Stats{Total: len(items)}

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()

			if err := d.sem.Acquire(ctx, 1); err != nil {
				results[idx] = TaskResult[T, R]{Item: it, Err: ctx.Err(), Status: StatusFailed}
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return
			}
			defer d.sem.Release(1)

			res := d.runOne(ctx, it)
			results[idx] = res

			mu.Lock()
			switch res.Status {
			case StatusCompleted:
				stats.Succeeded++
			case StatusFailed:
				stats.Failed++
			}
			if res.Attempts > 1 {
				stats.Retried++
			}
			mu.Unlock()
		}(i, item)
	}

	wg.Wait()
	return results, stats
}

func (d *Dispatcher[T, R]) runOne(ctx context.Context, item T) TaskResult[T, R] {
	var lastErr error
	var lastResult R

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return TaskResult[T, R]{Item: item, Err: ctx.Err(), Status: StatusFailed, Attempts: attempt}
		}

		result, err := d.work(ctx, item)
		if err == nil {
			return TaskResult[T, R]{Item: item, Result: result, Status: StatusCompleted, Attempts: attempt + 1}
		}

		lastErr = err
		lastResult = result

		if !isRetryable(err) || attempt == d.cfg.MaxRetries {
			return TaskResult[T, R]{Item: item, Result: lastResult, Err: lastErr, Status: StatusFailed, Attempts: attempt + 1}
		}

		delay := backoff(d.cfg, attempt+1, isRateLimited(err))
		select {
		case <-ctx.Done():
			return TaskResult[T, R]{Item: item, Err: ctx.Err(), Status: StatusFailed, Attempts: attempt + 1}
		case <-time.After(delay):
		}
	}

	return TaskResult[T, R]{Item: item, Result: lastResult, Err: lastErr, Status: StatusFailed, Attempts: d.cfg.MaxRetries + 1}
}

func isRetryable(err error) bool {
	var pe *pipelineerr.Error
	if asPipelineErr(err, &pe) {
		return pe.Retryable()
	}
	return false
}

func isRateLimited(err error) bool {
	var pe *pipelineerr.Error
	if asPipelineErr(err, &pe) {
		return pe.Kind == pipelineerr.KindRateLimit
	}
	return false
}

func asPipelineErr(err error, target **pipelineerr.Error) bool {
	for err != nil {
		if pe, ok := err.(*pipelineerr.Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// backoff implements spec §4.6's exact formulas: normal retries back off
// min(2^attempt, MaxDelay) scaled by 1+U(0,0.1); rate-limited (429)
// responses back off min(2^(attempt+2), RateLimitDelay) scaled by
// 1+U(0,0.3). Grounded on parallel.py's process_task retry loop.
func backoff(cfg Config, attempt int, rateLimited bool) time.Duration {
	if rateLimited {
		base := expCap(attempt+2, cfg.RateLimitDelay, cfg.BaseDelay)
		return jitter(base, 0.3)
	}
	base := expCap(attempt, cfg.MaxDelay, cfg.BaseDelay)
	return jitter(base, 0.1)
}

func expCap(exponent int, cap time.Duration, unit time.Duration) time.Duration {
	d := unit
	for i := 0; i < exponent; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

func jitter(base time.Duration, frac float64) time.Duration {
	j := 1.0 + rand.Float64()*frac
	return time.Duration(float64(base) * j)
}
