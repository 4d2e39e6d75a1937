package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tm_test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTM_AddAndExactMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSegment(ctx, "Hello", "Xin chào", "en", "vi", "", 0.9); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	match, err := s.GetExactMatch(ctx, "Hello", "en", "vi")
	if err != nil {
		t.Fatalf("GetExactMatch: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Similarity != 1.0 {
		t.Errorf("expected similarity 1.0, got %f", match.Similarity)
	}
	if match.Segment.TargetText != "Xin chào" {
		t.Errorf("unexpected target text %q", match.Segment.TargetText)
	}
	if match.Segment.UseCount != 2 {
		t.Errorf("expected use_count incremented to 2, got %d", match.Segment.UseCount)
	}
}

func TestTM_AddSegment_UpdatesNotDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSegment(ctx, "Hello", "Xin chào", "en", "vi", "", 0.9); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
	if err := s.AddSegment(ctx, "Hello", "Chào bạn", "en", "vi", "literature", 0.95); err != nil {
		t.Fatalf("AddSegment (update): %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tm_segments`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row (update, not duplicate), got %d", count)
	}

	match, err := s.GetExactMatch(ctx, "Hello", "en", "vi")
	if err != nil {
		t.Fatalf("GetExactMatch: %v", err)
	}
	if match.Segment.TargetText != "Chào bạn" {
		t.Errorf("expected updated target, got %q", match.Segment.TargetText)
	}
}

func TestTM_GetExactMatch_Miss(t *testing.T) {
	s := newTestStore(t)
	match, err := s.GetExactMatch(context.Background(), "Nonexistent", "en", "vi")
	if err != nil {
		t.Fatalf("GetExactMatch: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %+v", match)
	}
}

func TestTM_GetFuzzyMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSegment(ctx, "Hello there my friend", "Xin chào bạn của tôi", "en", "vi", "", 0.9); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
	if err := s.AddSegment(ctx, "Completely unrelated sentence", "Câu hoàn toàn không liên quan", "en", "vi", "", 0.9); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}

	matches, err := s.GetFuzzyMatches(ctx, "Hello there my friend!", "en", "vi", 0.5, 5, "")
	if err != nil {
		t.Fatalf("GetFuzzyMatches: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one fuzzy match")
	}
	if matches[0].Segment.SourceText != "Hello there my friend" {
		t.Errorf("expected the close match first, got %q", matches[0].Segment.SourceText)
	}
}

func TestCompositeSimilarity_Identical(t *testing.T) {
	if got := compositeSimilarity("hello world", "hello world"); got < 0.99 {
		t.Errorf("expected ~1.0 for identical strings, got %f", got)
	}
}

func TestChunkCache_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := ChunkCacheKey("some source text", "en", "vi", "stem", "technology")
	if _, ok, err := s.GetChunkCache(ctx, key); err != nil || ok {
		t.Fatalf("expected miss before write, ok=%v err=%v", ok, err)
	}

	if err := s.PutChunkCache(ctx, key, "translated text"); err != nil {
		t.Fatalf("PutChunkCache: %v", err)
	}

	target, ok, err := s.GetChunkCache(ctx, key)
	if err != nil {
		t.Fatalf("GetChunkCache: %v", err)
	}
	if !ok || target != "translated text" {
		t.Errorf("expected hit with translated text, got ok=%v target=%q", ok, target)
	}
}

func TestChunkCacheKey_VariesByMode(t *testing.T) {
	a := ChunkCacheKey("text", "en", "vi", "stem", "")
	b := ChunkCacheKey("text", "en", "vi", "plain", "")
	if a == b {
		t.Error("expected different keys for different modes")
	}
}
