package store

import (
	"context"
	"encoding/json"
	"testing"
)

func TestCheckpoint_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := &CheckpointState{
		JobID:       "job-1",
		InputFile:   "in.docx",
		OutputFile:  "out.docx",
		TotalChunks: 20,
		CompletedChunkIDs: map[int]bool{
			1: true, 2: true, 3: true,
		},
		ResultsData: map[int]json.RawMessage{
			1: json.RawMessage(`{"translated":"one"}`),
		},
		JobMetadata: map[string]interface{}{"source_lang": "en", "target_lang": "vi"},
	}

	if err := s.SaveCheckpoint(ctx, state); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	loaded, err := s.LoadCheckpoint(ctx, "job-1")
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a checkpoint")
	}
	if loaded.TotalChunks != 20 {
		t.Errorf("expected 20 total chunks, got %d", loaded.TotalChunks)
	}
	if len(loaded.CompletedChunkIDs) != 3 {
		t.Errorf("expected 3 completed chunks, got %d", len(loaded.CompletedChunkIDs))
	}
	if !loaded.CompletedChunkIDs[2] {
		t.Error("expected chunk 2 marked completed")
	}
	if loaded.RemainingChunks() != 17 {
		t.Errorf("expected 17 remaining, got %d", loaded.RemainingChunks())
	}
}

func TestCheckpoint_SavePreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := &CheckpointState{JobID: "job-2", InputFile: "in.txt", OutputFile: "out.txt", TotalChunks: 5, CompletedChunkIDs: map[int]bool{}}
	if err := s.SaveCheckpoint(ctx, state); err != nil {
		t.Fatalf("SaveCheckpoint (first): %v", err)
	}
	first, err := s.LoadCheckpoint(ctx, "job-2")
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}

	state.CompletedChunkIDs[1] = true
	if err := s.SaveCheckpoint(ctx, state); err != nil {
		t.Fatalf("SaveCheckpoint (second): %v", err)
	}
	second, err := s.LoadCheckpoint(ctx, "job-2")
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}

	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("expected created_at preserved across updates: %v != %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestCheckpoint_HasAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if has, _ := s.HasCheckpoint(ctx, "missing"); has {
		t.Error("expected no checkpoint for unknown job")
	}

	state := &CheckpointState{JobID: "job-3", TotalChunks: 1, CompletedChunkIDs: map[int]bool{}}
	if err := s.SaveCheckpoint(ctx, state); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if has, err := s.HasCheckpoint(ctx, "job-3"); err != nil || !has {
		t.Fatalf("expected checkpoint to exist, has=%v err=%v", has, err)
	}

	if err := s.DeleteCheckpoint(ctx, "job-3"); err != nil {
		t.Fatalf("DeleteCheckpoint: %v", err)
	}
	if has, _ := s.HasCheckpoint(ctx, "job-3"); has {
		t.Error("expected checkpoint gone after delete")
	}
}

func TestCheckpoint_ListReturnsSummaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		state := &CheckpointState{JobID: id, TotalChunks: 10, CompletedChunkIDs: map[int]bool{1: true}}
		if err := s.SaveCheckpoint(ctx, state); err != nil {
			t.Fatalf("SaveCheckpoint(%s): %v", id, err)
		}
	}

	summaries, err := s.ListCheckpoints(ctx)
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(summaries))
	}
	for _, sum := range summaries {
		if sum.Completed != 1 || sum.TotalChunks != 10 {
			t.Errorf("unexpected summary %+v", sum)
		}
	}
}

func TestCheckpoint_CompletionPercentage(t *testing.T) {
	state := &CheckpointState{TotalChunks: 4, CompletedChunkIDs: map[int]bool{1: true, 2: true}}
	if got := state.CompletionPercentage(); got != 50 {
		t.Errorf("expected 50%%, got %f", got)
	}
}

func TestCheckpoint_ZeroTotalChunksIsFullyComplete(t *testing.T) {
	state := &CheckpointState{TotalChunks: 0, CompletedChunkIDs: map[int]bool{}}
	if got := state.CompletionPercentage(); got != 100 {
		t.Errorf("expected 100%% for zero-chunk job, got %f", got)
	}
}
