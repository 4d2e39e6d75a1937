package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CheckpointState is the crash-safe resume record for one translation job
// (spec §3/§4.8), grounded on
// original_source/core/cache/checkpoint_manager.py's CheckpointState.
type CheckpointState struct {
	JobID             string
	InputFile         string
	OutputFile        string
	TotalChunks       int
	CompletedChunkIDs map[int]bool
	ResultsData       map[int]json.RawMessage
	JobMetadata       map[string]interface{}
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CompletionPercentage reports progress as a fraction in [0, 100].
func (c *CheckpointState) CompletionPercentage() float64 {
	if c.TotalChunks == 0 {
		return 100
	}
	return 100 * float64(len(c.CompletedChunkIDs)) / float64(c.TotalChunks)
}

// RemainingChunks reports how many chunks have not yet completed.
func (c *CheckpointState) RemainingChunks() int {
	return c.TotalChunks - len(c.CompletedChunkIDs)
}

// SaveCheckpoint upserts a job's checkpoint row, preserving the original
// created_at timestamp across updates (checkpoint_manager.py's
// save_checkpoint does the same SELECT-then-preserve dance).
func (s *Store) SaveCheckpoint(ctx context.Context, state *CheckpointState) error {
	completedIDs := make([]int, 0, len(state.CompletedChunkIDs))
	for id, done := range state.CompletedChunkIDs {
		if done {
			completedIDs = append(completedIDs, id)
		}
	}
	completedJSON, err := json.Marshal(completedIDs)
	if err != nil {
		return fmt.Errorf("marshal completed chunk ids: %w", err)
	}
	resultsJSON, err := json.Marshal(state.ResultsData)
	if err != nil {
		return fmt.Errorf("marshal results data: %w", err)
	}
	metaJSON, err := json.Marshal(state.JobMetadata)
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}

	now := time.Now()
	createdAt := now

	var existingCreatedAt time.Time
	err = s.db.QueryRowContext(ctx, `SELECT created_at FROM job_checkpoints WHERE job_id = ?`, state.JobID).Scan(&existingCreatedAt)
	switch {
	case err == sql.ErrNoRows:
		// first write: createdAt stays at now
	case err != nil:
		return err
	default:
		createdAt = existingCreatedAt
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO job_checkpoints
		 (job_id, input_file, output_file, total_chunks, completed_chunk_ids, results_data, job_metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.JobID, state.InputFile, state.OutputFile, state.TotalChunks,
		string(completedJSON), string(resultsJSON), string(metaJSON), createdAt, now)
	return err
}

// LoadCheckpoint loads a job's checkpoint, or returns nil, nil if none
// exists.
func (s *Store) LoadCheckpoint(ctx context.Context, jobID string) (*CheckpointState, error) {
	var (
		inputFile, outputFile                       string
		totalChunks                                 int
		completedJSON, resultsJSON, metaJSON         string
		createdAt, updatedAt                         time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT input_file, output_file, total_chunks, completed_chunk_ids, results_data, job_metadata, created_at, updated_at
		 FROM job_checkpoints WHERE job_id = ?`, jobID).Scan(
		&inputFile, &outputFile, &totalChunks, &completedJSON, &resultsJSON, &metaJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var completedIDs []int
	if err := json.Unmarshal([]byte(completedJSON), &completedIDs); err != nil {
		return nil, fmt.Errorf("unmarshal completed chunk ids: %w", err)
	}
	completed := make(map[int]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	var results map[int]json.RawMessage
	if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
		return nil, fmt.Errorf("unmarshal results data: %w", err)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal job metadata: %w", err)
	}

	return &CheckpointState{
		JobID:             jobID,
		InputFile:         inputFile,
		OutputFile:        outputFile,
		TotalChunks:       totalChunks,
		CompletedChunkIDs: completed,
		ResultsData:       results,
		JobMetadata:       meta,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	}, nil
}

// HasCheckpoint reports whether a checkpoint exists for jobID.
func (s *Store) HasCheckpoint(ctx context.Context, jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM job_checkpoints WHERE job_id = ?`, jobID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// DeleteCheckpoint removes a job's checkpoint row.
func (s *Store) DeleteCheckpoint(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_checkpoints WHERE job_id = ?`, jobID)
	return err
}

// CheckpointSummary is a lightweight listing row, avoiding the cost of
// unmarshalling results_data for every job when only progress is needed.
type CheckpointSummary struct {
	JobID       string
	InputFile   string
	TotalChunks int
	Completed   int
	UpdatedAt   time.Time
}

// ListCheckpoints returns all checkpoints ordered by most recently updated
// first, per checkpoint_manager.py's list_checkpoints.
func (s *Store) ListCheckpoints(ctx context.Context) ([]CheckpointSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, input_file, total_chunks, completed_chunk_ids, updated_at FROM job_checkpoints ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []CheckpointSummary
	for rows.Next() {
		var sum CheckpointSummary
		var completedJSON string
		if err := rows.Scan(&sum.JobID, &sum.InputFile, &sum.TotalChunks, &completedJSON, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		var ids []int
		if err := json.Unmarshal([]byte(completedJSON), &ids); err != nil {
			return nil, fmt.Errorf("unmarshal completed chunk ids for %s: %w", sum.JobID, err)
		}
		sum.Completed = len(ids)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// CleanupOldCheckpoints deletes checkpoints not updated within the last
// olderThanDays days, returning the number removed.
func (s *Store) CleanupOldCheckpoints(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_checkpoints WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
