package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run status values.
const (
	RunStatusRunning    = "running"
	RunStatusSucceeded  = "succeeded"
	RunStatusIncomplete = "incomplete"
)

// RunInfo describes one stored crawl run.
type RunInfo struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Properties int
}

// BeginRun registers a new crawl run.
func (s *Store) BeginRun(ctx context.Context, runID string) error {
	if runID == "" {
		return ErrEmptyRunID
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, status) VALUES (?, ?)`, runID, RunStatusRunning); err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its final status.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	query := `UPDATE runs SET finished_at = CURRENT_TIMESTAMP, status = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, status, runID); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// LatestRunID returns the ID of the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest run: %w", err)
	}
	return id, nil
}

// ListRuns returns every run, newest first, with its property count.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	query := `
	SELECT r.id, r.started_at, COALESCE(r.finished_at, ''), r.status,
		(SELECT COUNT(*) FROM properties p WHERE p.run_id = r.id)
	FROM runs r
	ORDER BY r.started_at DESC, r.rowid DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			info               RunInfo
			started, finished string
		)
		if err := rows.Scan(&info.ID, &started, &finished, &info.Status, &info.Properties); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.StartedAt = parseTimestamp(started)
		info.FinishedAt = parseTimestamp(finished)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}
