package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nao1215/afscrawler/internal/model"
)

// RequestRecord is the stored state of one crawl request.
type RequestRecord struct {
	ID         string
	URL        string
	Label      model.Label
	UserData   model.UserData
	State      string
	RetryCount int
	Error      string
}

// RecordRequest upserts the state of req within runID.
func (s *Store) RecordRequest(ctx context.Context, runID string, req model.CrawlRequest, state string, retries int, errMsg string) error {
	if runID == "" {
		return ErrEmptyRunID
	}

	userData, err := json.Marshal(req.UserData())
	if err != nil {
		return fmt.Errorf("failed to serialize user data: %w", err)
	}

	query := `
	INSERT INTO requests (run_id, id, url, label, user_data, state, retry_count, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, id) DO UPDATE SET
		state = excluded.state,
		retry_count = excluded.retry_count,
		error = excluded.error,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.ExecContext(ctx, query,
		runID,
		req.ID(),
		req.URL(),
		req.Label().String(),
		string(userData),
		state,
		retries,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// ListRequests returns the requests of runID, optionally filtered by state.
func (s *Store) ListRequests(ctx context.Context, runID, state string) ([]RequestRecord, error) {
	query := `
	SELECT id, url, label, user_data, state, retry_count, COALESCE(error, '')
	FROM requests
	WHERE run_id = ?
	`
	args := []any{runID}
	if state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var results []RequestRecord
	for rows.Next() {
		var (
			rec       RequestRecord
			labelName string
			userData  string
		)
		if err := rows.Scan(&rec.ID, &rec.URL, &labelName, &userData, &rec.State, &rec.RetryCount, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		if rec.Label, err = model.ParseLabel(labelName); err != nil {
			return nil, fmt.Errorf("request %s: %w", rec.ID, err)
		}
		if userData != "" {
			if err := json.Unmarshal([]byte(userData), &rec.UserData); err != nil {
				return nil, fmt.Errorf("failed to parse user data: %w", err)
			}
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// RunLog binds a Store to one run so it can serve as the crawler's
// request log and the dataset's record store.
type RunLog struct {
	store *Store
	runID string
}

// ForRun returns a RunLog writing under runID.
func (s *Store) ForRun(runID string) *RunLog {
	return &RunLog{store: s, runID: runID}
}

// RunID returns the bound run ID.
func (r *RunLog) RunID() string {
	return r.runID
}

// RecordRequest stores the request state under the bound run.
func (r *RunLog) RecordRequest(ctx context.Context, req model.CrawlRequest, state string, retries int, errMsg string) error {
	return r.store.RecordRequest(ctx, r.runID, req, state, retries, errMsg)
}

// SaveProperty stores rec under the bound run.
func (r *RunLog) SaveProperty(ctx context.Context, rec model.PropertyRecord) error {
	return r.store.SaveProperty(ctx, r.runID, rec)
}
