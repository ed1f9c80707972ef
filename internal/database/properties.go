package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nao1215/afscrawler/internal/model"
)

// SaveProperty stores rec under runID. A second record with the same
// property ID in the same run replaces the first and keeps its position.
func (s *Store) SaveProperty(ctx context.Context, runID string, rec model.PropertyRecord) error {
	if runID == "" {
		return ErrEmptyRunID
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize property: %w", err)
	}

	query := `
	INSERT INTO properties (run_id, property_id, city, rent_ppw, record_json, seq)
	VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM properties WHERE run_id = ?))
	ON CONFLICT(run_id, property_id) DO UPDATE SET
		city = excluded.city,
		rent_ppw = excluded.rent_ppw,
		record_json = excluded.record_json,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.ExecContext(ctx, query,
		runID,
		rec.PropertyID.String(),
		rec.City,
		rec.RentPPW,
		string(recordJSON),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to save property %s: %w", rec.PropertyID, err)
	}
	return nil
}

// ListProperties returns the records of runID in insertion order.
func (s *Store) ListProperties(ctx context.Context, runID string) ([]model.PropertyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM properties WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var records []model.PropertyRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}

		var rec model.PropertyRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse property: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
