package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/luxprima/internal/types"
)

// DefaultReportLimit is the page size of ListReports when none is given.
const DefaultReportLimit = 20

// SaveReport inserts a report and returns it with its assigned ID.
func (db *DB) SaveReport(ctx context.Context, r types.Report) (*types.Report, error) {
	contentJSON := r.ContentJSON
	if contentJSON == nil {
		contentJSON = map[string]any{}
	}
	cj, err := json.Marshal(contentJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report content: %w", err)
	}
	logs := r.Logs
	if logs == nil {
		logs = []string{}
	}
	lj, err := json.Marshal(logs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report logs: %w", err)
	}

	saved := r
	saved.ContentJSON = contentJSON
	saved.Logs = logs
	err = db.pool.QueryRow(ctx,
		`INSERT INTO reports (title, generated_at, content_markdown, content_json, logs)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		r.Title, r.GeneratedAt, r.ContentMarkdown, cj, lj,
	).Scan(&saved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return &saved, nil
}

// ListReports returns a page of reports, newest first. Logs are omitted.
func (db *DB) ListReports(ctx context.Context, offset, limit int) ([]types.Report, error) {
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, generated_at, content_markdown, content_json
		 FROM reports ORDER BY generated_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []types.Report
	for rows.Next() {
		var r types.Report
		var cj []byte
		if err := rows.Scan(&r.ID, &r.Title, &r.GeneratedAt, &r.ContentMarkdown, &cj); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if err := unmarshalOrEmpty(cj, &r.ContentJSON); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetReport returns a report with its logs, or nil if it does not exist.
func (db *DB) GetReport(ctx context.Context, id int64) (*types.Report, error) {
	var r types.Report
	var cj, lj []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, generated_at, content_markdown, content_json, logs
		 FROM reports WHERE id = $1`, id,
	).Scan(&r.ID, &r.Title, &r.GeneratedAt, &r.ContentMarkdown, &cj, &lj)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if err := unmarshalOrEmpty(cj, &r.ContentJSON); err != nil {
		return nil, err
	}
	if err := unmarshalOrEmpty(lj, &r.Logs); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReport removes a report. It reports whether a row was deleted.
func (db *DB) DeleteReport(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func unmarshalOrEmpty(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal report column: %w", err)
	}
	return nil
}
