package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/luxprima/internal/types"
)

const scheduleColumns = `id, time, is_active, created_at`

func scanSchedule(row pgx.Row) (*types.Schedule, error) {
	var s types.Schedule
	if err := row.Scan(&s.ID, &s.Time, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSchedules returns every schedule, oldest first.
func (db *DB) ListSchedules(ctx context.Context) ([]types.Schedule, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []types.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// GetSchedule returns a schedule by ID, or nil if it does not exist.
func (db *DB) GetSchedule(ctx context.Context, id int64) (*types.Schedule, error) {
	s, err := scanSchedule(db.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

// CreateSchedule inserts a schedule.
func (db *DB) CreateSchedule(ctx context.Context, timeOfDay string, active bool) (*types.Schedule, error) {
	s, err := scanSchedule(db.pool.QueryRow(ctx,
		`INSERT INTO schedules (time, is_active) VALUES ($1, $2) RETURNING `+scheduleColumns,
		timeOfDay, active))
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return s, nil
}

// UpdateSchedule changes a schedule's time and active flag. Returns nil if it does not exist.
func (db *DB) UpdateSchedule(ctx context.Context, id int64, timeOfDay string, active bool) (*types.Schedule, error) {
	s, err := scanSchedule(db.pool.QueryRow(ctx,
		`UPDATE schedules SET time = $2, is_active = $3 WHERE id = $1 RETURNING `+scheduleColumns,
		id, timeOfDay, active))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	return s, nil
}

// DeleteSchedule removes a schedule. It reports whether a row was deleted.
func (db *DB) DeleteSchedule(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete schedule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
