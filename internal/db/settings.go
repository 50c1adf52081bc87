package db

import (
	"context"
	"fmt"

	"github.com/jonathan/luxprima/internal/types"
)

// ListSettings returns every persisted setting ordered by key.
func (db *DB) ListSettings(ctx context.Context) ([]types.Setting, error) {
	rows, err := db.pool.Query(ctx, `SELECT key, value, description FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []types.Setting
	for rows.Next() {
		var s types.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Description); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetSettings returns the values stored for keys. Missing keys are absent from the map.
func (db *DB) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT key, value FROM settings WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

// UpsertSettings writes every update in one transaction.
func (db *DB) UpsertSettings(ctx context.Context, updates []types.SettingUpdate) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, u := range updates {
		if _, err := tx.Exec(ctx,
			`INSERT INTO settings (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			u.Key, u.Value,
		); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", u.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}
