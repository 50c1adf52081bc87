package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/luxprima/internal/types"
)

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = errors.New("already exists")

const sourceColumns = `id, url, name, source_type, is_active, created_at`

func scanSource(row pgx.Row) (*types.Source, error) {
	var s types.Source
	if err := row.Scan(&s.ID, &s.URL, &s.Name, &s.SourceType, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSources returns every source, oldest first.
func (db *DB) ListSources(ctx context.Context) ([]types.Source, error) {
	return db.querySources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListActiveSources returns the sources a briefing run should crawl.
func (db *DB) ListActiveSources(ctx context.Context) ([]types.Source, error) {
	return db.querySources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE is_active ORDER BY id`)
}

func (db *DB) querySources(ctx context.Context, query string) ([]types.Source, error) {
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []types.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

// CreateSource inserts a source. A URL that is already registered yields ErrDuplicate.
func (db *DB) CreateSource(ctx context.Context, src types.Source) (*types.Source, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO sources (url, name, source_type, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+sourceColumns,
		src.URL, src.Name, src.SourceType, src.IsActive,
	)
	created, err := scanSource(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("source %s: %w", src.URL, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	return created, nil
}

// DeleteSource removes a source. It reports whether a row was deleted.
func (db *DB) DeleteSource(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete source: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
