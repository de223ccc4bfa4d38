// Package repository persists search history in PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/propsearch/internal/database"
	"github.com/stwalsh4118/propsearch/internal/models"
)

// MaxRecentLimit caps how many history entries Recent returns.
const MaxRecentLimit = 200

const schema = `
	CREATE TABLE IF NOT EXISTS search_history (
		id                BIGSERIAL PRIMARY KEY,
		session_id        TEXT NOT NULL DEFAULT '',
		generation        BIGINT NOT NULL,
		city              TEXT NOT NULL,
		area              TEXT NOT NULL,
		max_price_text    TEXT NOT NULL,
		property_category TEXT NOT NULL,
		property_type     TEXT NOT NULL,
		source            TEXT NOT NULL,
		state             TEXT NOT NULL,
		strategy          TEXT NOT NULL DEFAULT '',
		error_kind        TEXT NOT NULL DEFAULT '',
		record_count      INTEGER NOT NULL DEFAULT 0,
		dropped           INTEGER NOT NULL DEFAULT 0,
		duration_ms       BIGINT NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS search_history_created_at_idx ON search_history (created_at DESC);
`

// HistoryRepository stores settled search submissions.
type HistoryRepository interface {
	// EnsureSchema creates the history table when it does not exist.
	EnsureSchema(ctx context.Context) error

	// Record inserts entry and fills in its ID and CreatedAt.
	Record(ctx context.Context, entry *models.SearchHistoryEntry) error

	// Recent returns up to limit entries, newest first. An empty history is
	// an empty slice, not an error.
	Recent(ctx context.Context, limit int) ([]models.SearchHistoryEntry, error)
}

type historyRepository struct {
	db *database.Database
}

// NewHistoryRepository creates a HistoryRepository backed by db.
func NewHistoryRepository(db *database.Database) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create search_history schema: %w", err)
	}
	return nil
}

func (r *historyRepository) Record(ctx context.Context, entry *models.SearchHistoryEntry) error {
	query := `
		INSERT INTO search_history (
			session_id, generation, city, area, max_price_text,
			property_category, property_type, source, state, strategy,
			error_kind, record_count, dropped, duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		entry.SessionID,
		int64(entry.Generation),
		entry.City,
		entry.Area,
		entry.MaxPriceText,
		entry.PropertyCategory,
		entry.PropertyType,
		entry.Source,
		entry.State,
		entry.Strategy,
		entry.ErrorKind,
		entry.RecordCount,
		entry.Dropped,
		entry.DurationMs,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record search history (city=%s): %w", entry.City, err)
	}
	return nil
}

func (r *historyRepository) Recent(ctx context.Context, limit int) ([]models.SearchHistoryEntry, error) {
	if limit <= 0 || limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	query := `
		SELECT
			id, session_id, generation, city, area, max_price_text,
			property_category, property_type, source, state, strategy,
			error_kind, record_count, dropped, duration_ms, created_at
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history (limit=%d): %w", limit, err)
	}
	defer rows.Close()

	entries := make([]models.SearchHistoryEntry, 0, limit)
	for rows.Next() {
		var entry models.SearchHistoryEntry
		var generation int64
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&generation,
			&entry.City,
			&entry.Area,
			&entry.MaxPriceText,
			&entry.PropertyCategory,
			&entry.PropertyType,
			&entry.Source,
			&entry.State,
			&entry.Strategy,
			&entry.ErrorKind,
			&entry.RecordCount,
			&entry.Dropped,
			&entry.DurationMs,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search history row: %w", err)
		}
		entry.Generation = uint64(generation)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search history rows: %w", err)
	}
	return entries, nil
}
