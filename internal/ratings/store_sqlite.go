package ratings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"modelrouter/internal/core"
)

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the rating_overrides table if it doesn't exist.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rating_overrides (
			model_id TEXT PRIMARY KEY,
			ratings JSON NOT NULL,
			notes TEXT,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create rating_overrides table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns every stored override.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]Override, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model_id, ratings, notes, updated_at FROM rating_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]Override)
	for rows.Next() {
		var (
			o         Override
			ratings   string
			notes     sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&o.ModelID, &ratings, &notes, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating override: %w", err)
		}
		if err := json.Unmarshal([]byte(ratings), &o.ModelRatings); err != nil {
			return nil, fmt.Errorf("failed to decode ratings of %s: %w", o.ModelID, err)
		}
		if notes.Valid {
			n := notes.String
			o.Notes = &n
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			o.UpdatedAt = t
		}
		overrides[o.ModelID] = o
	}
	return overrides, rows.Err()
}

// Save upserts one override.
func (s *SQLiteStore) Save(ctx context.Context, o Override) error {
	ratings, err := marshalRatings(o.ModelRatings)
	if err != nil {
		return err
	}
	var notes any
	if o.Notes != nil {
		notes = *o.Notes
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rating_overrides (model_id, ratings, notes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id) DO UPDATE SET
			ratings = excluded.ratings,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, o.ModelID, string(ratings), notes, o.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert rating override: %w", err)
	}
	return nil
}

// Close is a no-op; the shared connection is closed by its owner.
func (s *SQLiteStore) Close() error {
	return nil
}

func marshalRatings(r core.ModelRatings) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ratings: %w", err)
	}
	return data, nil
}
