package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the rating_overrides table if it doesn't exist.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rating_overrides (
			model_id TEXT PRIMARY KEY,
			ratings JSONB NOT NULL,
			notes TEXT,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create rating_overrides table: %w", err)
	}
	return &PostgreSQLStore{pool: pool}, nil
}

// Load returns every stored override.
func (s *PostgreSQLStore) Load(ctx context.Context) (map[string]Override, error) {
	rows, err := s.pool.Query(ctx, `SELECT model_id, ratings, notes, updated_at FROM rating_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]Override)
	for rows.Next() {
		var (
			o         Override
			ratings   []byte
			notes     *string
			updatedAt time.Time
		)
		if err := rows.Scan(&o.ModelID, &ratings, &notes, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating override: %w", err)
		}
		if err := json.Unmarshal(ratings, &o.ModelRatings); err != nil {
			return nil, fmt.Errorf("failed to decode ratings of %s: %w", o.ModelID, err)
		}
		o.Notes = notes
		o.UpdatedAt = updatedAt
		overrides[o.ModelID] = o
	}
	return overrides, rows.Err()
}

// Save upserts one override.
func (s *PostgreSQLStore) Save(ctx context.Context, o Override) error {
	ratings, err := marshalRatings(o.ModelRatings)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rating_overrides (model_id, ratings, notes, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model_id) DO UPDATE SET
			ratings = EXCLUDED.ratings,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, o.ModelID, ratings, o.Notes, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert rating override: %w", err)
	}
	return nil
}

// Close is a no-op; the shared pool is closed by its owner.
func (s *PostgreSQLStore) Close() error {
	return nil
}
