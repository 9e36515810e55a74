// Package storage opens the database connection behind the durable ratings backends.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"modelrouter/config"
)

// Backend names accepted by Open. They match the ratings backend names in config.
const (
	BackendSQLite     = config.RatingsBackendSQLite
	BackendPostgreSQL = config.RatingsBackendPostgreSQL
	BackendMongoDB    = config.RatingsBackendMongoDB
)

// Conn is one open connection. Exactly one of SQL, Pool and Mongo is set, matching Backend.
type Conn struct {
	Backend string
	SQL     *sql.DB
	Pool    *pgxpool.Pool
	Mongo   *mongo.Database

	closeOnce sync.Once
	closeErr  error
	release   func() error
}

// Open connects to the named backend using the matching section of cfg.
func Open(ctx context.Context, backend string, cfg config.StorageConfig) (*Conn, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case BackendPostgreSQL:
		return OpenPostgreSQL(ctx, cfg.PostgreSQL.URL, cfg.PostgreSQL.MaxConns)
	case BackendMongoDB:
		return OpenMongoDB(ctx, cfg.MongoDB.URL, cfg.MongoDB.Database)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (valid: sqlite, postgresql, mongodb)", backend)
	}
}

// Close releases the connection. Repeated calls return the first result.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		if c.release != nil {
			c.closeErr = c.release()
		}
	})
	return c.closeErr
}
