package ratings

import (
	"context"
	"errors"
	"fmt"

	"modelrouter/config"
	"modelrouter/internal/storage"
)

// Result holds the ratings service and the connection it owns.
// The caller is responsible for calling Close() to release resources.
type Result struct {
	Service *Service
	Storage *storage.Conn
}

// Close releases the store and the database connection. Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Service != nil {
		if err := r.Service.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ratings store close: %w", err))
		}
		r.Service = nil
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		r.Storage = nil
	}
	return errors.Join(errs...)
}

// New opens the configured backend and loads the overrides.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	var (
		store Store
		conn  *storage.Conn
		err   error
	)

	switch cfg.Ratings.Backend {
	case config.RatingsBackendFile, "":
		store = NewFileStore(cfg.Ratings.Path)
	case config.RatingsBackendRedis:
		store, err = NewRedisStore(RedisConfig{URL: cfg.Ratings.Redis.URL, Key: cfg.Ratings.Redis.Key})
		if err != nil {
			return nil, err
		}
	case config.RatingsBackendSQLite, config.RatingsBackendPostgreSQL, config.RatingsBackendMongoDB:
		conn, err = storage.Open(ctx, cfg.Ratings.Backend, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Ratings.Backend, err)
		}
		store, err = storeFor(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown ratings backend: %s", cfg.Ratings.Backend)
	}

	svc, err := NewService(ctx, store)
	if err != nil {
		_ = store.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Result{Service: svc, Storage: conn}, nil
}

// storeFor builds the Store over an open connection.
func storeFor(ctx context.Context, conn *storage.Conn) (Store, error) {
	switch conn.Backend {
	case storage.BackendSQLite:
		return NewSQLiteStore(conn.SQL)
	case storage.BackendPostgreSQL:
		return NewPostgreSQLStore(ctx, conn.Pool)
	case storage.BackendMongoDB:
		return NewMongoDBStore(conn.Mongo)
	default:
		return nil, fmt.Errorf("no ratings store for backend %s", conn.Backend)
	}
}
