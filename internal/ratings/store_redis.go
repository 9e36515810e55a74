package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds overrides, one field per model id.
const DefaultRedisKey = "modelrouter:ratings"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379/0")
	URL string
	Key string
}

// RedisStore implements Store on a Redis hash.
// This is suitable for multi-instance deployments behind a load balancer.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := NewRedisStoreWithClient(client, cfg.Key)
	slog.Info("redis ratings store connected", "key", store.key)
	return store, nil
}

// NewRedisStoreWithClient wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load returns every stored override. Entries that fail to decode are skipped.
func (s *RedisStore) Load(ctx context.Context) (map[string]Override, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings from redis: %w", err)
	}

	overrides := make(map[string]Override, len(fields))
	for id, raw := range fields {
		var o Override
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			slog.Warn("skipping undecodable rating override", "model", id, "error", err)
			continue
		}
		o.ModelID = id
		overrides[id] = o
	}
	return overrides, nil
}

// Save writes one hash field.
func (s *RedisStore) Save(ctx context.Context, o Override) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal rating override: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, o.ModelID, data).Err(); err != nil {
		return fmt.Errorf("failed to write rating override to redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
