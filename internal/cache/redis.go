package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/content-dashboard/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultNamespace prefixes every Redis key written by the dashboard
const DefaultNamespace = "content-dashboard:"

const scanBatch = 100

// RedisStore shares the query cache between dashboard instances
type RedisStore struct {
	client    *redis.Client
	namespace string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the configured Redis server
func NewRedisStore(ctx context.Context, cfg *config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	return &RedisStore{client: client, namespace: DefaultNamespace}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix scans for the exact key and for "prefix:*"
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	if prefix != "" {
		n, err := s.client.Del(ctx, s.namespace+prefix).Result()
		if err != nil {
			return 0, fmt.Errorf("redis del %s: %w", prefix, err)
		}
		removed += int(n)
	}

	pattern := s.namespace + "*"
	if prefix != "" {
		pattern = s.namespace + prefix + keySeparator + "*"
	}

	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			n, err := s.client.Del(ctx, batch...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del batch: %w", err)
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return removed, fmt.Errorf("redis del batch: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Open builds the configured Store. An unreachable Redis falls back to the
// in-memory store so the dashboard keeps working without a shared cache.
func Open(ctx context.Context, cfg *config.CacheConfig, log zerolog.Logger) Store {
	if cfg.Backend != "redis" {
		return NewMemoryStore()
	}

	store, err := NewRedisStore(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable; using in-memory query cache")
		return NewMemoryStore()
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis query cache")
	return store
}
