package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get for missing or expired entries
var ErrNotFound = errors.New("cache: key not found")

// Store is a byte-oriented cache backend keyed by encoded Keys
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes the key equal to prefix and every key beneath it,
	// returning how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
