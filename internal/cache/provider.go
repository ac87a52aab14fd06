package cache

import (
	"context"
	"errors"
	"time"
)

// Provider stores parsed log envelopes between polls. Implementations must be
// safe for concurrent use by the page and table pollers.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key; ttl <= 0 keeps it until replaced or deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del drops key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider disables caching: every read misses.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }
