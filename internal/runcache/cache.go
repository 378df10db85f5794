// Package runcache caches data that is expensive to recompute but cheap to
// key by hash: Timeseries table rows and Const-parameter evaluations,
// keyed by a hash of the table/parameter's own content (internal/tables.
// Table, internal/network.ConstantParamConfig). The Cache interface is
// trimmed to the subset of operations a read-mostly, never-invalidated
// cache actually needs — no MGet/MSet/pattern scan, since nothing here
// batches lookups across keys or scans by prefix.
package runcache

import (
	"context"
	"errors"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrKeyNotFound is returned by Get when key isn't cached.
var ErrKeyNotFound = errors.New("runcache: key not found")

// Cache stores small byte-slice values (encoded float64s/JSON rows) behind
// a string key, with a per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Options configures a Cache backend.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	MaxEntries int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func DefaultOptions() *Options {
	return &Options{
		Backend:    BackendMemory,
		DefaultTTL: 10 * time.Minute,
		MaxEntries: 50000,
		RedisAddr:  "localhost:6379",
	}
}

// New builds a Cache for opts.Backend, falling back to an in-memory cache
// for an empty or unrecognized backend name.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}
