// Package cache stores derived artifacts (simulation traces, rendered
// constraint graphs) keyed by content hashes.
//
// # Backends
//
//   - [FileCache]: JSON entry files under a directory, for the CLI
//   - [RedisCache]: shared cache for multi-instance servers
//   - [NullCache]: never stores anything (caching disabled)
//
// # Keys
//
// A [Keyer] builds keys from an assembly hash (see [Hash]) and the options
// that influence the artifact, so any change to either yields a new key:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.TraceKey(cache.Hash(canonical), cache.TraceKeyOpts{Step: 1.0 / 60})
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss. Expired
	// and corrupt entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
