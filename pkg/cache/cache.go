// Package cache stores rendered artifacts keyed by their inputs.
//
// Four backends implement [Cache]:
//
//   - [FileCache] keeps entries as files under a directory (CLI default)
//   - [MemoryCache] is a bounded in-process LRU (HTTP server)
//   - [RedisCache] shares entries between processes
//   - [NullCache] stores nothing (--no-cache)
//
// Keys come from [ArtifactKey], so identical DOT source rendered with the
// same engine, layout tool and format is only laid out once.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long rendered artifacts stay valid.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArtifactKey returns the cache key of a rendered image. tool identifies
// the layout program for engines that run one, and is empty otherwise.
func ArtifactKey(engine, tool, format, dot string) string {
	return hashKey("artifact", engine, tool, format, Hash([]byte(dot)))
}
