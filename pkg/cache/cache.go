// Package cache provides the byte-level cache tier in front of gasket
// persistence.
//
// Generated gaskets are cached as serialized payloads under content-hash
// keys, so a repeated request for the same seed and depth is answered
// without touching the store or running the generator. Backends:
//   - [FileCache]: files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the server
//   - [MemoryCache]: process memory, for tests and single-instance servers
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so that deployments can namespace them with
// [NewScopedKeyer].
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores opaque payloads by key with an optional TTL.
type Cache interface {
	// Get returns the payload for key. hit is false on a miss; a miss is
	// not an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs for cached payloads.
const (
	// TTLGasket covers a generated gasket. Gaskets are deterministic, so
	// the TTL only bounds cache growth.
	TTLGasket = 7 * 24 * time.Hour

	// TTLSeeds covers an enumeration of integral root quintets.
	TTLSeeds = 30 * 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// GasketKey identifies a gasket payload by seed hash and depth.
	GasketKey(gasketHash string, maxDepth int) string

	// SeedsKey identifies the integral seed enumeration up to maxB.
	SeedsKey(maxB int64) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// GasketKey returns "gasket:<hash>:d<depth>".
func (DefaultKeyer) GasketKey(gasketHash string, maxDepth int) string {
	return fmt.Sprintf("gasket:%s:d%d", gasketHash, maxDepth)
}

// SeedsKey returns a hashed key for the seed enumeration.
func (DefaultKeyer) SeedsKey(maxB int64) string {
	return hashKey("seeds", "integral", maxB)
}
