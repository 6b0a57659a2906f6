// Package cache stores generated bytes (QR images, rendered decks) keyed by
// content hashes.
//
// Three backends share the [Cache] interface: [FileCache] for the CLI,
// [RedisCache] for shared server deployments and [NullCache] when caching
// is disabled. Keys are produced by a [Keyer] so that every key embeds the
// options that influenced the cached bytes.
package cache

import (
	"context"
	"time"
)

// Default lifetimes for cached entries.
const (
	// TTLQRCode is how long an encoded code image stays cached. The image
	// depends only on the link and encoder options, so it rarely changes.
	TTLQRCode = 30 * 24 * time.Hour

	// TTLArtifact is how long a rendered deck stays cached.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
//
// Get reports a miss with found=false and a nil error. Implementations must
// be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
