package qrcode

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ponchocards/ponchocards/pkg/cache"
	"github.com/ponchocards/ponchocards/pkg/observability"
)

const keyType = "qr"

// Cached wraps a Generator with a cache. Cache failures are logged and
// never fail generation.
type Cached struct {
	inner  Generator
	cache  cache.Cache
	keyer  cache.Keyer
	opts   cache.QRKeyOpts
	ttl    time.Duration
	logger *log.Logger
}

// NewCached creates a caching generator. opts must describe the inner
// generator's output so that keys change when the encoder settings do.
// Nil cache, keyer and logger fall back to a null cache, the default keyer
// and the default logger.
func NewCached(inner Generator, c cache.Cache, keyer cache.Keyer, opts Options, logger *log.Logger) *Cached {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{
		inner:  inner,
		cache:  c,
		keyer:  keyer,
		opts:   cache.QRKeyOpts{Level: opts.Level, Size: opts.Size},
		ttl:    cache.TTLQRCode,
		logger: logger,
	}
}

// Generate returns the cached image for text or generates and stores it.
// Cached entries that do not decode as PNG are treated as misses.
func (c *Cached) Generate(ctx context.Context, text string) ([]byte, error) {
	key := c.keyer.QRKey(text, c.opts)
	hooks := observability.Cache()

	data, hit, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Debug("qr cache read failed", "error", err)
	}
	if hit {
		cerr := CheckImage(data)
		if cerr == nil {
			hooks.OnCacheHit(ctx, keyType)
			return data, nil
		}
		c.logger.Debug("qr cache entry unreadable, regenerating", "error", cerr)
	}
	hooks.OnCacheMiss(ctx, keyType)

	data, err = c.inner.Generate(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Debug("qr cache write failed", "error", err)
	} else {
		hooks.OnCacheSet(ctx, keyType, len(data))
	}
	return data, nil
}

var _ Generator = (*Cached)(nil)
