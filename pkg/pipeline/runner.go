package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ponchocards/ponchocards/pkg/cache"
	"github.com/ponchocards/ponchocards/pkg/deck"
	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/deck/sink"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/observability"
	"github.com/ponchocards/ponchocards/pkg/qrcode"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedDeck is the cache entry for a generated deck.
type cachedDeck struct {
	Deck  *canvas.Deck `json:"deck"`
	Stats deck.Stats   `json:"stats"`
}

// Execute runs the complete generate → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, records []song.Record, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no songs to print")
	}

	result := &Result{}

	// Stage 1: Generate
	genStart := time.Now()
	d, stats, key, hit, err := r.GenerateWithCacheInfo(ctx, records, opts)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	result.Deck = d
	result.DeckKey = key
	result.Stats = stats
	result.GenerateTime = time.Since(genStart)
	result.CacheInfo.DeckHit = hit

	r.Logger.Info("generated deck",
		"songs", stats.Records,
		"pages", stats.Pages,
		"cached", hit,
		"duration", result.GenerateTime)

	// Stage 2: Render. Artifacts of a deck with failed codes are not cached.
	renderKey := key
	if stats.CodeFailures > 0 {
		renderKey = ""
	}
	renderStart := time.Now()
	artifacts, hits, err := r.RenderWithCacheInfo(ctx, d, renderKey, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.RenderTime = time.Since(renderStart)
	result.CacheInfo.ArtifactHits = hits

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"files", len(artifacts),
		"duration", result.RenderTime)

	return result, nil
}

// GenerateWithCacheInfo draws the deck for records, or loads it from the
// cache. It returns the deck, its stats, its cache key and whether it was a
// cache hit. A deck with failed code images is never stored, so the next
// run retries them.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, records []song.Record, opts Options) (*canvas.Deck, deck.Stats, string, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, deck.Stats{}, "", false, err
	}

	key := r.Keyer.DeckKey(cache.HashJSON(records), cache.HashJSON(opts.deckKeyOpts()))
	hooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached cachedDeck
			if err := json.Unmarshal(data, &cached); err == nil && cached.Deck != nil {
				hooks.OnCacheHit(ctx, "deck")
				return cached.Deck, cached.Stats, key, true, nil
			}
		}
		hooks.OnCacheMiss(ctx, "deck")
	}

	engine, err := deck.New(r.deckOptions(opts))
	if err != nil {
		return nil, deck.Stats{}, "", false, err
	}
	d, stats, err := engine.Generate(ctx, records)
	if err != nil {
		return nil, stats, "", false, err
	}

	if stats.CodeFailures > 0 {
		r.Logger.Debug("deck not cached", "code_failures", stats.CodeFailures)
		return d, stats, key, false, nil
	}
	if data, err := json.Marshal(cachedDeck{Deck: d, Stats: stats}); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Debug("deck cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, "deck", len(data))
		}
	}
	return d, stats, key, false, nil
}

// Generate is a convenience wrapper that discards the cache information.
func (r *Runner) Generate(ctx context.Context, records []song.Record, opts Options) (*canvas.Deck, deck.Stats, error) {
	d, stats, _, _, err := r.GenerateWithCacheInfo(ctx, records, opts)
	return d, stats, err
}

// deckOptions builds engine options with a cached code generator.
func (r *Runner) deckOptions(opts Options) deck.Options {
	inner := opts.Generator
	if inner == nil {
		// QR options were validated, so NewEncoder cannot fail here.
		inner, _ = qrcode.NewEncoder(opts.QR)
	}
	return deck.Options{
		Geometry:        opts.Geometry,
		ShowOrdinals:    opts.ShowOrdinals,
		Mirror:          opts.Mirror,
		YearPlaceholder: opts.YearPlaceholder,
		Concurrency:     opts.Concurrency,
		Generator:       qrcode.NewCached(inner, r.Cache, r.Keyer, opts.QR, opts.Logger),
		Logger:          opts.Logger,
	}
}

// RenderWithCacheInfo renders every requested format of d. Files found in
// the cache under deckKey are reused; the number of reused files is
// returned. An empty deckKey disables artifact caching.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d *canvas.Deck, deckKey string, opts Options) ([]Artifact, int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, 0, err
	}
	if d.Empty() {
		return nil, 0, errors.Wrap(errors.ErrCodeInvalidInput, sink.ErrEmptyDeck, "nothing to render")
	}

	start := time.Now()
	deckHooks := observability.Deck()
	deckHooks.OnRenderStart(ctx, opts.Formats)

	var (
		artifacts []Artifact
		hits      int
		err       error
	)
	for _, format := range opts.Formats {
		for _, job := range jobs(d, format, opts) {
			a, hit, jerr := r.renderCached(ctx, d, deckKey, job, opts)
			if jerr != nil {
				err = fmt.Errorf("%s: %w", format, jerr)
				break
			}
			if hit {
				hits++
			}
			artifacts = append(artifacts, a)
		}
		if err != nil {
			break
		}
	}

	deckHooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, 0, err
	}
	return artifacts, hits, nil
}

// Render is a convenience wrapper that discards the cache information.
func (r *Runner) Render(ctx context.Context, d *canvas.Deck, opts Options) ([]Artifact, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, "", opts)
	return artifacts, err
}

// job is one file to render. Page is -1 for whole-deck formats.
type job struct {
	format string
	page   int
	name   string
}

func jobs(d *canvas.Deck, format string, opts Options) []job {
	switch format {
	case sink.FormatSVG, sink.FormatPNG:
		out := make([]job, len(d.Pages))
		for i, p := range d.Pages {
			out[i] = job{format: format, page: i, name: sink.PageName(p, format)}
		}
		return out
	default:
		return []job{{format: format, page: -1, name: opts.Title + "." + format}}
	}
}

func (r *Runner) renderCached(ctx context.Context, d *canvas.Deck, deckKey string, j job, opts Options) (Artifact, bool, error) {
	a := Artifact{Name: j.name, Format: j.format}
	hooks := observability.Cache()

	var key string
	if deckKey != "" && !opts.Refresh {
		key = r.Keyer.ArtifactKey(deckKey, opts.artifactKeyOpts(j.format, j.page))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, "artifact")
			a.Data = data
			return a, true, nil
		}
		hooks.OnCacheMiss(ctx, "artifact")
	}

	if err := ctx.Err(); err != nil {
		return a, false, err
	}
	data, err := renderOne(d, j, opts)
	if err != nil {
		return a, false, err
	}
	a.Data = data

	if key != "" {
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Debug("artifact cache write failed", "name", j.name, "error", err)
		} else {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return a, false, nil
}

func renderOne(d *canvas.Deck, j job, opts Options) ([]byte, error) {
	switch j.format {
	case sink.FormatPDF:
		return sink.RenderPDF(d, sink.WithTitle(opts.Title))
	case sink.FormatSVG:
		return sink.RenderSVG(d, j.page)
	case sink.FormatPNG:
		return sink.RenderPNG(d, j.page, sink.WithDPI(float64(opts.DPI)))
	case sink.FormatJSON:
		return sink.RenderJSON(d)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", j.format)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
