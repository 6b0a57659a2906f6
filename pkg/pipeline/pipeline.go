// Package pipeline turns song records into printable files.
//
// It is the single entry point shared by the CLI and the admin server:
// validate options, generate the deck (with cached code images), render the
// requested formats, and cache every intermediate result.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Formats = []string{"pdf", "png"}
//	result, err := runner.Execute(ctx, records, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, a := range result.Artifacts {
//	    os.WriteFile(a.Name, a.Data, 0o644)
//	}
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/ponchocards/ponchocards/pkg/cache"
	"github.com/ponchocards/ponchocards/pkg/deck"
	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/deck/layout"
	"github.com/ponchocards/ponchocards/pkg/deck/sink"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/qrcode"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultFormat is rendered when no format is requested.
	DefaultFormat = sink.FormatPDF

	// DefaultDPI is the PNG resolution.
	DefaultDPI = sink.DefaultDPI

	// DefaultTitle is the PDF document title and the base of file names.
	DefaultTitle = "ponchocards"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one run. Fields with json tags take part in cache
// keys.
type Options struct {
	// Layout options
	Geometry        layout.Geometry `json:"geometry"`
	ShowOrdinals    bool            `json:"show_ordinals,omitempty"`
	Mirror          bool            `json:"mirror"`
	YearPlaceholder string          `json:"year_placeholder,omitempty"`
	QR              qrcode.Options  `json:"qr"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	DPI     int      `json:"dpi,omitempty"`
	Title   string   `json:"title,omitempty"`

	// Runtime options (not part of cache keys)
	Concurrency int              `json:"-"`
	Refresh     bool             `json:"-"`
	Generator   qrcode.Generator `json:"-"`
	Logger      *log.Logger      `json:"-"`
}

// DefaultOptions returns the mirrored letter layout rendered to PDF.
func DefaultOptions() Options {
	d := deck.DefaultOptions()
	return Options{
		Geometry:    d.Geometry,
		Mirror:      d.Mirror,
		Formats:     []string{DefaultFormat},
		DPI:         DefaultDPI,
		Title:       DefaultTitle,
		Concurrency: d.Concurrency,
	}
}

// ValidateAndSetDefaults fills zero values, removes duplicate formats and
// validates everything a run depends on.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Geometry == (layout.Geometry{}) {
		o.Geometry = layout.DefaultGeometry()
	}
	if err := o.Geometry.Validate(); err != nil {
		return err
	}
	if err := o.QR.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "concurrency must not be negative (got %d)", o.Concurrency)
	}

	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	seen := make(map[string]bool, len(o.Formats))
	formats := o.Formats[:0:0]
	for _, f := range o.Formats {
		if !sink.IsValidFormat(f) {
			return errors.New(errors.ErrCodeInvalidFormat,
				"invalid format %q (must be one of: pdf, svg, png, json)", f)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	o.Formats = formats

	if o.DPI == 0 {
		o.DPI = DefaultDPI
	}
	if o.DPI < 36 || o.DPI > 1200 {
		return errors.New(errors.ErrCodeInvalidInput, "dpi must be between 36 and 1200 (got %d)", o.DPI)
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	return nil
}

// deckKeyOpts is the part of Options that shapes the deck itself.
func (o *Options) deckKeyOpts() any {
	return struct {
		Geometry        layout.Geometry `json:"geometry"`
		ShowOrdinals    bool            `json:"show_ordinals"`
		Mirror          bool            `json:"mirror"`
		YearPlaceholder string          `json:"year_placeholder"`
		QR              qrcode.Options  `json:"qr"`
	}{o.Geometry, o.ShowOrdinals, o.Mirror, o.YearPlaceholder, o.QR}
}

// artifactKeyOpts returns cache key options for one rendered file.
func (o *Options) artifactKeyOpts(format string, page int) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Page: page}
	if format == sink.FormatPNG {
		k.DPI = o.DPI
	}
	return k
}

// =============================================================================
// Result
// =============================================================================

// Artifact is one rendered file.
type Artifact struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Data   []byte `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Deck is the drawn deck.
	Deck *canvas.Deck

	// DeckKey identifies the deck in the cache.
	DeckKey string

	// Artifacts are the rendered files, in format order and then page order.
	Artifacts []Artifact

	// Stats describes the generation. On a deck cache hit it is the stats
	// of the run that produced the cached deck.
	Stats deck.Stats

	// Timings
	GenerateTime time.Duration
	RenderTime   time.Duration

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DeckHit      bool // Whether the deck came from cache
	ArtifactHits int  // Number of artifacts served from cache
}

// Artifact returns the first artifact of a format.
func (r *Result) Artifact(format string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Format == format {
			return a, true
		}
	}
	return Artifact{}, false
}
