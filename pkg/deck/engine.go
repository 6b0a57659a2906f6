package deck

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/observability"
	"github.com/ponchocards/ponchocards/pkg/qrcode"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// Stats summarizes one generation.
type Stats struct {
	Records      int           `json:"records"`
	PagesPerPass int           `json:"pages_per_pass"`
	Pages        int           `json:"pages"`
	Codes        int           `json:"codes"`
	NoCode       int           `json:"no_code"`
	CodeFailures int           `json:"code_failures"`
	Duration     time.Duration `json:"duration"`
}

// Engine lays out and draws decks. It holds only immutable configuration,
// so one Engine can serve concurrent Generate calls.
type Engine struct {
	opts Options
}

// New creates an engine. The geometry is validated here and again before
// every draw.
func New(opts Options) (*Engine, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Generate draws records into an in-memory deck. An empty input yields a
// deck with no pages. If ctx is cancelled the context error is returned and
// no deck.
func (e *Engine) Generate(ctx context.Context, records []song.Record) (*canvas.Deck, Stats, error) {
	g := e.opts.Geometry
	rec := canvas.NewRecorder(g.PageWidth, g.PageHeight)
	stats, err := e.Draw(ctx, records, rec)
	if err != nil {
		return nil, stats, err
	}
	return rec.Deck(), stats, nil
}

// Draw emits every data page and then every code page into c.
func (e *Engine) Draw(ctx context.Context, records []song.Record, c canvas.Canvas) (stats Stats, err error) {
	start := time.Now()
	hooks := observability.Deck()
	hooks.OnGenerateStart(ctx, len(records))
	defer func() {
		stats.Duration = time.Since(start)
		hooks.OnGenerateComplete(ctx, stats.Pages, stats.Duration, err)
	}()

	g := e.opts.Geometry
	if err := g.Validate(); err != nil {
		return Stats{}, err
	}

	outcomes, err := e.codes(ctx, records)
	if err != nil {
		return Stats{}, err
	}

	stats.Records = len(records)
	stats.PagesPerPass = g.TotalPages(len(records))
	stats.Pages = 2 * stats.PagesPerPass
	for i, out := range outcomes {
		switch out.Kind {
		case Image:
			stats.Codes++
		case NoCodeInput:
			stats.NoCode++
		case GenerationFailed:
			stats.CodeFailures++
			e.opts.Logger.Warn("code generation failed",
				"record", i+1,
				"title", records[i].Title,
				"error", out.Err)
			hooks.OnCodeFailure(ctx, i, out.Err)
		}
	}

	plan := g.Plan(len(records), e.opts.Mirror)

	page := -1
	for _, p := range plan {
		if p.Data.Page != page {
			if err := ctx.Err(); err != nil {
				return Stats{}, err
			}
			page = p.Data.Page
			c.BeginPage(canvas.PassData, page)
		}
		e.drawDataFace(c, p.Index, records[p.Index], p.Data)
	}

	page = -1
	for _, p := range plan {
		if p.Code.Page != page {
			if err := ctx.Err(); err != nil {
				return Stats{}, err
			}
			page = p.Code.Page
			c.BeginPage(canvas.PassCode, page)
		}
		e.drawCodeFace(c, p.Index, outcomes[p.Index], p.Code)
	}

	e.opts.Logger.Debug("deck drawn",
		"records", stats.Records,
		"pages", stats.Pages,
		"codes", stats.Codes,
		"no_code", stats.NoCode,
		"failures", stats.CodeFailures)
	return stats, nil
}

// codes generates every code image with bounded parallelism. Results are
// stored by record index, so the outcome order never depends on scheduling.
// Per-record failures, including images that do not decode, become
// GenerationFailed outcomes; only cancellation of ctx aborts the call.
func (e *Engine) codes(ctx context.Context, records []song.Record) ([]Outcome, error) {
	out := make([]Outcome, len(records))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Concurrency)

	for i, r := range records {
		if !r.HasLink() {
			out[i] = Outcome{Kind: NoCodeInput}
			continue
		}
		link := r.Link
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			png, err := e.opts.Generator.Generate(egctx, link)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				out[i] = Outcome{Kind: GenerationFailed, Err: err}
				return nil
			}
			if len(png) == 0 {
				out[i] = Outcome{Kind: GenerationFailed, Err: errEmptyImage}
				return nil
			}
			if err := qrcode.CheckImage(png); err != nil {
				out[i] = Outcome{Kind: GenerationFailed, Err: err}
				return nil
			}
			out[i] = Outcome{Kind: Image, PNG: png}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
