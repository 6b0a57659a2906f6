// Package qrcode turns links into PNG code images for the back of each card.
package qrcode

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	qr "github.com/skip2/go-qrcode"

	"github.com/ponchocards/ponchocards/pkg/errors"
)

// Recovery levels, from least to most redundant.
const (
	LevelLow     = "low"
	LevelMedium  = "medium"
	LevelHigh    = "high"
	LevelHighest = "highest"
)

// Defaults match what prints reliably on a 32mm code area.
const (
	DefaultLevel = LevelHigh
	DefaultSize  = 256
)

// Generator produces a PNG code image for a text. Implementations must be
// safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, text string) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, text string) ([]byte, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// Options configures an Encoder.
type Options struct {
	Level string `toml:"level" json:"level"`
	Size  int    `toml:"size" json:"size"`
}

// ValidateAndSetDefaults fills zero values and rejects unknown levels.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Level == "" {
		o.Level = DefaultLevel
	}
	if o.Size == 0 {
		o.Size = DefaultSize
	}
	if _, err := parseLevel(o.Level); err != nil {
		return err
	}
	if o.Size < 21 {
		return errors.New(errors.ErrCodeInvalidInput, "qr size must be at least 21 pixels (got %d)", o.Size)
	}
	return nil
}

func parseLevel(s string) (qr.RecoveryLevel, error) {
	switch strings.ToLower(s) {
	case LevelLow:
		return qr.Low, nil
	case LevelMedium:
		return qr.Medium, nil
	case LevelHigh:
		return qr.High, nil
	case LevelHighest:
		return qr.Highest, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown qr recovery level %q", s)
}

// Encoder renders codes locally.
type Encoder struct {
	opts  Options
	level qr.RecoveryLevel
}

// NewEncoder creates an encoder. Zero options select the defaults.
func NewEncoder(opts Options) (*Encoder, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	level, _ := parseLevel(opts.Level)
	return &Encoder{opts: opts, level: level}, nil
}

// Options returns the effective options.
func (e *Encoder) Options() Options { return e.opts }

// Generate encodes text as a square PNG of Options.Size pixels.
func (e *Encoder) Generate(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "qr text is empty")
	}
	png, err := qr.Encode(text, e.level, e.opts.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

var _ Generator = (*Encoder)(nil)

// CheckImage returns an error unless data carries a decodable PNG header.
// Only the header is read.
func CheckImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty code image")
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("invalid code image: %w", err)
	}
	return nil
}
