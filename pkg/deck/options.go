package deck

import (
	"github.com/charmbracelet/log"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/deck/layout"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/fonts"
	"github.com/ponchocards/ponchocards/pkg/qrcode"
)

// DefaultConcurrency bounds parallel code generation.
const DefaultConcurrency = 4

// Options configures an Engine. It is copied on New and never mutated
// afterwards.
type Options struct {
	Geometry layout.Geometry

	// ShowOrdinals prints the 1-based record number in the top-left corner
	// of both faces.
	ShowOrdinals bool

	// Mirror reflects code columns for long-edge duplex printing.
	Mirror bool

	// YearPlaceholder is printed when a record has no year.
	YearPlaceholder string

	// Concurrency bounds parallel code generation. Zero selects
	// DefaultConcurrency.
	Concurrency int

	// Generator produces code images. Nil selects a default QR encoder.
	Generator qrcode.Generator

	// Measurer supplies font metrics for wrapping. Nil selects the
	// embedded Go fonts.
	Measurer canvas.Metrics

	Logger *log.Logger
}

// DefaultOptions returns the letter-sized, mirrored 4x4 layout.
func DefaultOptions() Options {
	return Options{
		Geometry:    layout.DefaultGeometry(),
		Mirror:      true,
		Concurrency: DefaultConcurrency,
	}
}

// ValidateAndSetDefaults fills unset fields and validates the geometry.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Geometry == (layout.Geometry{}) {
		o.Geometry = layout.DefaultGeometry()
	}
	if err := o.Geometry.Validate(); err != nil {
		return err
	}
	if o.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "concurrency must not be negative (got %d)", o.Concurrency)
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Generator == nil {
		enc, err := qrcode.NewEncoder(qrcode.Options{})
		if err != nil {
			return err
		}
		o.Generator = enc
	}
	if o.Measurer == nil {
		o.Measurer = fonts.Default()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}
