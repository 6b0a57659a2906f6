// Package sink renders a recorded [canvas.Deck] to output formats.
//
// # Formats
//
//   - PDF: the whole deck as one printable document ([RenderPDF])
//   - SVG: one page per call ([RenderSVG])
//   - PNG: one page per call, rasterized at a DPI ([RenderPNG])
//   - JSON: the full op list for debugging ([RenderJSON])
//
// Every sink positions text with [canvas.Op.LineOrigin] and the embedded Go
// fonts, so the formats agree on where each glyph lands. Text ops whose
// lines are all empty draw nothing.
//
// The drawing sinks refuse a deck without pages and return [ErrEmptyDeck].
package sink

import (
	"errors"
	"fmt"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	perrors "github.com/ponchocards/ponchocards/pkg/errors"
)

// Output format names.
const (
	FormatPDF  = "pdf"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ErrEmptyDeck is returned when there is nothing to print.
var ErrEmptyDeck = errors.New("deck has no pages")

// ValidFormats lists the supported output formats.
var ValidFormats = []string{FormatPDF, FormatSVG, FormatPNG, FormatJSON}

// IsValidFormat reports whether f names a supported format.
func IsValidFormat(f string) bool {
	for _, v := range ValidFormats {
		if v == f {
			return true
		}
	}
	return false
}

func pageAt(d *canvas.Deck, page int) (canvas.Page, error) {
	if d.Empty() {
		return canvas.Page{}, ErrEmptyDeck
	}
	if page < 0 || page >= len(d.Pages) {
		return canvas.Page{}, perrors.New(perrors.ErrCodeInvalidInput,
			"page %d out of range (deck has %d pages)", page, len(d.Pages))
	}
	return d.Pages[page], nil
}

// PageName returns a stable file name for page i of a deck, such as
// "data-01.svg" or "code-02.png".
func PageName(p canvas.Page, ext string) string {
	return fmt.Sprintf("%s-%02d.%s", p.Pass, p.Index+1, ext)
}

func hasText(op canvas.Op) bool {
	for _, l := range op.Lines {
		if l != "" {
			return true
		}
	}
	return false
}
