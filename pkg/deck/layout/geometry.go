package layout

import (
	"github.com/ponchocards/ponchocards/pkg/errors"
)

// Default sheet geometry: a US letter page carrying a centered 4x4 grid of
// 48mm cards with 4mm gutters. All lengths are millimetres.
const (
	DefaultPageWidth  = 215.9
	DefaultPageHeight = 279.4
	DefaultCardSize   = 48.0
	DefaultCols       = 4
	DefaultRows       = 4
	DefaultGap        = 4.0
)

// eps absorbs floating point noise when checking that the grid fits.
const eps = 1e-9

// Geometry fixes the physical layout of every page in a deck.
// It is an immutable value: methods never modify the receiver.
type Geometry struct {
	PageWidth  float64 `json:"page_width" toml:"page_width"`
	PageHeight float64 `json:"page_height" toml:"page_height"`
	CardSize   float64 `json:"card_size" toml:"card_size"`
	Cols       int     `json:"grid_cols" toml:"grid_cols"`
	Rows       int     `json:"grid_rows" toml:"grid_rows"`
	Gap        float64 `json:"gap" toml:"gap"`
}

// DefaultGeometry returns the letter-sized 4x4 layout.
func DefaultGeometry() Geometry {
	return Geometry{
		PageWidth:  DefaultPageWidth,
		PageHeight: DefaultPageHeight,
		CardSize:   DefaultCardSize,
		Cols:       DefaultCols,
		Rows:       DefaultRows,
		Gap:        DefaultGap,
	}
}

// Validate reports an INVALID_GEOMETRY error when the grid cannot be
// placed on the page. Negative margins are never clamped.
func (g Geometry) Validate() error {
	switch {
	case g.PageWidth <= 0 || g.PageHeight <= 0:
		return errors.New(errors.ErrCodeInvalidGeometry,
			"page size must be positive (got %.1fx%.1f)", g.PageWidth, g.PageHeight)
	case g.CardSize <= 0:
		return errors.New(errors.ErrCodeInvalidGeometry, "card size must be positive (got %.1f)", g.CardSize)
	case g.Cols <= 0 || g.Rows <= 0:
		return errors.New(errors.ErrCodeInvalidGeometry, "grid must have at least one column and row (got %dx%d)", g.Cols, g.Rows)
	case g.Gap < 0:
		return errors.New(errors.ErrCodeInvalidGeometry, "gap must not be negative (got %.1f)", g.Gap)
	}

	if w := g.GridWidth(); w > g.PageWidth+eps {
		return errors.New(errors.ErrCodeInvalidGeometry,
			"grid exceeds page bounds: %d columns need %.1fmm but page width is %.1fmm", g.Cols, w, g.PageWidth)
	}
	if h := g.GridHeight(); h > g.PageHeight+eps {
		return errors.New(errors.ErrCodeInvalidGeometry,
			"grid exceeds page bounds: %d rows need %.1fmm but page height is %.1fmm", g.Rows, h, g.PageHeight)
	}
	return nil
}

// GridWidth is the horizontal extent of all columns and the gaps between them.
func (g Geometry) GridWidth() float64 {
	return float64(g.Cols)*g.CardSize + float64(g.Cols-1)*g.Gap
}

// GridHeight is the vertical extent of all rows and the gaps between them.
func (g Geometry) GridHeight() float64 {
	return float64(g.Rows)*g.CardSize + float64(g.Rows-1)*g.Gap
}

// MarginX is the left (and right) margin that centers the grid.
func (g Geometry) MarginX() float64 { return (g.PageWidth - g.GridWidth()) / 2 }

// MarginY is the top (and bottom) margin that centers the grid.
func (g Geometry) MarginY() float64 { return (g.PageHeight - g.GridHeight()) / 2 }

// SlotsPerPage is the number of cards one page holds.
func (g Geometry) SlotsPerPage() int { return g.Cols * g.Rows }

// TotalPages is the number of pages one pass needs for n records.
// It is 0 for n <= 0.
func (g Geometry) TotalPages(n int) int {
	per := g.SlotsPerPage()
	if n <= 0 || per <= 0 {
		return 0
	}
	return (n + per - 1) / per
}

// Origin returns the top-left corner of a slot on its page.
func (g Geometry) Origin(s Slot) (x, y float64) {
	pitch := g.CardSize + g.Gap
	return g.MarginX() + float64(s.Col)*pitch, g.MarginY() + float64(s.Row)*pitch
}

// Center returns the center point of a slot on its page.
func (g Geometry) Center(s Slot) (x, y float64) {
	x, y = g.Origin(s)
	return x + g.CardSize/2, y + g.CardSize/2
}
