// Package fonts provides the typefaces used on printed cards and the metrics
// the layout engine wraps text with.
//
// The Go fonts ship inside golang.org/x/image, so every sink (PDF, SVG, PNG)
// draws with exactly the glyph advances the engine measured, without any
// system font lookup.
package fonts

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Family is the font family name registered with PDF documents.
const Family = "gofont"

// SVGFamily is the CSS font-family used in SVG output.
const SVGFamily = `'Go', 'Helvetica Neue', Helvetica, Arial, sans-serif`

// mmPerPoint converts typographic points to millimetres.
const mmPerPoint = 25.4 / 72

// RegularTTF returns the regular TrueType font data.
func RegularTTF() []byte { return goregular.TTF }

// BoldTTF returns the bold TrueType font data.
func BoldTTF() []byte { return gobold.TTF }

var (
	parseOnce sync.Once
	regular   *opentype.Font
	bold      *opentype.Font
	parseErr  error
)

func parsed() (*opentype.Font, *opentype.Font, error) {
	parseOnce.Do(func() {
		if regular, parseErr = opentype.Parse(goregular.TTF); parseErr != nil {
			return
		}
		bold, parseErr = opentype.Parse(gobold.TTF)
	})
	return regular, bold, parseErr
}

// Face returns a font face at size points rendered for dpi.
// Callers own the face and should Close it.
func Face(size, dpi float64, isBold bool) (font.Face, error) {
	reg, b, err := parsed()
	if err != nil {
		return nil, fmt.Errorf("parse go fonts: %w", err)
	}
	f := reg
	if isBold {
		f = b
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingNone,
	})
}

type faceKey struct {
	size float64
	bold bool
}

// Metrics measures strings in millimetres at point sizes. Faces are built
// lazily and kept for the lifetime of the Metrics value. It is safe for
// concurrent use.
type Metrics struct {
	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{faces: make(map[faceKey]font.Face)}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns a process-wide Metrics instance.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() { defaultMetrics = NewMetrics() })
	return defaultMetrics
}

func (m *Metrics) face(size float64, isBold bool) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := faceKey{size, isBold}
	if f, ok := m.faces[k]; ok {
		return f
	}
	// Points at 72 DPI: one pixel equals one point.
	f, err := Face(size, 72, isBold)
	if err != nil {
		// The embedded fonts are known-good; a failure here is a build defect.
		panic(err)
	}
	m.faces[k] = f
	return f
}

// StringWidth returns the advance width of s in millimetres.
func (m *Metrics) StringWidth(s string, size float64, isBold bool) float64 {
	f := m.face(size, isBold)
	m.mu.Lock()
	adv := font.MeasureString(f, s)
	m.mu.Unlock()
	return float64(adv) / 64 * mmPerPoint
}

// Ascent returns the distance from baseline to the top of the tallest glyph
// in millimetres.
func (m *Metrics) Ascent(size float64, isBold bool) float64 {
	f := m.face(size, isBold)
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(f.Metrics().Ascent) / 64 * mmPerPoint
}

// Descent returns the distance from baseline to the bottom of the lowest
// glyph in millimetres (positive).
func (m *Metrics) Descent(size float64, isBold bool) float64 {
	f := m.face(size, isBold)
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(f.Metrics().Descent) / 64 * mmPerPoint
}

// PointsToMM converts a point size to millimetres.
func PointsToMM(pt float64) float64 { return pt * mmPerPoint }
