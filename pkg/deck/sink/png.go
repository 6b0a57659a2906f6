package sink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/fonts"
)

// DefaultDPI is the raster resolution for PNG output.
const DefaultDPI = 150

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	dpi     float64
	metrics canvas.Metrics
	faces   map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// WithDPI sets the raster resolution (default 150).
func WithDPI(dpi float64) PNGOption { return func(r *pngRenderer) { r.dpi = dpi } }

// WithPNGMetrics overrides the metrics used to align text.
func WithPNGMetrics(m canvas.Metrics) PNGOption { return func(r *pngRenderer) { r.metrics = m } }

// RenderPNG rasterizes one page of the deck on a white background.
func RenderPNG(d *canvas.Deck, page int, opts ...PNGOption) ([]byte, error) {
	p, err := pageAt(d, page)
	if err != nil {
		return nil, err
	}
	r := pngRenderer{dpi: DefaultDPI, metrics: fonts.Default(), faces: map[faceKey]font.Face{}}
	for _, opt := range opts {
		opt(&r)
	}
	if r.dpi <= 0 {
		return nil, fmt.Errorf("dpi must be positive (got %v)", r.dpi)
	}
	defer r.closeFaces()

	scale := r.dpi / 25.4
	w := int(math.Round(d.Width * scale))
	h := int(math.Round(d.Height * scale))

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for _, op := range p.Ops {
		if err := r.draw(dc, op, scale); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *pngRenderer) draw(dc *gg.Context, op canvas.Op, scale float64) error {
	switch op.Kind {
	case canvas.KindRect:
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(math.Max(1, outlineWidth*scale))
		dc.DrawRectangle(op.X*scale, op.Y*scale, op.W*scale, op.H*scale)
		dc.Stroke()

	case canvas.KindText:
		if !hasText(op) {
			return nil
		}
		face, err := r.face(op.FontSize, op.Bold)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
		dc.SetRGB(0, 0, 0)
		for i, line := range op.Lines {
			if line == "" {
				continue
			}
			x, y := op.LineOrigin(i, r.metrics)
			dc.DrawString(line, x*scale, y*scale)
		}

	case canvas.KindImage:
		src, err := png.Decode(bytes.NewReader(op.Image))
		if err != nil {
			return fmt.Errorf("decode code image for record %d: %w", op.Record+1, err)
		}
		size := image.Rect(0, 0, int(math.Round(op.W*scale)), int(math.Round(op.H*scale)))
		dst := image.NewRGBA(size)
		// nearest neighbour keeps QR modules sharp
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		dc.DrawImage(dst, int(math.Round(op.X*scale)), int(math.Round(op.Y*scale)))
	}
	return nil
}

func (r *pngRenderer) face(size float64, bold bool) (font.Face, error) {
	k := faceKey{size, bold}
	if f, ok := r.faces[k]; ok {
		return f, nil
	}
	f, err := fonts.Face(size, r.dpi, bold)
	if err != nil {
		return nil, err
	}
	r.faces[k] = f
	return f, nil
}

func (r *pngRenderer) closeFaces() {
	for _, f := range r.faces {
		f.Close()
	}
}
