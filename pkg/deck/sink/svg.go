package sink

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/fonts"
)

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	metrics    canvas.Metrics
	background string
}

// WithSVGMetrics overrides the metrics used to align text.
func WithSVGMetrics(m canvas.Metrics) SVGOption { return func(r *svgRenderer) { r.metrics = m } }

// WithBackground fills the page with a color; empty leaves it transparent.
func WithBackground(color string) SVGOption { return func(r *svgRenderer) { r.background = color } }

// RenderSVG renders one page of the deck. The viewBox is in millimetres and
// the document declares its physical size, so it prints at scale.
func RenderSVG(d *canvas.Deck, page int, opts ...SVGOption) ([]byte, error) {
	p, err := pageAt(d, page)
	if err != nil {
		return nil, err
	}
	r := svgRenderer{metrics: fonts.Default(), background: "#ffffff"}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.2fmm" height="%.2fmm">`+"\n",
		d.Width, d.Height, d.Width, d.Height)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", escapeXML(r.background))
	}
	for _, op := range p.Ops {
		r.draw(&buf, op)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func (r *svgRenderer) draw(buf *bytes.Buffer, op canvas.Op) {
	switch op.Kind {
	case canvas.KindRect:
		fmt.Fprintf(buf, `  <rect class="card" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="#000" stroke-width="%.2f"/>`+"\n",
			op.X, op.Y, op.W, op.H, outlineWidth)

	case canvas.KindText:
		if !hasText(op) {
			return
		}
		weight := "normal"
		if op.Bold {
			weight = "bold"
		}
		size := fonts.PointsToMM(op.FontSize)
		for i, line := range op.Lines {
			if line == "" {
				continue
			}
			x, y := op.LineOrigin(i, r.metrics)
			fmt.Fprintf(buf, `  <text class="%s" x="%.2f" y="%.2f" font-family="%s" font-size="%.2f" font-weight="%s">%s</text>`+"\n",
				op.Role, x, y, escapeXML(fonts.SVGFamily), size, weight, escapeXML(line))
		}

	case canvas.KindImage:
		fmt.Fprintf(buf, `  <image x="%.2f" y="%.2f" width="%.2f" height="%.2f" image-rendering="pixelated" href="data:image/png;base64,%s"/>`+"\n",
			op.X, op.Y, op.W, op.H, base64.StdEncoding.EncodeToString(op.Image))
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
