package sink

import (
	"encoding/json"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	stripImages bool
}

// WithoutImages drops image bytes from the output, keeping only their
// position. Useful when diffing layouts.
func WithoutImages() JSONOption { return func(r *jsonRenderer) { r.stripImages = true } }

// RenderJSON exports the deck as pretty-printed JSON. Image bytes are
// base64 encoded. An empty deck renders as a document with no pages.
func RenderJSON(d *canvas.Deck, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	out := canvas.Deck{}
	if d != nil {
		out = *d
	}
	if out.Pages == nil {
		out.Pages = []canvas.Page{}
	}
	if r.stripImages {
		out.Pages = stripImages(out.Pages)
	}
	return json.MarshalIndent(out, "", "  ")
}

func stripImages(pages []canvas.Page) []canvas.Page {
	outPages := make([]canvas.Page, len(pages))
	for i, p := range pages {
		ops := make([]canvas.Op, len(p.Ops))
		for j, op := range p.Ops {
			op.Image = nil
			ops[j] = op
		}
		p.Ops = ops
		outPages[i] = p
	}
	return outPages
}
