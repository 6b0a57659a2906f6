package sink

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ponchocards/ponchocards/pkg/buildinfo"
	"github.com/ponchocards/ponchocards/pkg/cache"
	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/fonts"
)

// outlineWidth is the card border stroke in millimetres.
const outlineWidth = 0.2

// PDFOption configures PDF rendering.
type PDFOption func(*pdfRenderer)

type pdfRenderer struct {
	title   string
	created time.Time
	metrics canvas.Metrics
}

// WithTitle sets the document title metadata.
func WithTitle(title string) PDFOption { return func(r *pdfRenderer) { r.title = title } }

// WithCreationDate fixes the creation and modification timestamps, making
// the output byte-for-byte reproducible.
func WithCreationDate(t time.Time) PDFOption { return func(r *pdfRenderer) { r.created = t } }

// WithPDFMetrics overrides the metrics used to align text.
func WithPDFMetrics(m canvas.Metrics) PDFOption { return func(r *pdfRenderer) { r.metrics = m } }

// RenderPDF renders every page of the deck into one PDF document with the
// deck's page size. Units are millimetres.
func RenderPDF(d *canvas.Deck, opts ...PDFOption) ([]byte, error) {
	if d.Empty() {
		return nil, ErrEmptyDeck
	}
	r := pdfRenderer{title: "Song cards", metrics: fonts.Default()}
	for _, opt := range opts {
		opt(&r)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: d.Width, Ht: d.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(r.title, true)
	pdf.SetProducer(buildinfo.Producer(), true)
	if !r.created.IsZero() {
		pdf.SetCreationDate(r.created)
		pdf.SetModificationDate(r.created)
	}
	pdf.AddUTF8FontFromBytes(fonts.Family, "", fonts.RegularTTF())
	pdf.AddUTF8FontFromBytes(fonts.Family, "B", fonts.BoldTTF())

	for _, page := range d.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			r.draw(pdf, op)
		}
		if pdf.Err() {
			return nil, pdf.Error()
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) draw(pdf *fpdf.Fpdf, op canvas.Op) {
	switch op.Kind {
	case canvas.KindRect:
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(outlineWidth)
		pdf.Rect(op.X, op.Y, op.W, op.H, "D")

	case canvas.KindText:
		if !hasText(op) {
			return
		}
		style := ""
		if op.Bold {
			style = "B"
		}
		pdf.SetFont(fonts.Family, style, op.FontSize)
		pdf.SetTextColor(0, 0, 0)
		for i, line := range op.Lines {
			if line == "" {
				continue
			}
			x, y := op.LineOrigin(i, r.metrics)
			pdf.Text(x, y, line)
		}

	case canvas.KindImage:
		// identical codes share one embedded image
		name := "qr-" + cache.Hash(op.Image)[:16]
		imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
		if pdf.GetImageInfo(name) == nil {
			pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(op.Image))
		}
		pdf.ImageOptions(name, op.X, op.Y, op.W, op.H, false, imgOpts, 0, "")
	}
}
