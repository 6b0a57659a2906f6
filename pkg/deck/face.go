package deck

import (
	"strconv"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
	"github.com/ponchocards/ponchocards/pkg/deck/layout"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// Card typography. Lengths are millimetres, sizes are points.
const (
	ordinalSize  = 7.0
	ordinalInset = 2.0

	textInset  = 4.0
	lineHeight = 5.5

	titleSize   = 12.0
	titleTop    = 7.0
	yearSize    = 22.0
	artistSize  = 12.0
	artistFloor = 10.0

	codeInset = 8.0
	labelSize = 10.0
)

// drawDataFace emits the ops for one record's text face. The op order is
// outline, ordinal, title, year, artist.
func (e *Engine) drawDataFace(c canvas.Canvas, index int, rec song.Record, slot layout.Slot) {
	g := e.opts.Geometry
	x, y := g.Origin(slot)
	cx, cy := g.Center(slot)
	wrapWidth := g.CardSize - 2*textInset

	e.drawFrame(c, index, x, y)

	c.Draw(canvas.Op{
		Kind:       canvas.KindText,
		Role:       canvas.RoleTitle,
		Record:     index,
		X:          cx,
		Y:          y + titleTop,
		Lines:      Wrap(e.opts.Measurer, rec.Title, titleSize, false, wrapWidth),
		FontSize:   titleSize,
		Align:      canvas.AlignCenter,
		Baseline:   canvas.BaselineTop,
		LineHeight: lineHeight,
	})

	c.Draw(canvas.Op{
		Kind:       canvas.KindText,
		Role:       canvas.RoleYear,
		Record:     index,
		X:          cx,
		Y:          cy,
		Lines:      []string{rec.YearText(e.opts.YearPlaceholder)},
		FontSize:   yearSize,
		Bold:       true,
		Align:      canvas.AlignCenter,
		Baseline:   canvas.BaselineMiddle,
		LineHeight: lineHeight,
	})

	artist := Wrap(e.opts.Measurer, rec.Artist, artistSize, false, wrapWidth)
	top := y + g.CardSize - artistFloor
	if n := len(artist); n > 1 {
		top -= float64(n-1) * lineHeight
	}
	c.Draw(canvas.Op{
		Kind:       canvas.KindText,
		Role:       canvas.RoleArtist,
		Record:     index,
		X:          cx,
		Y:          top,
		Lines:      artist,
		FontSize:   artistSize,
		Align:      canvas.AlignCenter,
		Baseline:   canvas.BaselineTop,
		LineHeight: lineHeight,
	})
}

// drawCodeFace emits the ops for one record's code face: outline, ordinal,
// then the image or a fallback label.
func (e *Engine) drawCodeFace(c canvas.Canvas, index int, out Outcome, slot layout.Slot) {
	g := e.opts.Geometry
	x, y := g.Origin(slot)

	e.drawFrame(c, index, x, y)

	if out.Kind == Image {
		c.Draw(canvas.Op{
			Kind:   canvas.KindImage,
			Role:   canvas.RoleCode,
			Record: index,
			X:      x + codeInset,
			Y:      y + codeInset,
			W:      g.CardSize - 2*codeInset,
			H:      g.CardSize - 2*codeInset,
			Image:  out.PNG,
		})
		return
	}

	label, role := NoCodeLabel, canvas.RoleNoCode
	if out.Kind == GenerationFailed {
		label, role = CodeUnavailableLabel, canvas.RoleCodeError
	}
	cx, cy := g.Center(slot)
	c.Draw(canvas.Op{
		Kind:       canvas.KindText,
		Role:       role,
		Record:     index,
		X:          cx,
		Y:          cy,
		Lines:      []string{label},
		FontSize:   labelSize,
		Align:      canvas.AlignCenter,
		Baseline:   canvas.BaselineMiddle,
		LineHeight: lineHeight,
	})
}

// drawFrame emits the card outline and, when enabled, the ordinal.
func (e *Engine) drawFrame(c canvas.Canvas, index int, x, y float64) {
	size := e.opts.Geometry.CardSize
	c.Draw(canvas.Op{
		Kind:   canvas.KindRect,
		Role:   canvas.RoleOutline,
		Record: index,
		X:      x,
		Y:      y,
		W:      size,
		H:      size,
	})
	if !e.opts.ShowOrdinals {
		return
	}
	c.Draw(canvas.Op{
		Kind:       canvas.KindText,
		Role:       canvas.RoleOrdinal,
		Record:     index,
		X:          x + ordinalInset,
		Y:          y + ordinalInset,
		Lines:      []string{strconv.Itoa(index + 1)},
		FontSize:   ordinalSize,
		Align:      canvas.AlignLeft,
		Baseline:   canvas.BaselineTop,
		LineHeight: lineHeight,
	})
}
