package canvas

// Metrics measures text in millimetres. *fonts.Metrics satisfies it.
type Metrics interface {
	StringWidth(s string, size float64, bold bool) float64
	Ascent(size float64, bold bool) float64
	Descent(size float64, bold bool) float64
}

// LineOrigin returns the left end of the baseline of line i of a text op.
// Every sink positions glyphs through this function so that PDF, SVG and
// PNG output agree with each other.
func (op Op) LineOrigin(i int, m Metrics) (x, baseline float64) {
	asc := m.Ascent(op.FontSize, op.Bold)
	desc := m.Descent(op.FontSize, op.Bold)

	switch op.Baseline {
	case BaselineMiddle:
		block := float64(len(op.Lines)-1) * op.LineHeight
		baseline = op.Y - block/2 + (asc-desc)/2 + float64(i)*op.LineHeight
	default:
		baseline = op.Y + asc + float64(i)*op.LineHeight
	}

	x = op.X
	if i < len(op.Lines) {
		w := m.StringWidth(op.Lines[i], op.FontSize, op.Bold)
		switch op.Align {
		case AlignCenter:
			x -= w / 2
		case AlignRight:
			x -= w
		}
	}
	return x, baseline
}
