// Package canvas defines the abstract paginated drawing surface the deck
// engine emits into, and the recorded [Deck] that output sinks consume.
//
// Coordinates are millimetres from the top-left corner of the page; font
// sizes are points.
package canvas

// Pass identifies which traversal of the records a page belongs to.
type Pass string

const (
	PassData Pass = "data"
	PassCode Pass = "code"
)

// Kind is the type of a draw operation.
type Kind string

const (
	KindRect  Kind = "rect"
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Role says what a draw operation depicts on the card.
type Role string

const (
	RoleOutline   Role = "outline"
	RoleOrdinal   Role = "ordinal"
	RoleTitle     Role = "title"
	RoleYear      Role = "year"
	RoleArtist    Role = "artist"
	RoleCode      Role = "code"
	RoleNoCode    Role = "no-code"
	RoleCodeError Role = "code-error"
)

// Align is horizontal text alignment relative to Op.X.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Baseline is vertical text anchoring relative to Op.Y.
type Baseline string

const (
	// BaselineTop puts the top of the first line's ascent at Y.
	BaselineTop Baseline = "top"
	// BaselineMiddle centers the block of lines on Y.
	BaselineMiddle Baseline = "middle"
)

// Op is one draw instruction. Which fields matter depends on Kind:
//   - rect: X, Y, W, H (outline only)
//   - text: X, Y, Lines, FontSize, Bold, Align, Baseline, LineHeight
//   - image: X, Y, W, H, Image (PNG bytes)
type Op struct {
	Kind       Kind     `json:"kind"`
	Role       Role     `json:"role"`
	Record     int      `json:"record"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	W          float64  `json:"w,omitempty"`
	H          float64  `json:"h,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	FontSize   float64  `json:"font_size,omitempty"`
	Bold       bool     `json:"bold,omitempty"`
	Align      Align    `json:"align,omitempty"`
	Baseline   Baseline `json:"baseline,omitempty"`
	LineHeight float64  `json:"line_height,omitempty"`
	Image      []byte   `json:"image,omitempty"`
}

// Page is one physical page of the deck.
type Page struct {
	Pass  Pass `json:"pass"`
	Index int  `json:"index"`
	Ops   []Op `json:"ops"`
}

// Deck is the complete multi-page output of one generation.
type Deck struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Pages  []Page  `json:"pages"`
}

// Empty reports whether the deck has nothing to print.
func (d *Deck) Empty() bool { return d == nil || len(d.Pages) == 0 }

// PagesOf returns the pages of one pass in order.
func (d *Deck) PagesOf(pass Pass) []Page {
	var out []Page
	for _, p := range d.Pages {
		if p.Pass == pass {
			out = append(out, p)
		}
	}
	return out
}

// Canvas receives draw instructions. BeginPage starts a new page; all
// subsequent Draw calls land on it.
type Canvas interface {
	BeginPage(pass Pass, index int)
	Draw(op Op)
}

// Recorder is a Canvas that keeps every instruction in memory.
// It is not safe for concurrent use.
type Recorder struct {
	deck Deck
}

// NewRecorder creates a recorder for pages of the given size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{deck: Deck{Width: width, Height: height}}
}

// BeginPage implements Canvas.
func (r *Recorder) BeginPage(pass Pass, index int) {
	r.deck.Pages = append(r.deck.Pages, Page{Pass: pass, Index: index})
}

// Draw implements Canvas. Drawing before the first page is a caller bug.
func (r *Recorder) Draw(op Op) {
	n := len(r.deck.Pages)
	if n == 0 {
		panic("canvas: Draw called before BeginPage")
	}
	r.deck.Pages[n-1].Ops = append(r.deck.Pages[n-1].Ops, op)
}

// Deck returns the recorded deck.
func (r *Recorder) Deck() *Deck {
	d := r.deck
	return &d
}

// Ensure Recorder implements Canvas.
var _ Canvas = (*Recorder)(nil)
