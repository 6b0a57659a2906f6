package layout

import (
	"math"
	"testing"

	"github.com/ponchocards/ponchocards/pkg/errors"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDefaultGeometryMargins(t *testing.T) {
	g := DefaultGeometry()
	if err := g.Validate(); err != nil {
		t.Fatalf("default geometry invalid: %v", err)
	}

	// 4*48 + 3*4 = 204
	if !approx(g.GridWidth(), 204) || !approx(g.GridHeight(), 204) {
		t.Errorf("grid = %vx%v, want 204x204", g.GridWidth(), g.GridHeight())
	}
	if !approx(g.MarginX(), (215.9-204)/2) {
		t.Errorf("MarginX = %v", g.MarginX())
	}
	if !approx(g.MarginY(), (279.4-204)/2) {
		t.Errorf("MarginY = %v", g.MarginY())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *Geometry)
		wantErr bool
	}{
		{"default", func(g *Geometry) {}, false},
		{"exact fit", func(g *Geometry) { g.PageWidth = 204; g.PageHeight = 204 }, false},
		{"zero gap", func(g *Geometry) { g.Gap = 0 }, false},
		{"too wide", func(g *Geometry) { g.Cols = 5 }, true},
		{"too tall", func(g *Geometry) { g.Rows = 6 }, true},
		{"cards too big", func(g *Geometry) { g.CardSize = 60 }, true},
		{"zero card", func(g *Geometry) { g.CardSize = 0 }, true},
		{"zero cols", func(g *Geometry) { g.Cols = 0 }, true},
		{"negative gap", func(g *Geometry) { g.Gap = -1 }, true},
		{"zero page", func(g *Geometry) { g.PageHeight = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGeometry()
			tt.mutate(&g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidGeometry) {
				t.Errorf("expected INVALID_GEOMETRY, got %v", err)
			}
		})
	}
}

func TestValidateNamesConstraint(t *testing.T) {
	g := DefaultGeometry()
	g.Cols = 5
	err := g.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	want := "grid exceeds page bounds: 5 columns need 256.0mm but page width is 215.9mm"
	if got := errors.UserMessage(err); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestTotalPages(t *testing.T) {
	g := DefaultGeometry()
	tests := []struct{ n, want int }{
		{0, 0}, {-3, 0}, {1, 1}, {15, 1}, {16, 1}, {17, 2}, {32, 2}, {33, 3},
	}
	for _, tt := range tests {
		if got := g.TotalPages(tt.n); got != tt.want {
			t.Errorf("TotalPages(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestDataSlot(t *testing.T) {
	tests := []struct {
		index int
		want  Slot
	}{
		{0, Slot{0, 0, 0}},
		{3, Slot{0, 0, 3}},
		{4, Slot{0, 1, 0}},
		{15, Slot{0, 3, 3}},
		{16, Slot{1, 0, 0}},
		{21, Slot{1, 1, 1}},
	}
	for _, tt := range tests {
		if got := DataSlot(tt.index, 16, 4); got != tt.want {
			t.Errorf("DataSlot(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestDataSlotNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("DataSlot(-1) should panic")
		}
	}()
	DataSlot(-1, 16, 4)
}

func TestMirrorInvariant(t *testing.T) {
	geometries := []struct{ cols, rows int }{{4, 4}, {3, 5}, {1, 1}, {5, 2}}
	for _, gr := range geometries {
		per := gr.cols * gr.rows
		for i := 0; i < 3*per+1; i++ {
			d := DataSlot(i, per, gr.cols)
			c := CodeSlot(i, per, gr.cols)
			if d.Page != c.Page || d.Row != c.Row {
				t.Fatalf("%dx%d index %d: data %v code %v differ in page/row", gr.cols, gr.rows, i, d, c)
			}
			if d.Col+c.Col != gr.cols-1 {
				t.Fatalf("%dx%d index %d: cols %d + %d != %d", gr.cols, gr.rows, i, d.Col, c.Col, gr.cols-1)
			}
		}
	}
}

func TestSlotsUniquePerPage(t *testing.T) {
	g := Geometry{PageWidth: 300, PageHeight: 300, CardSize: 40, Cols: 3, Rows: 2, Gap: 2}
	seen := map[Slot]int{}
	for _, p := range g.Plan(25, true) {
		if prev, ok := seen[p.Data]; ok {
			t.Fatalf("records %d and %d share slot %v", prev, p.Index, p.Data)
		}
		seen[p.Data] = p.Index
		if cell := p.Data.Cell(g.Cols); cell < 0 || cell >= g.SlotsPerPage() {
			t.Fatalf("cell %d out of range", cell)
		}
	}
}

func TestSeventeenthRecord(t *testing.T) {
	g := Geometry{PageWidth: 215.9, PageHeight: 279.4, CardSize: 48, Cols: 4, Rows: 4, Gap: 4}
	plan := g.Plan(17, true)

	if g.SlotsPerPage() != 16 || g.TotalPages(17) != 2 {
		t.Fatalf("slots=%d pages=%d", g.SlotsPerPage(), g.TotalPages(17))
	}
	last := plan[16]
	if last.Data != (Slot{Page: 1, Row: 0, Col: 0}) {
		t.Errorf("data slot = %v", last.Data)
	}
	if last.Code != (Slot{Page: 1, Row: 0, Col: 3}) {
		t.Errorf("code slot = %v", last.Code)
	}
}

func TestPlanWithoutMirror(t *testing.T) {
	g := DefaultGeometry()
	for _, p := range g.Plan(20, false) {
		if p.Code != p.Data {
			t.Fatalf("index %d: code %v != data %v", p.Index, p.Code, p.Data)
		}
	}
	if g.Plan(0, true) != nil {
		t.Error("Plan(0) should be nil")
	}
}

func TestOrigin(t *testing.T) {
	g := DefaultGeometry()
	x, y := g.Origin(Slot{Row: 2, Col: 1})
	if !approx(x, g.MarginX()+52) || !approx(y, g.MarginY()+104) {
		t.Errorf("Origin = (%v, %v)", x, y)
	}
	cx, cy := g.Center(Slot{})
	if !approx(cx, g.MarginX()+24) || !approx(cy, g.MarginY()+24) {
		t.Errorf("Center = (%v, %v)", cx, cy)
	}
}
