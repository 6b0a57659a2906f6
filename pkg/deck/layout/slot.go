package layout

import "fmt"

// Slot addresses one printable square: a page within a pass and a grid cell
// on that page.
type Slot struct {
	Page int `json:"page"`
	Row  int `json:"row"`
	Col  int `json:"col"`
}

// Cell returns the row-major cell index of the slot for a grid with cols
// columns.
func (s Slot) Cell(cols int) int { return s.Row*cols + s.Col }

// String formats the slot as "p1 r0 c3".
func (s Slot) String() string { return fmt.Sprintf("p%d r%d c%d", s.Page, s.Row, s.Col) }

// DataSlot places the record at index on the data pass.
//
// Records fill pages in order; within a page they fill rows left to right,
// top to bottom. A negative index is a caller bug and panics.
func DataSlot(index, slotsPerPage, cols int) Slot {
	if index < 0 {
		panic(fmt.Sprintf("layout: negative record index %d", index))
	}
	local := index % slotsPerPage
	return Slot{
		Page: index / slotsPerPage,
		Row:  local / cols,
		Col:  local % cols,
	}
}

// CodeSlot places the record at index on the code pass. It shares the data
// slot's page and row; the column is reflected about the grid's vertical
// center line so that a sheet flipped left-to-right lines each code up
// behind its data face.
func CodeSlot(index, slotsPerPage, cols int) Slot {
	s := DataSlot(index, slotsPerPage, cols)
	s.Col = cols - 1 - s.Col
	return s
}

// Placement is the pair of slots a record occupies in the deck.
type Placement struct {
	Index int  `json:"index"`
	Data  Slot `json:"data"`
	Code  Slot `json:"code"`
}

// Plan computes placements for n records. When mirror is false the code
// face reuses the data column, for single-sided sheets that are cut and
// paired by hand.
func (g Geometry) Plan(n int, mirror bool) []Placement {
	if n <= 0 {
		return nil
	}
	per := g.SlotsPerPage()
	out := make([]Placement, n)
	for i := range out {
		p := Placement{Index: i, Data: DataSlot(i, per, g.Cols)}
		if mirror {
			p.Code = CodeSlot(i, per, g.Cols)
		} else {
			p.Code = p.Data
		}
		out[i] = p
	}
	return out
}
