// Package layout computes where cards go on printed sheets.
//
// # Overview
//
// A deck is printed in two passes over the same ordered records: the data
// pass (song text) and the code pass (QR codes). Each pass fills pages of a
// fixed grid described by [Geometry]. [DataSlot] and [CodeSlot] map a
// zero-based record index to a page, row and column; the code column is the
// mirror image of the data column so that double-sided printing, flipping
// the sheet along its long edge, puts each code behind its own data face.
//
// # Geometry
//
// The grid is centered on the page:
//
//	marginX = (pageWidth - (cols*card + (cols-1)*gap)) / 2
//
// A grid that does not fit is rejected by [Geometry.Validate] rather than
// producing negative margins.
//
// # Usage
//
//	g := layout.DefaultGeometry()
//	if err := g.Validate(); err != nil {
//	    return err
//	}
//	for _, p := range g.Plan(len(records), true) {
//	    x, y := g.Origin(p.Data)
//	    // draw the data face at (x, y) on data page p.Data.Page
//	}
//
// Everything in this package is pure computation with no retained state.
package layout
