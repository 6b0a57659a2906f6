// Package deck turns an ordered list of song records into a printable,
// two-pass card deck.
//
// # Passes
//
// Every deck is emitted as all data pages followed by all code pages. The
// data pass prints each record's title, year and artist; the code pass
// prints a QR code of its link. Page and slot assignment comes from
// [layout.Geometry]; with mirroring enabled a code lands on the column that
// sits behind its data face once the sheet is flipped on its long edge.
//
// # Code outcomes
//
// A card with a blank link prints the [NoCodeLabel]; a card whose image
// could not be generated prints the [CodeUnavailableLabel]. Neither aborts
// the deck: failures are logged, counted in [Stats] and reported to the
// observability hooks.
//
// # Usage
//
//	eng, err := deck.New(deck.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	d, stats, err := eng.Generate(ctx, records)
//	if err != nil {
//	    return err
//	}
//	pdf, err := sink.RenderPDF(d)
//
// [Engine.Draw] emits into any [canvas.Canvas]; [Engine.Generate] records
// into memory for the sinks in package sink.
package deck
