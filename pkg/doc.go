// Package pkg provides the core libraries for ponchocards.
//
// # Overview
//
// Ponchocards prints song cards for a music guessing game. Each card has a
// data face (artist, title, year) and a code face (a QR code linking to the
// song). Faces are laid out on letter sheets, and every code sheet is mirrored
// so that duplex printing lines both faces of each card up.
//
// # Architecture
//
// The data flow from a song list to printable files:
//
//	spreadsheet / catalog
//	         ↓
//	    [sheet] or [store] (song records)
//	         ↓
//	    [deck] (pagination, mirroring, card drawing)
//	         ↓
//	    [deck/sink] (PDF, SVG, PNG, JSON)
//
// [pipeline] ties these steps together behind a cache, and [observability]
// reports on every step.
//
// # Quick Start
//
//	res, err := sheet.Read(f, sheet.ModeDeck)
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Title = "canciones"
//	result, err := runner.Execute(ctx, res.Records, opts)
//
// # Packages
//
//   - [song]: the song record and its validation
//   - [deck]: sheet layout, mirroring and card drawing
//   - [deck/layout]: pure slot and page arithmetic
//   - [deck/canvas]: the recorded drawing surface
//   - [deck/sink]: output formats
//   - [qrcode]: link to PNG code images
//   - [fonts]: embedded typefaces and text metrics
//   - [sheet]: spreadsheet import and export
//   - [store]: catalog persistence, with [store/sqlite] and [store/mongo]
//   - [stats]: catalog statistics
//   - [cache]: file, Redis and null caches
//   - [config]: TOML configuration
//   - [errors]: coded errors shared by the CLI and the admin API
//
// [song]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/song
// [deck]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/deck
// [deck/layout]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/deck/layout
// [deck/canvas]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/deck/canvas
// [deck/sink]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/deck/sink
// [qrcode]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/qrcode
// [fonts]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/fonts
// [sheet]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/sheet
// [store]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/store
// [store/sqlite]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/store/sqlite
// [store/mongo]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/store/mongo
// [stats]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/stats
// [cache]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/cache
// [config]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/config
// [errors]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/errors
// [pipeline]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/ponchocards/ponchocards/pkg/observability
package pkg
