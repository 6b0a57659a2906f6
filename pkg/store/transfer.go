package store

import (
	"context"
	"io"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/sheet"
)

// ImportResult reports a spreadsheet import.
type ImportResult struct {
	Imported int                `json:"imported"`
	Skipped  []sheet.SkippedRow `json:"skipped,omitempty"`
}

// Import reads a workbook in catalog mode and upserts every complete row.
// A workbook without a single complete row is an INVALID_SHEET error and
// writes nothing.
func Import(ctx context.Context, s Store, r io.Reader) (*ImportResult, error) {
	res, err := sheet.Read(r, sheet.ModeCatalog)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSheet,
			"no complete rows found (%d skipped); every row needs ARTISTA, CANCION and YOUTUBE", len(res.Skipped))
	}
	n, err := s.BulkUpsert(ctx, res.Records)
	if err != nil {
		return nil, err
	}
	return &ImportResult{Imported: n, Skipped: res.Skipped}, nil
}

// Export writes the whole catalog as a workbook and returns the number of
// songs written.
func Export(ctx context.Context, s Store, w io.Writer) (int, error) {
	songs, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	if err := sheet.Write(w, songs); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "write workbook")
	}
	return len(songs), nil
}
