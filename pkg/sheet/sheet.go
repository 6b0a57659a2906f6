// Package sheet reads song spreadsheets and writes catalog exports.
//
// A sheet is the first worksheet of an .xlsx workbook. Its first non-blank
// row is the header; columns are matched by name, case-insensitively, so
// column order does not matter:
//
//	ARTISTA | ARTIST                 artist (required)
//	CANCION | TITLE | SONG           title (required)
//	LANZAMIENTO | YEAR               release year (optional)
//	YOUTUBE | LINK | YOUTUBE_URL     video link
package sheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// SheetName is the worksheet name used for exports.
const SheetName = "Canciones"

// Export header row.
var Header = []string{"ARTISTA", "CANCION", "LANZAMIENTO", "YOUTUBE"}

// Mode selects which fields a row needs to be accepted.
type Mode int

const (
	// ModeCatalog requires artist, title and link, as the catalog does.
	ModeCatalog Mode = iota
	// ModeDeck requires artist and title. A blank link prints the
	// no-code fallback.
	ModeDeck
)

type column int

const (
	colArtist column = iota
	colTitle
	colYear
	colLink
)

var aliases = map[string]column{
	"ARTISTA":     colArtist,
	"ARTIST":      colArtist,
	"CANCION":     colTitle,
	"CANCIÓN":     colTitle,
	"TITLE":       colTitle,
	"SONG":        colTitle,
	"LANZAMIENTO": colYear,
	"YEAR":        colYear,
	"YOUTUBE":     colLink,
	"LINK":        colLink,
	"YOUTUBE_URL": colLink,
	"URL":         colLink,
}

// SkippedRow is a non-blank row that lacked a required field.
type SkippedRow struct {
	// Row is the 1-based row number as shown by spreadsheet programs.
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result is the outcome of reading a sheet.
type Result struct {
	Records []song.Record `json:"records"`
	Skipped []SkippedRow  `json:"skipped,omitempty"`
}

// Read parses the first worksheet of an .xlsx workbook. Blank rows are
// ignored; rows missing a field the mode requires are skipped and listed in
// the result. A workbook without the required header columns is an
// INVALID_SHEET error.
func Read(r io.Reader, mode Mode) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSheet, err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSheet, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSheet, err, "read sheet %q", sheets[0])
	}
	return parseRows(rows, mode)
}

func parseRows(rows [][]string, mode Mode) (*Result, error) {
	headerAt := -1
	for i, row := range rows {
		if !blank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, errors.New(errors.ErrCodeInvalidSheet, "sheet is empty")
	}

	idx, err := mapHeader(rows[headerAt], mode)
	if err != nil {
		return nil, err
	}

	res := &Result{Records: []song.Record{}}
	for i := headerAt + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		rec := song.Record{
			Artist: idx.cell(row, colArtist),
			Title:  idx.cell(row, colTitle),
			Link:   idx.cell(row, colLink),
			Year:   song.ParseYear(idx.cell(row, colYear)),
		}

		if missing := missingFields(rec, mode); len(missing) > 0 {
			res.Skipped = append(res.Skipped, SkippedRow{
				Row:    i + 1,
				Reason: "missing " + strings.Join(missing, ", "),
			})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// columns maps each recognized column to its position in the header.
type columns map[column]int

func mapHeader(header []string, mode Mode) (columns, error) {
	idx := make(columns)
	for i, name := range header {
		c, ok := aliases[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}

	var missing []string
	if _, ok := idx[colArtist]; !ok {
		missing = append(missing, "ARTISTA")
	}
	if _, ok := idx[colTitle]; !ok {
		missing = append(missing, "CANCION")
	}
	if _, ok := idx[colLink]; !ok && mode == ModeCatalog {
		missing = append(missing, "YOUTUBE")
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidSheet,
			"sheet is missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func missingFields(r song.Record, mode Mode) []string {
	var missing []string
	if r.Artist == "" {
		missing = append(missing, "artist")
	}
	if r.Title == "" {
		missing = append(missing, "title")
	}
	if mode == ModeCatalog && r.Link == "" {
		missing = append(missing, "link")
	}
	return missing
}

// cell returns the trimmed value of c in row, or "" when the column is
// absent or the row is short.
func (idx columns) cell(row []string, c column) string {
	i, ok := idx[c]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Write exports songs as a workbook with a single "Canciones" sheet.
// A nil year is written as an empty cell.
func Write(w io.Writer, songs []song.Song) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "B", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "D", "D", 48); err != nil {
		return err
	}

	for i, s := range songs {
		var year any = ""
		if s.Year != nil {
			year = *s.Year
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{s.Artist, s.Title, year, s.Link}
		if err := f.SetSheetRow(SheetName, cellRef, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

// ExportFilename names an export taken on day t.
func ExportFilename(t time.Time) string {
	return "ponchocards-canciones-" + t.Format("2006-01-02") + ".xlsx"
}
