package sheet

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// workbook builds an .xlsx in memory with rows written from A1.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow(sheet, ref, &r); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestReadCatalog(t *testing.T) {
	buf := workbook(t, [][]any{
		{"artista", "Cancion", "LANZAMIENTO", "YouTube"},
		{"Soda Stereo", "Persiana Americana", 1986, "https://youtu.be/a"},
		{"  Charly García ", "Demoliendo Hoteles", "1984 (remaster)", "https://youtu.be/b"},
		{"", "", "", ""},
		{"Los Prisioneros", "", 1986, "https://youtu.be/c"},
		{"Café Tacvba", "Eres", "unknown", "https://youtu.be/d"},
		{"Sin Link", "Canción", 2000, ""},
	})

	res, err := Read(buf, ModeCatalog)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := []song.Record{
		{Artist: "Soda Stereo", Title: "Persiana Americana", Year: song.Year(1986), Link: "https://youtu.be/a"},
		{Artist: "Charly García", Title: "Demoliendo Hoteles", Year: song.Year(1984), Link: "https://youtu.be/b"},
		{Artist: "Café Tacvba", Title: "Eres", Link: "https://youtu.be/d"},
	}
	if !reflect.DeepEqual(res.Records, want) {
		t.Errorf("records = %+v\nwant %+v", res.Records, want)
	}

	wantSkipped := []SkippedRow{
		{Row: 5, Reason: "missing title"},
		{Row: 7, Reason: "missing link"},
	}
	if !reflect.DeepEqual(res.Skipped, wantSkipped) {
		t.Errorf("skipped = %+v, want %+v", res.Skipped, wantSkipped)
	}
}

func TestReadDeckModeAllowsBlankLink(t *testing.T) {
	buf := workbook(t, [][]any{
		{"ARTIST", "TITLE"},
		{"Sin Link", "Canción"},
		{"", "Solo título"},
	})
	res, err := Read(buf, ModeDeck)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Link != "" || res.Records[0].Year != nil {
		t.Errorf("records = %+v", res.Records)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "missing artist" {
		t.Errorf("skipped = %+v", res.Skipped)
	}
}

func TestReadHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
		mode Mode
	}{
		{"empty", nil, ModeDeck},
		{"missing link for catalog", [][]any{{"ARTISTA", "CANCION", "LANZAMIENTO"}}, ModeCatalog},
		{"missing title", [][]any{{"ARTISTA", "YOUTUBE"}}, ModeDeck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(workbook(t, tt.rows), tt.mode)
			if !errors.Is(err, errors.ErrCodeInvalidSheet) {
				t.Errorf("err = %v, want INVALID_SHEET", err)
			}
		})
	}
}

func TestReadNotAWorkbook(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("artist,title\n")), ModeDeck)
	if !errors.Is(err, errors.ErrCodeInvalidSheet) {
		t.Errorf("err = %v, want INVALID_SHEET", err)
	}
}

func TestReadHeaderAfterBlankRows(t *testing.T) {
	buf := workbook(t, [][]any{
		{""},
		{"YOUTUBE", "ARTISTA", "CANCION"},
		{"https://youtu.be/x", "A", "T"},
	})
	res, err := Read(buf, ModeCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || res.Records[0].Link != "https://youtu.be/x" || res.Records[0].Artist != "A" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestWriteThenRead(t *testing.T) {
	songs := []song.Song{
		{ID: 1, Record: song.Record{Artist: "A", Title: "T1", Year: song.Year(1999), Link: "https://youtu.be/1"}},
		{ID: 2, Record: song.Record{Artist: "B", Title: "T2", Link: "https://youtu.be/2"}},
	}
	var buf bytes.Buffer
	if err := Write(&buf, songs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetName}) {
		t.Errorf("sheets = %v", got)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "1999" {
		t.Errorf("year cell = %q", rows[1][2])
	}
	if rows[2][2] != "" {
		t.Errorf("null year cell = %q, want empty", rows[2][2])
	}

	res, err := Read(bytes.NewReader(buf.Bytes()), ModeCatalog)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 || res.Records[1].Year != nil {
		t.Errorf("reimported = %+v", res.Records)
	}
}

func TestWriteFormatting(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	id, err := f.GetCellStyle(SheetName, "A1")
	if err != nil {
		t.Fatal(err)
	}
	style, err := f.GetStyle(id)
	if err != nil {
		t.Fatal(err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Errorf("header font = %+v, want bold", style.Font)
	}
	for col, want := range map[string]float64{"A": 32, "B": 32, "D": 48} {
		if got, err := f.GetColWidth(SheetName, col); err != nil || got != want {
			t.Errorf("column %s width = %v (%v), want %v", col, got, err, want)
		}
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename(time.Date(2025, 3, 7, 22, 0, 0, 0, time.UTC))
	if got != "ponchocards-canciones-2025-03-07.xlsx" {
		t.Errorf("ExportFilename = %s", got)
	}
}
