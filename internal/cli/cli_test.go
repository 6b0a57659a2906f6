package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ponchocards/ponchocards/pkg/config"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/sheet"
	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/stats"
	"github.com/ponchocards/ponchocards/pkg/store"
)

// testEnv isolates XDG directories and captures styled output.
type testEnv struct {
	t    *testing.T
	cli  *CLI
	base string
	out  *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv(config.EnvAdminToken, "")

	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })

	return &testEnv{t: t, cli: New(io.Discard, LogInfo), base: base, out: &buf}
}

// run executes one command line and returns what the command wrote to its
// cobra output.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := e.cli.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (e *testEnv) workbook(name string, songs []song.Song) string {
	e.t.Helper()
	var buf bytes.Buffer
	if err := sheet.Write(&buf, songs); err != nil {
		e.t.Fatal(err)
	}
	path := filepath.Join(e.base, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		e.t.Fatal(err)
	}
	return path
}

func (e *testEnv) listPage(args ...string) store.Page {
	e.t.Helper()
	var page store.Page
	out := e.mustRun(append([]string{"songs", "list", "--json"}, args...)...)
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		e.t.Fatalf("decode list: %v\n%s", err, out)
	}
	return page
}

func sample() []song.Song {
	return []song.Song{
		{Record: song.Record{Artist: "Soda Stereo", Title: "De Música Ligera", Year: song.Year(1990), Link: "https://youtu.be/a"}},
		{Record: song.Record{Artist: "Caifanes", Title: "La Negra Tomasa", Year: song.Year(1988), Link: "https://youtu.be/b"}},
		{Record: song.Record{Artist: "Zoé", Title: "Labios Rotos"}},
	}
}

func TestGenerateFromSpreadsheet(t *testing.T) {
	e := newTestEnv(t)
	input := e.workbook("canciones.xlsx", sample())
	outDir := filepath.Join(e.base, "out")

	e.mustRun("generate", input, "-o", outDir, "-f", "pdf, svg")

	for _, name := range []string{"canciones.pdf", "data-01.svg", "code-01.svg"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	pdf, err := os.ReadFile(filepath.Join(outDir, "canciones.pdf"))
	if err != nil || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("canciones.pdf is not a PDF (err=%v)", err)
	}
	if !strings.Contains(e.out.String(), "Printed 3 cards") {
		t.Errorf("output = %q", e.out.String())
	}
}

func TestGenerateArguments(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.run("generate"); err == nil {
		t.Error("generate without input should fail")
	}
	input := e.workbook("x.xlsx", sample())
	if _, err := e.run("generate", input, "--catalog"); err == nil {
		t.Error("file and --catalog together should fail")
	}
	_, err := e.run("generate", input, "-o", e.base, "-f", "docx")
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("unknown format: got %v", err)
	}
}

func TestGenerateNothingToPrint(t *testing.T) {
	e := newTestEnv(t)
	input := e.workbook("empty.xlsx", nil)
	outDir := filepath.Join(e.base, "out")

	e.mustRun("generate", input, "-o", outDir)

	if !strings.Contains(e.out.String(), "Nothing to print") {
		t.Errorf("output = %q", e.out.String())
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("no output directory should be created")
	}
}

func TestSongsLifecycle(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun("songs", "add", "--artist", "Caifanes", "--title", "Afuera", "--year", "1994", "--link", "https://youtu.be/x")
	page := e.listPage()
	if page.Total != 1 || page.Songs[0].Title != "Afuera" || page.Songs[0].Year == nil {
		t.Fatalf("after add: %+v", page)
	}
	id := strconv.FormatInt(page.Songs[0].ID, 10)

	_, err := e.run("songs", "add", "--artist", "Otro", "--title", "Duplicado", "--link", "https://youtu.be/x")
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("duplicate link: got %v", err)
	}

	e.mustRun("songs", "update", id, "--year", "0", "--title", "Afuera (En Vivo)")
	page = e.listPage()
	if got := page.Songs[0]; got.Year != nil || got.Title != "Afuera (En Vivo)" || got.Artist != "Caifanes" {
		t.Errorf("after update: %+v", got)
	}

	export := filepath.Join(e.base, "export.xlsx")
	e.mustRun("songs", "export", "-o", export)
	f, err := os.Open(export)
	if err != nil {
		t.Fatal(err)
	}
	res, err := sheet.Read(f, sheet.ModeCatalog)
	f.Close()
	if err != nil || len(res.Records) != 1 {
		t.Fatalf("exported sheet: %v %+v", err, res)
	}

	e.mustRun("songs", "delete", id)
	if page := e.listPage(); page.Total != 0 {
		t.Errorf("after delete: total %d", page.Total)
	}
	if _, err := e.run("songs", "delete", id); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("second delete: got %v", err)
	}

	e.mustRun("songs", "import", export)
	e.mustRun("songs", "import", e.workbook("more.xlsx", sample()))
	if !strings.Contains(e.out.String(), "Skipped 1 row") {
		t.Errorf("incomplete row not reported: %q", e.out.String())
	}
	if page := e.listPage("--sort", "year", "--desc"); page.Total != 3 || page.Songs[0].Title != "De Música Ligera" {
		t.Errorf("after import: %+v", page)
	}
	if page := e.listPage("--search", "soda"); page.Total != 1 {
		t.Errorf("search: total %d", page.Total)
	}
	if page := e.listPage("--year", "1988"); page.Total != 1 {
		t.Errorf("year filter: total %d", page.Total)
	}
	if _, err := e.run("songs", "list", "--sort", "plays"); !errors.Is(err, errors.ErrCodeInvalidQuery) {
		t.Errorf("unknown sort: got %v", err)
	}
}

func TestSongsStats(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("songs", "import", e.workbook("songs.xlsx", []song.Song{
		{Record: song.Record{Artist: "Soda Stereo", Title: "Zoom", Year: song.Year(1995), Link: "L1"}},
		{Record: song.Record{Artist: "soda stereo", Title: "Ella Usó Mi Cabeza", Year: song.Year(1995), Link: "L2"}},
		{Record: song.Record{Artist: "Caifanes", Title: "Afuera", Link: "L3"}},
	}))

	var s stats.Statistics
	if err := json.Unmarshal([]byte(e.mustRun("songs", "stats", "--json", "-n", "1")), &s); err != nil {
		t.Fatal(err)
	}
	if s.TotalSongs != 3 || s.MissingYearCount != 1 {
		t.Errorf("stats = %+v", s)
	}
	if len(s.ArtistsMostCommon) != 1 || s.ArtistsMostCommon[0] != (stats.Entry{Label: "Soda Stereo", Count: 2}) {
		t.Errorf("artists = %+v", s.ArtistsMostCommon)
	}

	e.mustRun("songs", "stats")
	if !strings.Contains(e.out.String(), "Top artists") {
		t.Errorf("styled stats missing section: %q", e.out.String())
	}
}

func TestGenerateFromCatalog(t *testing.T) {
	e := newTestEnv(t)
	outDir := filepath.Join(e.base, "out")

	e.mustRun("generate", "--catalog", "-o", outDir)
	if !strings.Contains(e.out.String(), "Nothing to print") {
		t.Errorf("empty catalog output = %q", e.out.String())
	}

	e.mustRun("songs", "add", "--artist", "Maná", "--title", "Oye Mi Amor", "--link", "https://youtu.be/m")
	e.mustRun("generate", "--catalog", "-o", outDir, "--ordinals", "--no-cache")
	if _, err := os.Stat(filepath.Join(outDir, "ponchocards.pdf")); err != nil {
		t.Error(err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("config", "init")

	path := filepath.Join(e.base, "config", appName, "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not created: %v", err)
	}
	if _, err := e.run("config", "init"); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("second init: got %v", err)
	}

	t.Setenv(config.EnvAdminToken, "top-secret")
	out := e.mustRun("config", "show")
	if strings.Contains(out, "top-secret") || !strings.Contains(out, `admin_token = "********"`) {
		t.Errorf("token not masked:\n%s", out)
	}
	if !strings.Contains(out, "[deck.geometry]") {
		t.Errorf("show output missing geometry:\n%s", out)
	}
}

func TestConfigFlag(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.base, "custom.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"none\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := e.mustRun("--config", path, "config", "show")
	if !strings.Contains(out, `backend = "none"`) {
		t.Errorf("config flag ignored:\n%s", out)
	}
	fresh := &testEnv{t: t, cli: New(io.Discard, LogInfo)}
	if _, err := fresh.run("--config", filepath.Join(e.base, "missing.toml"), "config", "show"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit config: got %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	e := newTestEnv(t)
	dir := strings.TrimSpace(e.mustRun("cache", "path"))
	if dir != filepath.Join(e.base, "cache", appName) {
		t.Errorf("cache path = %q", dir)
	}

	e.mustRun("generate", e.workbook("songs.xlsx", sample()), "-o", filepath.Join(e.base, "out"))
	e.out.Reset()
	e.mustRun("cache", "clear")
	if !strings.Contains(e.out.String(), "Cleared") {
		t.Errorf("clear output = %q", e.out.String())
	}
	e.out.Reset()
	e.mustRun("cache", "clear")
	if !strings.Contains(e.out.String(), "Cache is empty") {
		t.Errorf("second clear output = %q", e.out.String())
	}
}

func TestCompletion(t *testing.T) {
	e := newTestEnv(t)
	if out := e.mustRun("completion", "bash"); !strings.Contains(out, appName) {
		t.Error("bash completion does not mention the command")
	}
	if _, err := e.run("completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "[pdf]"},
		{"svg", "[svg]"},
		{"PDF, png ,", "[pdf png]"},
		{" , ", "[pdf]"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseFormats(tt.in), " "); "["+got+"]" != tt.want {
			t.Errorf("parseFormats(%q) = [%s], want %s", tt.in, got, tt.want)
		}
	}
}

func TestMaskURI(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"mongodb://localhost:27017", "mongodb://localhost:27017"},
		{"mongodb://admin@localhost", "mongodb://admin@localhost"},
		{"mongodb://admin:hunter2@db:27017/cards", "mongodb://admin:********@db:27017/cards"},
	}
	for _, tt := range tests {
		if got := maskURI(tt.in); got != tt.want {
			t.Errorf("maskURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
}
