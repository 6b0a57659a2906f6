package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/pipeline"
	"github.com/ponchocards/ponchocards/pkg/sheet"
	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/stats"
	"github.com/ponchocards/ponchocards/pkg/store"
	"github.com/ponchocards/ponchocards/pkg/store/sqlite"
)

const testToken = "s3cret"

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	store *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := log.New(io.Discard)
	s, err := New(Config{
		Store:      st,
		Runner:     pipeline.NewRunner(nil, nil, logger),
		Deck:       pipeline.DefaultOptions(),
		AdminToken: testToken,
		Logger:     logger,
	})
	require.NoError(t, err)

	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return &testServer{t: t, srv: hs, store: st}
}

func (ts *testServer) do(method, path string, body io.Reader, contentType string) *http.Response {
	ts.t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, body)
	require.NoError(ts.t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) json(method, path string, v any) *http.Response {
	ts.t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(ts.t, err)
		body = bytes.NewReader(data)
	}
	return ts.do(method, path, body, "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func assertError(t *testing.T, resp *http.Response, status int, code errors.Code) {
	t.Helper()
	assert.Equal(t, status, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, string(code), body.Code)
	assert.NotEmpty(t, body.Message)
}

func workbook(t *testing.T, songs []song.Song) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, sheet.Write(&buf, songs))
	return buf.Bytes()
}

func multipartBody(t *testing.T, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "songs.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestNewRequiresToken(t *testing.T) {
	st, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	defer st.Close()

	_, err = New(Config{Store: st})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))

	_, err = New(Config{AdminToken: "x"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(HeaderRequestID))
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong token", "Bearer nope"},
		{"wrong scheme", "Basic " + testToken},
		{"empty bearer", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/songs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assertError(t, resp, http.StatusUnauthorized, errors.ErrCodeUnauthorized)
		})
	}

	resp := ts.do(http.MethodGet, "/api/songs", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSongLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.json(http.MethodPost, "/api/songs", song.Record{
		Artist: "Soda Stereo", Title: "Zoom", Year: song.Year(1995), Link: "https://youtu.be/z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[song.Song](t, resp)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "/api/songs/1", resp.Header.Get("Location"))

	resp = ts.json(http.MethodPost, "/api/songs", song.Record{Artist: "X", Title: "Y", Link: "https://youtu.be/z"})
	assertError(t, resp, http.StatusConflict, errors.ErrCodeConflict)

	resp = ts.json(http.MethodPost, "/api/songs", song.Record{Artist: "X", Link: "https://youtu.be/q"})
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	resp = ts.json(http.MethodGet, "/api/songs/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Zoom", decode[song.Song](t, resp).Title)

	resp = ts.json(http.MethodPut, "/api/songs/1", song.Record{Artist: "Soda Stereo", Title: "Zoom (Live)", Link: "https://youtu.be/z"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[song.Song](t, resp)
	assert.Equal(t, "Zoom (Live)", updated.Title)
	assert.Nil(t, updated.Year)

	resp = ts.json(http.MethodDelete, "/api/songs/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.json(http.MethodGet, "/api/songs/1", nil)
	assertError(t, resp, http.StatusNotFound, errors.ErrCodeNotFound)

	resp = ts.json(http.MethodGet, "/api/songs/abc", nil)
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodPost, "/api/songs", strings.NewReader("{"), "application/json")
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func seedSongs(t *testing.T, ts *testServer) {
	t.Helper()
	_, err := ts.store.BulkUpsert(context.Background(), []song.Record{
		{Artist: "Soda Stereo", Title: "De Música Ligera", Year: song.Year(1990), Link: "https://youtu.be/a"},
		{Artist: "Caifanes", Title: "La Negra Tomasa", Year: song.Year(1988), Link: "https://youtu.be/b"},
		{Artist: "Soda Stereo", Title: "Persiana Americana", Year: song.Year(1986), Link: "https://youtu.be/c"},
	})
	require.NoError(t, err)
}

func TestListSongs(t *testing.T) {
	ts := newTestServer(t)
	seedSongs(t, ts)

	resp := ts.json(http.MethodGet, "/api/songs?search=soda&sort=year&order=desc&page_size=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[struct {
		Songs      []song.Song `json:"songs"`
		Total      int         `json:"total"`
		Page       int         `json:"page"`
		PageSize   int         `json:"page_size"`
		TotalPages int         `json:"total_pages"`
	}](t, resp)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.PageSize)
	require.Len(t, page.Songs, 1)
	assert.Equal(t, "De Música Ligera", page.Songs[0].Title)

	resp = ts.json(http.MethodGet, "/api/songs?year=1988", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[store.Page](t, resp).Total)

	for _, q := range []string{"sort=plays", "order=sideways", "page=x", "year=next"} {
		resp = ts.json(http.MethodGet, "/api/songs?"+q, nil)
		assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidQuery)
	}
}

func TestImportAndExport(t *testing.T) {
	ts := newTestServer(t)

	data := workbook(t, []song.Song{
		{Record: song.Record{Artist: "Maná", Title: "Oye Mi Amor", Year: song.Year(1992), Link: "https://youtu.be/m"}},
		{Record: song.Record{Artist: "Zoé", Title: "Labios Rotos", Link: ""}},
	})
	body, ct := multipartBody(t, data)
	resp := ts.do(http.MethodPost, "/api/songs/import", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[store.ImportResult](t, resp)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Row)

	// Raw body upload works too.
	resp = ts.do(http.MethodPost, "/api/songs/import", bytes.NewReader(data), "application/octet-stream")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/songs/export", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ponchocards-canciones-")
	assert.Equal(t, "1", resp.Header.Get("X-Song-Count"))

	exported, err := sheet.Read(resp.Body, sheet.ModeCatalog)
	require.NoError(t, err)
	require.Len(t, exported.Records, 1)
	assert.Equal(t, "Maná", exported.Records[0].Artist)
}

func TestImportRejectsEmptyWorkbook(t *testing.T) {
	ts := newTestServer(t)
	data := workbook(t, []song.Song{{Record: song.Record{Artist: "A", Title: "No link"}}})
	body, ct := multipartBody(t, data)
	resp := ts.do(http.MethodPost, "/api/songs/import", body, ct)
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidSheet)

	resp = ts.do(http.MethodPost, "/api/songs/import", strings.NewReader("not a workbook"), "application/octet-stream")
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidSheet)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	seedSongs(t, ts)

	resp := ts.json(http.MethodGet, "/api/stats?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[stats.Statistics](t, resp)
	assert.Equal(t, 3, st.TotalSongs)
	require.Len(t, st.ArtistsMostCommon, 1)
	assert.Equal(t, stats.Entry{Label: "Soda Stereo", Count: 2}, st.ArtistsMostCommon[0])
}

func TestDeckFromUpload(t *testing.T) {
	ts := newTestServer(t)
	data := workbook(t, []song.Song{
		{Record: song.Record{Artist: "Maná", Title: "Oye Mi Amor", Year: song.Year(1992), Link: "https://youtu.be/m"}},
		{Record: song.Record{Artist: "Zoé", Title: "Labios Rotos"}},
		{Record: song.Record{Artist: "", Title: ""}},
	})
	body, ct := multipartBody(t, data)
	resp := ts.do(http.MethodPost, "/api/deck?ordinals=true", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pdfType, resp.Header.Get("Content-Type"))
	assert.Equal(t, "2", resp.Header.Get("X-Deck-Pages"))
	assert.Equal(t, "0", resp.Header.Get("X-Skipped-Rows"))

	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	body, ct = multipartBody(t, data)
	resp = ts.do(http.MethodPost, "/api/deck?mirror=maybe", body, ct)
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidQuery)
}

func TestDeckFromCatalog(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/deck/catalog", nil, "")
	assertError(t, resp, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	seedSongs(t, ts)
	resp = ts.do(http.MethodGet, "/api/deck/catalog", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ponchocards.pdf")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodGet, "/nope", nil, "")
	assertError(t, resp, http.StatusNotFound, errors.ErrCodeNotFound)
}

func TestBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearer(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearer(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
