package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ponchocards/ponchocards/pkg/buildinfo"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/pipeline"
	"github.com/ponchocards/ponchocards/pkg/sheet"
	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/stats"
	"github.com/ponchocards/ponchocards/pkg/store"
)

const (
	maxJSONBody = 1 << 20
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfType     = "application/pdf"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// =============================================================================
// Songs
// =============================================================================

type pageResponse struct {
	*store.Page
	TotalPages int `json:"total_pages"`
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.store.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Page: page, TotalPages: page.TotalPages()})
}

// parseQuery reads page, page_size, search, year, sort and order.
func parseQuery(r *http.Request) (store.Query, error) {
	v := r.URL.Query()
	var q store.Query
	var err error

	if q.Page, err = intParam(v.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(v.Get("page_size"), "page_size"); err != nil {
		return q, err
	}
	if y := v.Get("year"); y != "" {
		year, err := intParam(y, "year")
		if err != nil {
			return q, err
		}
		q.Year = &year
	}
	q.Search = v.Get("search")
	q.Sort = store.SortField(v.Get("sort"))

	switch strings.ToLower(v.Get("order")) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return q, errors.New(errors.ErrCodeInvalidQuery, "order must be asc or desc (got %q)", v.Get("order"))
	}
	return q.Normalize()
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidQuery, "%s must be an integer (got %q)", name, v)
	}
	return n, nil
}

func songID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid song id %q", raw)
	}
	return id, nil
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (song.Record, error) {
	var rec song.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&rec); err != nil {
		return rec, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid song body")
	}
	return rec, nil
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sg, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sg, err := s.store.Create(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/songs/%d", sg.ID))
	writeJSON(w, http.StatusCreated, sg)
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := decodeRecord(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sg, err := s.store.Update(r.Context(), id, rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id, err := songID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Spreadsheets and statistics
// =============================================================================

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := store.Export(r.Context(), s.store, &buf)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Song-Count", strconv.Itoa(n))
	writeFile(w, xlsxType, sheet.ExportFilename(s.now()), buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := s.upload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := store.Import(r.Context(), s.store, bytes.NewReader(data))
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("imported songs", "imported", res.Imported, "skipped", len(res.Skipped))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	songs, err := s.store.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(songs, limit))
}

// upload returns the "file" part of a multipart form, or the raw body for
// any other content type.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid upload")
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "missing form file \"file\"")
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read upload")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty upload")
	}
	return data, nil
}

// =============================================================================
// Decks
// =============================================================================

// handleDeckUpload prints an uploaded workbook. Rows only need artist and
// title; a missing link prints the no-code fallback.
func (s *Server) handleDeckUpload(w http.ResponseWriter, r *http.Request) {
	data, err := s.upload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := sheet.Read(bytes.NewReader(data), sheet.ModeDeck)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(res.Records) == 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidSheet,
			"no printable rows found (%d skipped); every row needs ARTISTA and CANCION", len(res.Skipped)))
		return
	}
	w.Header().Set("X-Skipped-Rows", strconv.Itoa(len(res.Skipped)))
	s.renderDeck(w, r, res.Records)
}

// handleDeckCatalog prints every song in the catalog.
func (s *Server) handleDeckCatalog(w http.ResponseWriter, r *http.Request) {
	songs, err := s.store.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	records := make([]song.Record, len(songs))
	for i, sg := range songs {
		records[i] = sg.Record
	}
	s.renderDeck(w, r, records)
}

func (s *Server) renderDeck(w http.ResponseWriter, r *http.Request, records []song.Record) {
	opts, err := s.deckOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), records, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	pdf, ok := res.Artifact(pipeline.DefaultFormat)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeInternal, "pdf was not rendered"))
		return
	}
	w.Header().Set("X-Deck-Pages", strconv.Itoa(res.Stats.Pages))
	w.Header().Set("X-Deck-Code-Failures", strconv.Itoa(res.Stats.CodeFailures))
	writeFile(w, pdfType, pdf.Name, pdf.Data)
}

// deckOptions applies the ordinals, mirror and placeholder query
// parameters over the server defaults.
func (s *Server) deckOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.deck
	v := r.URL.Query()
	for name, dst := range map[string]*bool{"ordinals": &opts.ShowOrdinals, "mirror": &opts.Mirror} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidQuery, "%s must be true or false (got %q)", name, raw)
		}
		*dst = b
	}
	if v.Has("placeholder") {
		opts.YearPlaceholder = v.Get("placeholder")
	}
	return opts, nil
}
