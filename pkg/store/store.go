// Package store defines the song catalog persistence contract.
//
// Backends live in subpackages: sqlite (the default, a local file) and
// mongo (a shared document store). Both honor the same query semantics:
//
//   - Search is a case-insensitive substring match over artist, title and
//     link.
//   - Year filters to an exact release year.
//   - Sort orders by id, artist, title or year; ties fall back to id so
//     pagination is stable.
//   - The link is unique. BulkUpsert uses it as the conflict key.
package store

import (
	"context"
	"strings"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// Paging limits.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortField names a sortable column.
type SortField string

const (
	SortID     SortField = "id"
	SortArtist SortField = "artist"
	SortTitle  SortField = "title"
	SortYear   SortField = "year"
)

// Store persists songs. Implementations must be safe for concurrent use.
type Store interface {
	// List returns one page of songs matching q.
	List(ctx context.Context, q Query) (*Page, error)

	// Get returns a song by id, or a NOT_FOUND error.
	Get(ctx context.Context, id int64) (*song.Song, error)

	// Create inserts a song. A duplicate link is a CONFLICT error.
	Create(ctx context.Context, r song.Record) (*song.Song, error)

	// Update replaces every field of a song.
	Update(ctx context.Context, id int64, r song.Record) (*song.Song, error)

	// Delete removes a song, or returns NOT_FOUND.
	Delete(ctx context.Context, id int64) error

	// BulkUpsert inserts records or updates the song with the same link,
	// all or nothing. It returns the number of records written.
	BulkUpsert(ctx context.Context, records []song.Record) (int, error)

	// All returns every song ordered by id.
	All(ctx context.Context) ([]song.Song, error)

	Close() error
}

// Query selects a page of songs.
type Query struct {
	// Page is 1-based.
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Search   string    `json:"search,omitempty"`
	Year     *int      `json:"year,omitempty"`
	Sort     SortField `json:"sort,omitempty"`
	Desc     bool      `json:"desc,omitempty"`
}

// Normalize applies defaults and limits. Unknown sort fields are an
// INVALID_QUERY error.
func (q Query) Normalize() (Query, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)

	sort := SortField(strings.ToLower(strings.TrimSpace(string(q.Sort))))
	switch sort {
	case "":
		q.Sort = SortID
	case SortID, SortArtist, SortTitle, SortYear:
		q.Sort = sort
	default:
		return q, errors.New(errors.ErrCodeInvalidQuery,
			"unknown sort field %q (want id, artist, title or year)", q.Sort)
	}
	return q, nil
}

// Offset is the number of rows before the requested page.
func (q Query) Offset() int { return (q.Page - 1) * q.PageSize }

// Page is one page of a listing.
type Page struct {
	Songs    []song.Song `json:"songs"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// TotalPages is the number of pages the full listing spans.
func (p *Page) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// NotFound is the error backends return for a missing id.
func NotFound(id int64) error {
	return errors.New(errors.ErrCodeNotFound, "song %d not found", id)
}

// Conflict is the error backends return for a duplicate link.
func Conflict(link string) error {
	return errors.New(errors.ErrCodeConflict, "a song with link %q already exists", link)
}

// Prepare sanitizes and validates a record before it is written.
func Prepare(r song.Record) (song.Record, error) {
	r = r.Sanitize()
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

// PrepareAll prepares records for BulkUpsert. When several records share a
// link the last one wins, keeping the first one's position.
func PrepareAll(records []song.Record) ([]song.Record, error) {
	out := make([]song.Record, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, r := range records {
		p, err := Prepare(r)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "record %d", i+1)
		}
		if at, dup := seen[p.Link]; dup {
			out[at] = p
			continue
		}
		seen[p.Link] = len(out)
		out = append(out, p)
	}
	return out, nil
}
