// Package song defines the song record shared by the deck engine, the
// spreadsheet reader and the catalog store.
package song

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ponchocards/ponchocards/pkg/errors"
)

// Record is one song entry to be printed onto a pair of cards.
// Year is nil when absent or unparsable. Link is semantically a URL but is
// never validated as one.
type Record struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Year   *int   `json:"year"`
	Link   string `json:"youtube_url"`
}

// Song is a Record persisted in the catalog.
type Song struct {
	ID int64 `json:"id"`
	Record
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Sanitize returns a copy with surrounding whitespace removed from every
// text field.
func (r Record) Sanitize() Record {
	r.Artist = strings.TrimSpace(r.Artist)
	r.Title = strings.TrimSpace(r.Title)
	r.Link = strings.TrimSpace(r.Link)
	if r.Year != nil {
		y := *r.Year
		r.Year = &y
	}
	return r
}

// Validate checks the catalog requirements: artist, title and link are
// non-empty after trimming and the year, if present, is in range.
func (r Record) Validate() error {
	if err := errors.ValidateField("artist", strings.TrimSpace(r.Artist)); err != nil {
		return err
	}
	if err := errors.ValidateField("title", strings.TrimSpace(r.Title)); err != nil {
		return err
	}
	if err := errors.ValidateField("youtube_url", strings.TrimSpace(r.Link)); err != nil {
		return err
	}
	return errors.ValidateYear(r.Year)
}

// HasLink reports whether the record carries something to encode.
func (r Record) HasLink() bool {
	return strings.TrimSpace(r.Link) != ""
}

// YearText renders the year for the data face. A nil year renders
// placeholder verbatim.
func (r Record) YearText(placeholder string) string {
	if r.Year == nil {
		return placeholder
	}
	return strconv.Itoa(*r.Year)
}

// Year returns a pointer to y, for building records in code.
func Year(y int) *int { return &y }

// ParseYear parses a spreadsheet or form value into a year.
//
// Numeric values are truncated ("1985.7" -> 1985). Other strings yield
// their leading integer ("1985 (remaster)" -> 1985). Blank, non-numeric
// and out-of-range (outside 0-9999) values yield nil.
func ParseYear(raw string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || f < 0 || f >= 10000 {
			return nil
		}
		y := int(f)
		return &y
	}

	end := 0
	for i, r := range s {
		if i == 0 && (r == '-' || r == '+') {
			end = 1
			continue
		}
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			break
		}
		end = i + 1
	}
	if n, err := strconv.Atoi(s[:end]); err == nil && errors.ValidateYear(&n) == nil {
		return &n
	}
	return nil
}
