// Package stats aggregates catalog statistics: totals, songs without a
// year, and the most and least common years, decades and artists.
package stats

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/ponchocards/ponchocards/pkg/song"
)

// DefaultLimit is the number of entries kept per ranking.
const DefaultLimit = 5

// Entry is one ranked label with its number of songs.
type Entry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Statistics summarizes a catalog.
type Statistics struct {
	TotalSongs         int     `json:"totalSongs"`
	MissingYearCount   int     `json:"missingYearCount"`
	YearsMostCommon    []Entry `json:"yearsMostCommon"`
	YearsLeastCommon   []Entry `json:"yearsLeastCommon"`
	DecadesLeastCommon []Entry `json:"decadesLeastCommon"`
	ArtistsMostCommon  []Entry `json:"artistsMostCommon"`
}

// Compute aggregates songs. Rankings hold at most limit entries (DefaultLimit
// when limit <= 0); ties are broken by label in ascending order. Artists are
// grouped case-insensitively and reported with the first spelling seen.
func Compute(songs []song.Song, limit int) Statistics {
	if limit <= 0 {
		limit = DefaultLimit
	}

	years := newCounter()
	decades := newCounter()
	artists := newCounter()
	missing := 0

	for _, s := range songs {
		if s.Year == nil {
			missing++
		} else {
			y := *s.Year
			years.add(strconv.Itoa(y), strconv.Itoa(y))
			d := decade(y)
			decades.add(d, d)
		}
		if a := strings.TrimSpace(s.Artist); a != "" {
			artists.add(strings.ToLower(a), a)
		}
	}

	return Statistics{
		TotalSongs:         len(songs),
		MissingYearCount:   missing,
		YearsMostCommon:    years.ranked(true, limit),
		YearsLeastCommon:   years.ranked(false, limit),
		DecadesLeastCommon: decades.ranked(false, limit),
		ArtistsMostCommon:  artists.ranked(true, limit),
	}
}

// decade labels a year by its decade, e.g. 1987 -> "1980s".
func decade(y int) string {
	d := y - ((y%10)+10)%10
	return strconv.Itoa(d) + "s"
}

type counter struct {
	labels map[string]string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{labels: map[string]string{}, counts: map[string]int{}}
}

func (c *counter) add(key, label string) {
	if _, ok := c.labels[key]; !ok {
		c.labels[key] = label
	}
	c.counts[key]++
}

func (c *counter) ranked(mostFirst bool, limit int) []Entry {
	out := make([]Entry, 0, len(c.counts))
	for k, n := range c.counts {
		out = append(out, Entry{Label: c.labels[k], Count: n})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		byCount := cmp.Compare(a.Count, b.Count)
		if mostFirst {
			byCount = -byCount
		}
		if byCount != 0 {
			return byCount
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
