package store

import (
	"testing"

	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/song"
)

func TestQueryNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Query
		want    Query
		wantErr bool
	}{
		{"defaults", Query{}, Query{Page: 1, PageSize: 10, Sort: SortID}, false},
		{"clamp", Query{Page: 3, PageSize: 500}, Query{Page: 3, PageSize: 100, Sort: SortID}, false},
		{"sort case", Query{Sort: " Year ", Desc: true}, Query{Page: 1, PageSize: 10, Sort: SortYear, Desc: true}, false},
		{"trim search", Query{Search: "  soda "}, Query{Page: 1, PageSize: 10, Search: "soda", Sort: SortID}, false},
		{"bad sort", Query{Sort: "created_at"}, Query{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidQuery) {
					t.Errorf("want INVALID_QUERY, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOffsetAndTotalPages(t *testing.T) {
	if got := (Query{Page: 3, PageSize: 10}).Offset(); got != 20 {
		t.Errorf("Offset = %d", got)
	}
	for _, tt := range []struct{ total, size, want int }{
		{0, 10, 0}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {5, 0, 0},
	} {
		p := Page{Total: tt.total, PageSize: tt.size}
		if got := p.TotalPages(); got != tt.want {
			t.Errorf("TotalPages(%d/%d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestPrepareAll(t *testing.T) {
	recs := []song.Record{
		{Artist: " A ", Title: "one", Link: "l1"},
		{Artist: "B", Title: "two", Link: "l2"},
		{Artist: "A", Title: "one (live)", Link: " l1"},
	}
	got, err := PrepareAll(recs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "one (live)" || got[0].Artist != "A" || got[1].Link != "l2" {
		t.Errorf("got %+v", got)
	}

	_, err = PrepareAll([]song.Record{{Artist: "A", Title: "T"}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing link err = %v", err)
	}
}

func TestErrorHelpers(t *testing.T) {
	if !errors.Is(NotFound(7), errors.ErrCodeNotFound) {
		t.Error("NotFound code")
	}
	if !errors.Is(Conflict("x"), errors.ErrCodeConflict) {
		t.Error("Conflict code")
	}
}
