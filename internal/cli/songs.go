package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponchocards/ponchocards/pkg/sheet"
	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/stats"
	"github.com/ponchocards/ponchocards/pkg/store"
)

// songsCommand groups the catalog commands.
func (c *CLI) songsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "songs",
		Aliases: []string{"catalog"},
		Short:   "Manage the song catalog",
	}

	cmd.AddCommand(c.songsListCommand())
	cmd.AddCommand(c.songsAddCommand())
	cmd.AddCommand(c.songsUpdateCommand())
	cmd.AddCommand(c.songsDeleteCommand())
	cmd.AddCommand(c.songsImportCommand())
	cmd.AddCommand(c.songsExportCommand())
	cmd.AddCommand(c.songsStatsCommand())
	cmd.AddCommand(c.songsBrowseCommand())

	return cmd
}

// withStore opens the catalog for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// =============================================================================
// Listing
// =============================================================================

func (c *CLI) songsListCommand() *cobra.Command {
	var (
		q      store.Query
		year   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List songs in the catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("year") {
				q.Year = song.Year(year)
			}
			nq, err := q.Normalize()
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(st store.Store) error {
				page, err := st.List(cmd.Context(), nq)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, page)
				}
				if len(page.Songs) == 0 {
					printInfo("No songs found")
					return nil
				}
				fmt.Fprintln(stdout, songTable(page.Songs, -1))
				printDetail("page %d of %d · %s", page.Page, page.TotalPages(), plural(page.Total, "song"))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.IntVarP(&q.Page, "page", "p", 1, "page number")
	f.IntVarP(&q.PageSize, "page-size", "n", store.DefaultPageSize, "songs per page (max 100)")
	f.StringVarP(&q.Search, "search", "s", "", "case-insensitive match on artist, title or link")
	f.IntVar(&year, "year", 0, "only songs released in this year")
	f.Var(newSortValue(&q.Sort), "sort", "sort by id, artist, title or year")
	f.BoolVar(&q.Desc, "desc", false, "sort in descending order")
	f.BoolVar(&asJSON, "json", false, "print the page as JSON")

	return cmd
}

// sortValue adapts store.SortField to a pflag value.
type sortValue struct{ f *store.SortField }

func newSortValue(f *store.SortField) *sortValue {
	*f = store.SortID
	return &sortValue{f: f}
}

func (v *sortValue) String() string     { return string(*v.f) }
func (v *sortValue) Type() string       { return "field" }
func (v *sortValue) Set(s string) error { *v.f = store.SortField(s); return nil }

// =============================================================================
// Editing
// =============================================================================

// recordFlags are the editable fields of a song.
type recordFlags struct {
	artist string
	title  string
	year   int
	link   string
}

func (r *recordFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&r.artist, "artist", "", "artist name")
	f.StringVar(&r.title, "title", "", "song title")
	f.IntVar(&r.year, "year", 0, "release year (0 clears it)")
	f.StringVar(&r.link, "link", "", "YouTube link")
}

// apply copies the flags the user set onto rec.
func (r *recordFlags) apply(cmd *cobra.Command, rec *song.Record) {
	changed := cmd.Flags().Changed
	if changed("artist") {
		rec.Artist = r.artist
	}
	if changed("title") {
		rec.Title = r.title
	}
	if changed("link") {
		rec.Link = r.link
	}
	if changed("year") {
		rec.Year = nil
		if r.year > 0 {
			rec.Year = song.Year(r.year)
		}
	}
}

func (c *CLI) songsAddCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a song to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec song.Record
			flags.apply(cmd, &rec)
			return c.withStore(cmd.Context(), func(st store.Store) error {
				s, err := st.Create(cmd.Context(), rec)
				if err != nil {
					return err
				}
				printSuccess("Added song %d", s.ID)
				printSong(s)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) songsUpdateCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a song",
		Long: `Change fields of a song. Only the flags given are changed; --year 0
clears the year.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withStore(ctx, func(st store.Store) error {
				cur, err := st.Get(ctx, id)
				if err != nil {
					return err
				}
				rec := cur.Record
				flags.apply(cmd, &rec)
				s, err := st.Update(ctx, id, rec)
				if err != nil {
					return err
				}
				printSuccess("Updated song %d", s.ID)
				printSong(s)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) songsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove songs from the catalog",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			return c.withStore(cmd.Context(), func(st store.Store) error {
				for _, id := range ids {
					if err := st.Delete(cmd.Context(), id); err != nil {
						return err
					}
					printSuccess("Deleted song %d", id)
				}
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid song id %q", s)
	}
	return id, nil
}

func printSong(s *song.Song) {
	printKeyValue("Artist", s.Artist)
	printKeyValue("Title", s.Title)
	printKeyValue("Year", s.YearText("—"))
	printKeyValue("Link", StyleLink.Render(s.Link))
}

// =============================================================================
// Spreadsheets
// =============================================================================

func (c *CLI) songsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <songs.xlsx>",
		Short: "Add or update songs from a spreadsheet",
		Long: `Add or update songs from a spreadsheet.

Every row needs ARTISTA, CANCION and YOUTUBE. A row whose link is already in
the catalog updates that song; incomplete rows are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			prog := newProgress(c.Logger)
			return c.withStore(cmd.Context(), func(st store.Store) error {
				res, err := store.Import(cmd.Context(), st, f)
				if err != nil {
					return err
				}
				prog.done("import finished", "file", args[0])
				printSuccess("Imported %s", plural(res.Imported, "song"))
				reportSkipped(res.Skipped)
				return nil
			})
		},
	}
}

func (c *CLI) songsExportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = sheet.ExportFilename(time.Now())
			}
			return c.withStore(cmd.Context(), func(st store.Store) error {
				var buf bytes.Buffer
				n, err := store.Export(cmd.Context(), st, &buf)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				printSuccess("Exported %s", plural(n, "song"))
				printFile(output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: ponchocards-canciones-<date>.xlsx)")
	return cmd
}

// =============================================================================
// Statistics
// =============================================================================

func (c *CLI) songsStatsCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog by year, decade and artist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				songs, err := st.All(cmd.Context())
				if err != nil {
					return err
				}
				s := stats.Compute(songs, limit)
				if asJSON {
					return writeJSON(cmd, s)
				}
				printStatistics(s)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", stats.DefaultLimit, "entries per ranking")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printStatistics(s stats.Statistics) {
	fmt.Fprintln(stdout, StyleTitle.Render("Catalog"))
	printKeyValue("Songs", strconv.Itoa(s.TotalSongs))
	printKeyValue("Without year", strconv.Itoa(s.MissingYearCount))

	sections := []struct {
		title   string
		entries []stats.Entry
	}{
		{"Most common years", s.YearsMostCommon},
		{"Least common years", s.YearsLeastCommon},
		{"Rarest decades", s.DecadesLeastCommon},
		{"Top artists", s.ArtistsMostCommon},
	}
	for _, sec := range sections {
		if len(sec.entries) == 0 {
			continue
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, StyleTitle.Render(sec.title))
		for _, e := range sec.entries {
			printKeyValue(e.Label, StyleNumber.Render(strconv.Itoa(e.Count)))
		}
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
