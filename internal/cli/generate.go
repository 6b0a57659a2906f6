package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ponchocards/ponchocards/pkg/pipeline"
	"github.com/ponchocards/ponchocards/pkg/sheet"
	"github.com/ponchocards/ponchocards/pkg/song"
)

// generateOpts holds the flags of the generate command. Flags left unset
// fall back to the [deck] section of the config file.
type generateOpts struct {
	output      string
	formats     string
	title       string
	catalog     bool
	noCache     bool
	refresh     bool
	ordinals    bool
	mirror      bool
	placeholder string
	dpi         int
}

func (c *CLI) generateCommand() *cobra.Command {
	var flags generateOpts

	cmd := &cobra.Command{
		Use:   "generate [songs.xlsx]",
		Short: "Print a deck of song cards",
		Long: `Print a deck of song cards from a spreadsheet or from the catalog.

The spreadsheet needs ARTISTA and CANCION columns; LANZAMIENTO (year) and
YOUTUBE (link) are optional. Rows without a link print a "no code" card.

Each sheet of 16 cards is followed by its back side, mirrored so that the
codes line up with their song when printed double-sided.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !flags.catalog {
				return fmt.Errorf("give a spreadsheet or use --catalog")
			}
			if len(args) > 0 && flags.catalog {
				return fmt.Errorf("a spreadsheet cannot be combined with --catalog")
			}
			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			return c.runGenerate(cmd, input, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output format(s): pdf (default), svg, png, json (comma-separated)")
	cmd.Flags().StringVar(&flags.title, "title", "", "document title and file name (default: input file name)")
	cmd.Flags().BoolVar(&flags.catalog, "catalog", false, "print every song in the catalog")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "regenerate even when a cached deck exists")
	cmd.Flags().BoolVar(&flags.ordinals, "ordinals", false, "print the card number on each card")
	cmd.Flags().BoolVar(&flags.mirror, "mirror", true, "mirror code sheets for long-edge duplex printing")
	cmd.Flags().StringVar(&flags.placeholder, "year-placeholder", "", "text printed when a song has no year")
	cmd.Flags().IntVar(&flags.dpi, "dpi", 0, "PNG resolution")

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, input string, flags generateOpts) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	opts := cfg.PipelineOptions()
	applyDeckFlags(cmd, &opts, flags)
	opts.Formats = parseFormats(flags.formats)
	opts.Refresh = flags.refresh
	opts.Logger = c.Logger
	switch {
	case flags.title != "":
		opts.Title = flags.title
	case input != "":
		opts.Title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	records, err := c.loadRecords(ctx, input)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printWarning("Nothing to print")
		return nil
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Printing %s...", plural(len(records), "card")))
	spinner.Start()
	res, err := runner.Execute(ctx, records, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(flags.output, res.Artifacts)
	if err != nil {
		return err
	}
	printSuccess("Printed %s", plural(res.Stats.Records, "card"))
	for _, p := range paths {
		printFile(p)
	}
	printDeckStats(res.Stats, res.CacheInfo.DeckHit)
	return nil
}

// applyDeckFlags overrides config values with the flags the user set.
func applyDeckFlags(cmd *cobra.Command, opts *pipeline.Options, flags generateOpts) {
	changed := cmd.Flags().Changed
	if changed("ordinals") {
		opts.ShowOrdinals = flags.ordinals
	}
	if changed("mirror") {
		opts.Mirror = flags.mirror
	}
	if changed("year-placeholder") {
		opts.YearPlaceholder = flags.placeholder
	}
	if changed("dpi") {
		opts.DPI = flags.dpi
	}
}

// loadRecords reads a spreadsheet, or the catalog when input is empty.
func (c *CLI) loadRecords(ctx context.Context, input string) ([]song.Record, error) {
	if input == "" {
		st, err := c.openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		songs, err := st.All(ctx)
		if err != nil {
			return nil, err
		}
		records := make([]song.Record, len(songs))
		for i, s := range songs {
			records[i] = s.Record
		}
		return records, nil
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := sheet.Read(f, sheet.ModeDeck)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}
	reportSkipped(res.Skipped)
	return res.Records, nil
}

func reportSkipped(rows []sheet.SkippedRow) {
	if len(rows) == 0 {
		return
	}
	printWarning("Skipped %s", plural(len(rows), "row"))
	for _, r := range rows {
		printDetail("row %d: %s", r.Row, r.Reason)
	}
}

// writeArtifacts writes every artifact into dir and returns the paths.
func writeArtifacts(dir string, artifacts []pipeline.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		p := filepath.Join(dir, a.Name)
		if err := os.WriteFile(p, a.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// parseFormats splits a comma-separated format list. Validation is left to
// the pipeline.
func parseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, strings.ToLower(f))
		}
	}
	if len(formats) == 0 {
		return []string{pipeline.DefaultFormat}
	}
	return formats
}
