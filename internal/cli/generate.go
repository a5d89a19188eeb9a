package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/pipeline"
	"github.com/matzehuels/gasket/pkg/store"
)

const (
	formatTable = "table"
	formatJSON  = "json"

	defaultRowLimit = 40
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	depth   int
	stream  bool
	format  string
	noCache bool
	refresh bool
	db      string
	limit   int
	quiet   bool
}

// generateOutput is the JSON document printed by --format json.
type generateOutput struct {
	Gasket  *store.Gasket `json:"gasket"`
	Stats   gasket.Stats  `json:"stats"`
	Circles []gasket.View `json:"circles"`
}

// generateCommand creates the generate command.
//
// Negative curvatures look like flags, so seeds usually follow "--":
//
//	gasket generate --depth 3 -- -1 2 2 3
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{
		depth:  pipeline.DefaultMaxDepth,
		format: formatTable,
		limit:  defaultRowLimit,
	}

	cmd := &cobra.Command{
		Use:   "generate [flags] -- k1 k2 k3 [k4]",
		Short: "Generate a gasket from three or four seed curvatures",
		Long: `Generate an Apollonian gasket from three or four mutually tangent seed circles.

Curvatures may be integers ("3"), fractions ("1/2"), square-root expressions
("2*sqrt(3)") or tagged exact strings ("int:3", "frac:1/2", "sym:...").
Use "--" before the seeds when one of them is negative.`,
		Example: `  gasket generate -- -1 2 2 3
  gasket generate --depth 6 --format json -- -1 2 2 3
  gasket generate --stream --db gasket.db 1 1 1`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.depth, "depth", "d", opts.depth, "maximum generation depth")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "generate lazily and report progress per batch")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: table, json")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the local cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "regenerate even when cached or stored")
	cmd.Flags().StringVar(&opts.db, "db", "", "persist gaskets in this SQLite database")
	cmd.Flags().IntVar(&opts.limit, "limit", opts.limit, "rows shown by the table format (0 for all)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "hide the spinner and summary")

	return cmd
}

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	}
	return fmt.Errorf("invalid format: %s (must be 'table' or 'json')", format)
}

// runGenerate executes one request and prints the result to out. Status
// lines go to stderr so that JSON output stays machine-readable.
func (c *CLI) runGenerate(ctx context.Context, out io.Writer, seeds []string, opts generateOpts) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(opts.noCache, opts.db)
	if err != nil {
		return err
	}
	defer runner.Close()

	status := io.Writer(os.Stderr)
	if opts.quiet {
		status = io.Discard
	}

	req := pipeline.Options{
		Curvatures: seeds,
		MaxDepth:   opts.depth,
		Refresh:    opts.refresh,
		Logger:     logger,
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, status, fmt.Sprintf("Generating gasket (%s)", strings.Join(seeds, ", ")))
	spinner.Start()

	var res *pipeline.Result
	if opts.stream {
		res, err = runner.Stream(ctx, req, func(p pipeline.Progress) error {
			spinner.Update(fmt.Sprintf("Generation %d · %d circles", p.Generation, p.Total))
			logger.Debug("batch", "generation", p.Generation, "circles", len(p.Circles), "total", p.Total)
			return nil
		})
	} else {
		res, err = runner.Execute(ctx, req)
	}
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Generated %d circles", len(res.Circles)))

	switch opts.format {
	case formatJSON:
		if err := writeGenerateJSON(out, res); err != nil {
			return err
		}
	default:
		fmt.Fprintln(out, renderCircles(res.Circles, opts.limit))
		if opts.limit > 0 && len(res.Circles) > opts.limit {
			printDetail(out, "%d more circles not shown (use --limit 0 or --format json)", len(res.Circles)-opts.limit)
		}
	}

	printSuccess(status, "Gasket %s", strings.Join(seeds, ", "))
	printStats(status, len(res.Circles), generations(res.Circles), sourceOf(res))
	if opts.db != "" {
		printKeyValue(status, "Gasket ID", strconv.FormatInt(res.Gasket.ID, 10))
		printKeyValue(status, "Accesses", strconv.Itoa(res.Gasket.AccessCount))
	}
	if !opts.stream && opts.depth < pipeline.MaxDepthLimit {
		printNextStep(status, "Watch it grow", fmt.Sprintf("gasket watch --depth %d -- %s", opts.depth+1, strings.Join(seeds, " ")))
	}
	return nil
}

func writeGenerateJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(generateOutput{
		Gasket:  res.Gasket,
		Stats:   res.Stats,
		Circles: gasket.Views(res.Circles),
	})
}

// renderCircles draws the first limit circles as a table.
func renderCircles(circles []*gasket.Circle, limit int) string {
	if limit <= 0 || limit > len(circles) {
		limit = len(circles)
	}
	rows := make([][]string, 0, limit)
	for _, c := range circles[:limit] {
		v := c.View()
		id := "-"
		if v.ID != nil {
			id = strconv.FormatInt(*v.ID, 10)
		}
		rows = append(rows, []string{
			id,
			strconv.FormatUint(uint64(v.Generation), 10),
			v.Curvature,
			v.Center.X,
			v.Center.Y,
			v.Radius,
		})
	}
	return renderTable([]string{"ID", "Gen", "Curvature", "Center x", "Center y", "Radius"}, rows)
}

func generations(circles []*gasket.Circle) int {
	var top uint32
	for _, c := range circles {
		top = max(top, c.Generation)
	}
	if len(circles) == 0 {
		return 0
	}
	return int(top) + 1
}

func sourceOf(res *pipeline.Result) source {
	switch {
	case res.CacheHit:
		return sourceCache
	case res.StoreHit:
		return sourceStore
	}
	return sourceFresh
}
