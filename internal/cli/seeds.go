package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gasket/pkg/pipeline"
	"github.com/matzehuels/gasket/pkg/seed"
)

// seedsCommand creates the seeds command, which lists integral root
// quadruples.
func (c *CLI) seedsCommand() *cobra.Command {
	var (
		maxB    int64
		format  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "seeds",
		Short: "List integral Apollonian gaskets by enclosing curvature",
		Long: `List the root quadruples of integral Apollonian gaskets whose enclosing
circle has curvature -B for B up to --max. Every circle of such a gasket has
an integer curvature. The fifth column is the other circle tangent to the
first three.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			runner := pipeline.NewRunner(newCache(noCache), nil, nil, c.Logger)
			defer runner.Close()

			quintets, hit, err := runner.Seeds(cmd.Context(), maxB)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("seeds", "max", maxB, "count", len(quintets), "cached", hit)
			return printSeeds(cmd.OutOrStdout(), quintets, format)
		},
	}

	cmd.Flags().Int64Var(&maxB, "max", pipeline.DefaultSeedBound, "largest enclosing bend B")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the local cache")

	return cmd
}

type seedJSON struct {
	Curvatures [5]int64 `json:"curvatures"`
	B          int64    `json:"b"`
	Mu         int64    `json:"mu"`
	K          int64    `json:"k"`
	N          int64    `json:"n"`
}

func printSeeds(w io.Writer, quintets []seed.Quintet, format string) error {
	if format == formatJSON {
		out := make([]seedJSON, len(quintets))
		for i, q := range quintets {
			out[i] = seedJSON{Curvatures: q.Curvatures(), B: q.B, Mu: q.Mu, K: q.K, N: q.N}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(quintets) == 0 {
		printInfo(w, "No integral gaskets in range")
		return nil
	}
	rows := make([][]string, len(quintets))
	for i, q := range quintets {
		ks := q.Curvatures()
		seedArgs := make([]string, 4)
		for j := range seedArgs {
			seedArgs[j] = strconv.FormatInt(ks[j], 10)
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strings.Join(seedArgs, " "),
			strconv.FormatInt(ks[4], 10),
			fmt.Sprintf("B=%d μ=%d k=%d n=%d", q.B, q.Mu, q.K, q.N),
		}
	}
	fmt.Fprintln(w, renderTable([]string{"#", "Seed", "Fifth", "Parameters"}, rows))
	printNextStep(w, "Generate one", "gasket generate -- "+rows[0][1])
	return nil
}
