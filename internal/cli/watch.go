package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gasket/pkg/pipeline"
)

// watchCommand creates the watch command, a live view of a streaming
// generation.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		depth   int
		noCache bool
		refresh bool
		db      string
	)

	cmd := &cobra.Command{
		Use:     "watch [flags] -- k1 k2 k3 [k4]",
		Short:   "Watch a gasket being generated generation by generation",
		Example: `  gasket watch --depth 8 -- -1 2 2 3`,
		Args:    cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(noCache, db)
			if err != nil {
				return err
			}
			defer runner.Close()

			return runWatch(cmd, runner, pipeline.Options{
				Curvatures: args,
				MaxDepth:   depth,
				Refresh:    refresh,
				Logger:     loggerFromContext(cmd.Context()),
			})
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", pipeline.DefaultMaxDepth, "maximum generation depth")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the local cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "regenerate even when stored")
	cmd.Flags().StringVar(&db, "db", "", "persist gaskets in this SQLite database")

	return cmd
}

// runWatch streams the request into a WatchModel. The logger is silenced
// while the view owns the terminal.
func runWatch(cmd *cobra.Command, runner *pipeline.Runner, opts pipeline.Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	level := runner.Logger.GetLevel()
	runner.Logger.SetLevel(LogFatal)
	defer runner.Logger.SetLevel(level)

	model := NewWatchModel(opts.Curvatures, opts.MaxDepth, cancel)
	p := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()), tea.WithInput(cmd.InOrStdin()))

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, err := runner.Stream(ctx, opts, func(pr pipeline.Progress) error {
			p.Send(batchMsg(pr))
			return nil
		})
		p.Send(doneMsg{res: res, err: err})
	}()

	final, err := p.Run()
	cancel()
	<-finished
	if err != nil {
		return fmt.Errorf("watch view: %w", err)
	}

	m := final.(WatchModel)
	out := cmd.ErrOrStderr()
	switch {
	case m.Cancelled:
		printWarning(out, "Generation cancelled after %d circles", m.Total)
		return nil
	case m.Err != nil:
		return m.Err
	case m.Result != nil:
		printSuccess(out, "Gasket %s", strings.Join(m.Seeds, ", "))
		printStats(out, len(m.Result.Circles), len(m.Counts), sourceOf(m.Result))
	}
	return nil
}
