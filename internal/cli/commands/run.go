package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/strata-labs/strata/internal/pipeline"
	"github.com/strata-labs/strata/internal/state"
)

// watchDebounce coalesces bursts of file events into one run.
const watchDebounce = 500 * time.Millisecond

// RunOptions holds options for the run command.
type RunOptions struct {
	Select string
	Watch  bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline for all or selected tables",
		Long: `Ingest, cleanse, and aggregate the configured tables.

Each table moves through the layers independently: tables whose input file is
missing are skipped, and one table's failure does not stop the others.`,
		Example: `  # Run every configured table
  strata run

  # Run specific tables
  strata run --select orders,customers

  # Re-run automatically when source files change
  strata run --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of tables to run")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch the source directory and re-run on changes")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	ctx := cmd.Context()

	eng, err := createEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	var selected []string
	if opts.Select != "" {
		for _, name := range strings.Split(opts.Select, ",") {
			selected = append(selected, strings.TrimSpace(name))
		}
	}

	if opts.Watch {
		return watchAndRun(cmd, eng, selected)
	}
	return runOnce(cmd, eng, selected)
}

func runOnce(cmd *cobra.Command, eng *pipeline.Engine, selected []string) error {
	start := time.Now()
	result, err := eng.Run(cmd.Context(), selected)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	renderRunResult(cmd, result)
	fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s\n", time.Since(start).Round(time.Millisecond))

	if result.Failed() {
		return errors.New(result.Run.Error)
	}
	return nil
}

// watchAndRun runs once, then re-runs whenever the source directory changes,
// until the context is cancelled.
func watchAndRun(cmd *cobra.Command, eng *pipeline.Engine, selected []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(cfg.SourceDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.SourceDir, err)
	}

	if err := runOnce(cmd, eng, selected); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", cfg.SourceDir)

	var debounce *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watch error: %v\n", err)
		case <-pending:
			fmt.Fprintln(cmd.OutOrStdout(), "Change detected, re-running...")
			if err := runOnce(cmd, eng, selected); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
		}
	}
}

// renderRunResult prints the per-table outcome table.
func renderRunResult(cmd *cobra.Command, result *pipeline.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Table", "Status", "Bronze", "Silver", "Quality", "Detail"})

	for _, tr := range result.Tables {
		score := ""
		if tr.Report != nil {
			score = fmt.Sprintf("%.1f", tr.Report.OverallScore())
		}
		detail := tr.Detail
		if tr.Status == state.TableStatusAggregated && len(tr.Rollups) > 0 {
			detail = fmt.Sprintf("%d rollup(s)", len(tr.Rollups))
		}
		t.AppendRow(table.Row{tr.Table, tr.Status, tr.RowsBronze, tr.RowsSilver, score, detail})
	}
	t.Render()

	if result.Run != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", result.Run.ID, result.Run.Status)
	}
}
