package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs and table statuses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of recent runs to show")

	return cmd
}

func runStatus(cmd *cobra.Command, limit int) error {
	eng, err := createEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	runs, err := eng.Store().ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Run", "Status", "Started", "Completed", "Error"})
	for _, run := range runs {
		completed := ""
		if run.CompletedAt != nil {
			completed = run.CompletedAt.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), completed, run.Error})
	}
	t.Render()

	// Table detail for the most recent run.
	tableRuns, err := eng.Store().GetTableRunsForRun(runs[0].ID)
	if err != nil {
		return fmt.Errorf("failed to get table runs: %w", err)
	}
	if len(tableRuns) == 0 {
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nTables in run %s:\n", runs[0].ID)
	tt := table.NewWriter()
	tt.SetOutputMirror(cmd.OutOrStdout())
	tt.AppendHeader(table.Row{"Table", "Status", "Bronze", "Silver", "Detail"})
	for _, tr := range tableRuns {
		tt.AppendRow(table.Row{tr.Table, tr.Status, tr.RowsBronze, tr.RowsSilver, tr.Detail})
	}
	tt.Render()

	return nil
}
