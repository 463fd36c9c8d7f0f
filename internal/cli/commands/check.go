package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/strata-labs/strata/internal/quality"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	File string
	JSON bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [table]",
		Short: "Run quality checks without writing artifacts",
		Long: `Run the quality check battery against a table's warehouse artifact or a raw
CSV file and print the report. Nothing is written and no run is recorded.`,
		Example: `  # Check a table's current silver (or bronze) artifact
  strata check orders

  # Check a raw CSV file with a table's configured rules
  strata check orders --file data/raw/orders.csv

  # Check an unconfigured CSV file with default rules
  strata check --file export.csv

  # Emit the full report as JSON
  strata check orders --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runCheck(cmd, name, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Check a CSV file instead of a warehouse artifact")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the full report as JSON")

	return cmd
}

func runCheck(cmd *cobra.Command, name string, opts *CheckOptions) error {
	if name == "" && opts.File == "" {
		return fmt.Errorf("provide a table name or --file")
	}

	eng, err := createEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	var report *quality.Report
	if opts.File != "" {
		report, err = eng.CheckFile(opts.File, name)
	} else {
		report, err = eng.CheckTable(cmd.Context(), name)
	}
	if err != nil {
		return err
	}

	if opts.JSON || GetConfig(cmd.Context()).OutputFormat == "json" {
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	}

	renderReport(cmd, report)
	return nil
}

// renderReport prints the check summary table and overall score.
func renderReport(cmd *cobra.Command, report *quality.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Check", "Passed", "Score", "Detail"})

	for _, res := range report.Results {
		score := "-"
		if res.Score != nil {
			score = fmt.Sprintf("%.1f", *res.Score)
		}
		t.AppendRow(table.Row{res.Name, res.Passed, score, res.Message})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "Overall score: %.1f (%d checks, %d records)\n",
		report.OverallScore(), report.ChecksRun(), report.Rows)
}
