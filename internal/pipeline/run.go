package pipeline

// run.go - per-table run orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/strata-labs/strata/internal/config"
	"github.com/strata-labs/strata/internal/quality"
	"github.com/strata-labs/strata/internal/state"
)

// TableResult is the outcome of one table's pass through the layers.
type TableResult struct {
	Table      string
	Status     state.TableStatus
	RowsBronze int64
	RowsSilver int64
	Rollups    map[string]int64
	Report     *quality.Report
	Detail     string
	Err        error
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Run    *state.Run
	Tables []TableResult
}

// Failed reports whether any table genuinely failed. Skipped tables do not
// count: a missing input is an expected condition, not a failure.
func (r *RunResult) Failed() bool {
	for _, t := range r.Tables {
		if t.Status == state.TableStatusFailed {
			return true
		}
	}
	return false
}

// Run executes the pipeline for the selected tables, or for every configured
// table when selected is empty. Tables are independent: each is processed on
// its own, up to cfg.Jobs concurrently, and one table's failure never stops
// the others. The returned error is non-nil only for run-level conditions
// (setup failure or cancellation), never for per-table failures.
func (e *Engine) Run(ctx context.Context, selected []string) (*RunResult, error) {
	tables, err := e.selectTables(selected)
	if err != nil {
		return nil, err
	}

	e.logger.Info("starting run", "tables", len(tables), "jobs", e.cfg.Jobs)

	// A broken warehouse fails the run before any table starts.
	if _, err := e.Warehouse(ctx); err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun()
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	jobs := e.cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}

	results := make([]TableResult, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, table := range tables {
		g.Go(func() error {
			results[i] = e.runTable(gctx, run.ID, table)
			// Only cancellation propagates as a group error; table failures
			// are carried in the result so sibling tables keep running.
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	result := &RunResult{Tables: results}
	switch {
	case waitErr != nil:
		_ = e.store.CompleteRun(run.ID, state.RunStatusCancelled, waitErr.Error())
	case result.Failed():
		_ = e.store.CompleteRun(run.ID, state.RunStatusFailed, failureSummary(results))
	default:
		_ = e.store.CompleteRun(run.ID, state.RunStatusCompleted, "")
	}

	result.Run, _ = e.store.GetRun(run.ID)
	e.logger.Info("run finished", "run_id", run.ID, "status", result.Run.Status)
	return result, waitErr
}

// selectTables resolves the tables to process. Selecting an unknown table is
// a configuration error.
func (e *Engine) selectTables(selected []string) ([]config.TableConfig, error) {
	if len(selected) == 0 {
		return e.cfg.Tables, nil
	}
	out := make([]config.TableConfig, 0, len(selected))
	for _, name := range selected {
		table, ok := e.tableConfig(name)
		if !ok {
			return nil, fmt.Errorf("unknown table: %s", name)
		}
		out = append(out, table)
	}
	return out, nil
}

// runTable moves one table through the state machine:
// Pending -> Ingested -> Cleansed -> Aggregated, with Skipped when the input
// is absent and Failed on genuine errors. Cancellation is honored between
// stages, never mid-stage.
func (e *Engine) runTable(ctx context.Context, runID string, table config.TableConfig) TableResult {
	result := TableResult{Table: table.Name, Status: state.TableStatusPending}

	tr, err := e.store.CreateTableRun(runID, table.Name)
	if err != nil {
		result.Status = state.TableStatusFailed
		result.Err = err
		return result
	}

	fail := func(err error) TableResult {
		e.logger.Error("table failed", "table", table.Name, "error", err)
		result.Status = state.TableStatusFailed
		result.Detail = err.Error()
		result.Err = err
		_ = e.store.UpdateTableRun(tr.ID, state.TableStatusFailed, result.RowsBronze, result.RowsSilver, err.Error())
		return result
	}
	cancelled := func(err error) TableResult {
		result.Err = err
		_ = e.store.UpdateTableRun(tr.ID, result.Status, result.RowsBronze, result.RowsSilver, "run cancelled")
		return result
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	bronze, err := e.Ingest(ctx, table)
	if errors.Is(err, ErrSourceMissing) {
		e.logger.Warn("skipping table, source missing", "table", table.Name, "source", table.SourceFile())
		result.Status = state.TableStatusSkipped
		result.Detail = err.Error()
		_ = e.store.UpdateTableRun(tr.ID, state.TableStatusSkipped, 0, 0, err.Error())
		return result
	}
	if err != nil {
		return fail(err)
	}
	result.Status = state.TableStatusIngested
	result.RowsBronze = int64(bronze.NumRows())
	_ = e.store.UpdateTableRun(tr.ID, state.TableStatusIngested, result.RowsBronze, 0, "")

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	silver, report, err := e.Cleanse(ctx, table, bronze)
	if err != nil {
		return fail(err)
	}
	result.Status = state.TableStatusCleansed
	result.RowsSilver = int64(silver.NumRows())
	result.Report = report
	if payload, err := json.Marshal(report); err == nil {
		_ = e.store.SaveQualityReport(runID, table.Name, payload)
	}
	_ = e.store.UpdateTableRun(tr.ID, state.TableStatusCleansed, result.RowsBronze, result.RowsSilver, "")

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	rollups, err := e.Aggregate(ctx, table)
	if err != nil {
		return fail(err)
	}
	result.Status = state.TableStatusAggregated
	result.Rollups = rollups
	_ = e.store.UpdateTableRun(tr.ID, state.TableStatusAggregated, result.RowsBronze, result.RowsSilver, "")

	return result
}

// failureSummary renders a one-line summary of the failed tables.
func failureSummary(results []TableResult) string {
	n := 0
	for _, r := range results {
		if r.Status == state.TableStatusFailed {
			n++
		}
	}
	return fmt.Sprintf("%d table(s) failed", n)
}
