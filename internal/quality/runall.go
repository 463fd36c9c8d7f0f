package quality

// runall.go - full-battery orchestration over one dataset

import (
	"time"

	"github.com/strata-labs/strata/internal/dataset"
)

// RangeRule is an inclusive numeric bound for one column.
type RangeRule struct {
	Min float64
	Max float64
}

// RunConfig parameterizes RunAll. The zero value is not usable; callers
// supply defaults from the pipeline's policy constants so the defaults stay
// visible and overridable rather than buried here.
type RunConfig struct {
	// CompletenessThreshold is the pass bar for the completeness check,
	// expressed as a fraction (0.95 = 95%).
	CompletenessThreshold float64

	// KeyColumns are the uniqueness keys. When empty, the first column of
	// the dataset is used.
	KeyColumns []string

	// Ranges are explicit business range rules. When empty, range checks
	// self-calibrate: up to AutoRangeLimit numeric columns are checked
	// against their own observed min/max as a consistency check.
	Ranges map[string]RangeRule

	// AutoRangeLimit caps the number of self-calibrated range checks.
	AutoRangeLimit int

	// DateLayout is the expected format for date-format checks, applied to
	// every column whose name matches the temporal heuristic.
	DateLayout string

	// Categorical maps columns to their allowed value sets. Only checked
	// when configured.
	Categorical map[string][]string
}

// RunAll executes the full check battery against one dataset and returns the
// report. Checks are independent: a failed or gracefully degraded check
// never prevents the remaining checks from running.
func RunAll(ds *dataset.Dataset, cfg RunConfig) *Report {
	report := &Report{
		Rows:        ds.NumRows(),
		Cols:        ds.NumCols(),
		GeneratedAt: time.Now().UTC(),
	}

	report.Add(Completeness(ds, cfg.CompletenessThreshold))

	keys := cfg.KeyColumns
	if len(keys) == 0 && ds.NumCols() > 0 {
		keys = []string{ds.Columns()[0].Name}
	}
	report.Add(Uniqueness(ds, keys))

	if len(cfg.Ranges) > 0 {
		// Explicit rules run in column order for deterministic reports.
		for _, col := range ds.Columns() {
			if rule, ok := cfg.Ranges[col.Name]; ok {
				report.Add(Range(ds, col.Name, rule.Min, rule.Max))
			}
		}
		// Rules for columns the dataset lacks still surface as failures.
		for name, rule := range cfg.Ranges {
			if !ds.HasColumn(name) {
				report.Add(Range(ds, name, rule.Min, rule.Max))
			}
		}
	} else {
		for _, col := range numericColumns(ds, cfg.AutoRangeLimit) {
			min, max, ok := observedBounds(ds, col)
			if !ok {
				continue
			}
			report.Add(Range(ds, col, min, max))
		}
	}

	for _, col := range ds.Columns() {
		if dataset.IsDateColumn(col.Name) {
			report.Add(DateFormat(ds, col.Name, cfg.DateLayout))
		}
	}

	for _, col := range ds.Columns() {
		if allowed, ok := cfg.Categorical[col.Name]; ok {
			report.Add(Categorical(ds, col.Name, allowed))
		}
	}

	return report
}

// numericColumns returns up to limit float-typed column names in order.
func numericColumns(ds *dataset.Dataset, limit int) []string {
	var out []string
	for _, col := range ds.Columns() {
		if col.Type != dataset.TypeFloat {
			continue
		}
		out = append(out, col.Name)
		if len(out) == limit {
			break
		}
	}
	return out
}

// observedBounds computes the min and max of a column's coercible values.
func observedBounds(ds *dataset.Dataset, column string) (min, max float64, ok bool) {
	values, _ := ds.ColumnValues(column)
	first := true
	for _, v := range values {
		f, valid := dataset.AsFloat(v)
		if dataset.IsNull(v) || !valid {
			continue
		}
		if first {
			min, max = f, f
			first = false
			continue
		}
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max, !first
}
