package quality

// checks.go - the individual check implementations. Each is a pure function
// of (dataset, parameters); a check on a missing column returns a failed
// result rather than an error so that batch runs never abort.

import (
	"fmt"
	"strings"
	"time"

	"github.com/strata-labs/strata/internal/dataset"
)

// msgColumnNotFound is the graceful-failure message for checks against a
// column absent from the dataset.
const msgColumnNotFound = "column not found"

// maxSampleViolations caps the out-of-range sample values reported for
// diagnostics.
const maxSampleViolations = 5

// Completeness scores the dataset by null density:
// (1 - total_nulls / (rows * cols)) * 100. A degenerate dataset with zero
// cells is treated as fully complete. Passes iff score/100 >= threshold.
func Completeness(ds *dataset.Dataset, threshold float64) Result {
	rows, cols := ds.NumRows(), ds.NumCols()
	totalCells := rows * cols

	totalNulls := 0
	colNulls := make(map[string]ColumnNulls)
	for _, col := range ds.Columns() {
		values, _ := ds.ColumnValues(col.Name)
		n := 0
		for _, v := range values {
			if dataset.IsNull(v) {
				n++
			}
		}
		if n > 0 {
			colNulls[col.Name] = ColumnNulls{
				Count:   n,
				Percent: float64(n) / float64(rows) * 100,
			}
			totalNulls += n
		}
	}

	score := 100.0
	if totalCells > 0 {
		score = (1 - float64(totalNulls)/float64(totalCells)) * 100
	}

	return Result{
		Name:        "completeness",
		Kind:        KindCompleteness,
		Passed:      score/100 >= threshold,
		Score:       scoreOf(score),
		Threshold:   threshold * 100,
		TotalNulls:  totalNulls,
		ColumnNulls: colNulls,
	}
}

// Uniqueness checks for duplicate records on the given key columns. Key
// columns absent from the dataset are ignored; if none remain, the check
// passes with no score and is excluded from the overall average.
// The score is distinct_key_tuples / total_rows * 100 and the check passes
// iff duplicate_count is zero (mark-all convention, see Result).
func Uniqueness(ds *dataset.Dataset, keyColumns []string) Result {
	var valid []string
	for _, k := range keyColumns {
		if ds.HasColumn(k) {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return Result{
			Name:    "uniqueness",
			Kind:    KindUniqueness,
			Passed:  true,
			Message: "no key columns found",
		}
	}

	total := ds.NumRows()
	counts := make(map[string]int)
	for i := 0; i < total; i++ {
		counts[keyTuple(ds, valid, i)]++
	}
	duplicates := 0
	for _, c := range counts {
		if c > 1 {
			duplicates += c
		}
	}

	score := 100.0
	if total > 0 {
		score = float64(len(counts)) / float64(total) * 100
	}

	return Result{
		Name:            "uniqueness",
		Kind:            KindUniqueness,
		Passed:          duplicates == 0,
		Score:           scoreOf(score),
		TotalRecords:    total,
		DistinctRecords: len(counts),
		DuplicateCount:  duplicates,
		KeyColumns:      valid,
	}
}

// KeyTuple renders the key-column values of one row as a stable composite
// key. Exported for the cleansing stage, which must group rows by exactly
// the same tuple.
func KeyTuple(ds *dataset.Dataset, keyColumns []string, row int) string {
	return keyTuple(ds, keyColumns, row)
}

func keyTuple(ds *dataset.Dataset, keyColumns []string, row int) string {
	parts := make([]string, len(keyColumns))
	for i, k := range keyColumns {
		idx, _ := ds.ColumnIndex(k)
		parts[i] = dataset.FormatValue(ds.Value(row, idx))
	}
	return strings.Join(parts, "\x1f")
}

// Range checks that a numeric column's values fall within [min, max]
// inclusive. Non-coercible values are excluded from both numerator and
// denominator; a column with zero coercible values scores 100. Up to 5
// sample violations are reported.
func Range(ds *dataset.Dataset, column string, min, max float64) Result {
	name := fmt.Sprintf("range_%s", column)
	if !ds.HasColumn(column) {
		return Result{
			Name:    name,
			Kind:    KindRange,
			Passed:  false,
			Message: msgColumnNotFound,
			Column:  column,
		}
	}

	values, _ := ds.ColumnValues(column)
	validCount, totalCount := 0, 0
	var samples []float64
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		f, ok := dataset.AsFloat(v)
		if !ok {
			continue
		}
		totalCount++
		if f >= min && f <= max {
			validCount++
		} else if len(samples) < maxSampleViolations {
			samples = append(samples, f)
		}
	}

	score := 100.0
	if totalCount > 0 {
		score = float64(validCount) / float64(totalCount) * 100
	}

	return Result{
		Name:             name,
		Kind:             KindRange,
		Passed:           validCount == totalCount,
		Score:            scoreOf(score),
		Column:           column,
		Min:              &min,
		Max:              &max,
		ValidCount:       validCount,
		InvalidCount:     totalCount - validCount,
		SampleViolations: samples,
	}
}

// DateFormat validates format consistency of a date column. Missing values
// do not penalize, values already typed as timestamps pass automatically,
// and string values pass iff they parse against the expected layout.
func DateFormat(ds *dataset.Dataset, column, layout string) Result {
	name := fmt.Sprintf("date_format_%s", column)
	if !ds.HasColumn(column) {
		return Result{
			Name:    name,
			Kind:    KindDateFormat,
			Passed:  false,
			Message: msgColumnNotFound,
			Column:  column,
		}
	}

	values, _ := ds.ColumnValues(column)
	valid := 0
	for _, v := range values {
		if isValidDate(v, layout) {
			valid++
		}
	}

	total := len(values)
	score := 100.0
	if total > 0 {
		score = float64(valid) / float64(total) * 100
	}

	return Result{
		Name:           name,
		Kind:           KindDateFormat,
		Passed:         valid == total,
		Score:          scoreOf(score),
		Column:         column,
		ExpectedFormat: layout,
		ValidCount:     valid,
		InvalidCount:   total - valid,
	}
}

// isValidDate applies the DateFormat validity rules to one value.
func isValidDate(v any, layout string) bool {
	switch t := v.(type) {
	case nil:
		return true
	case time.Time:
		return true
	case string:
		_, err := time.Parse(layout, t)
		return err == nil
	default:
		return false
	}
}

// Categorical checks that the distinct non-null observed values of a column
// form a subset of the allowed set. The invalid values found are reported
// regardless of their frequency. Produces no score.
func Categorical(ds *dataset.Dataset, column string, allowed []string) Result {
	name := fmt.Sprintf("categorical_%s", column)
	if !ds.HasColumn(column) {
		return Result{
			Name:    name,
			Kind:    KindCategorical,
			Passed:  false,
			Message: msgColumnNotFound,
			Column:  column,
		}
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = true
	}

	values, _ := ds.ColumnValues(column)
	seen := make(map[string]bool)
	var invalid []string
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		s := dataset.FormatValue(v)
		if seen[s] {
			continue
		}
		seen[s] = true
		if !allowedSet[s] {
			invalid = append(invalid, s)
		}
	}

	return Result{
		Name:          name,
		Kind:          KindCategorical,
		Passed:        len(invalid) == 0,
		Column:        column,
		AllowedValues: allowed,
		InvalidValues: invalid,
		DistinctFound: len(seen),
	}
}
