// Package quality implements the data-quality check engine: a configurable
// battery of stateless checks over one dataset producing a structured report
// with per-check and overall scores.
package quality

import (
	"encoding/json"
	"time"
)

// Kind identifies a check type.
type Kind string

// Check kinds.
const (
	KindCompleteness Kind = "completeness"
	KindUniqueness   Kind = "uniqueness"
	KindRange        Kind = "range"
	KindDateFormat   Kind = "date_format"
	KindCategorical  Kind = "categorical"
)

// ColumnNulls holds per-column null evidence for the completeness check.
type ColumnNulls struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Result is the outcome of a single check. Score is nil for checks that
// produce no score (they are excluded from the overall average, not treated
// as zero). Evidence fields are populated per kind.
type Result struct {
	Name   string   `json:"-"`
	Kind   Kind     `json:"kind"`
	Passed bool     `json:"passed"`
	Score  *float64 `json:"score,omitempty"`

	// Message explains a gracefully failed check, e.g. "column not found".
	Message string `json:"message,omitempty"`

	// Completeness evidence.
	Threshold   float64                `json:"threshold,omitempty"`
	TotalNulls  int                    `json:"total_nulls,omitempty"`
	ColumnNulls map[string]ColumnNulls `json:"columns_with_nulls,omitempty"`

	// Uniqueness evidence. DuplicateCount uses the mark-all convention:
	// it counts every record whose key tuple occurs more than once, not
	// just occurrences beyond the first. The cleansing stage's separate
	// "rows removed" figure counts beyond-first occurrences and is
	// reported independently.
	TotalRecords    int      `json:"total_records,omitempty"`
	DistinctRecords int      `json:"distinct_records,omitempty"`
	DuplicateCount  int      `json:"duplicate_count,omitempty"`
	KeyColumns      []string `json:"key_columns,omitempty"`

	// Range / DateFormat / Categorical evidence.
	Column           string    `json:"column,omitempty"`
	Min              *float64  `json:"min,omitempty"`
	Max              *float64  `json:"max,omitempty"`
	ValidCount       int       `json:"valid_count,omitempty"`
	InvalidCount     int       `json:"invalid_count,omitempty"`
	SampleViolations []float64 `json:"sample_violations,omitempty"`
	ExpectedFormat   string    `json:"expected_format,omitempty"`
	AllowedValues    []string  `json:"allowed_values,omitempty"`
	InvalidValues    []string  `json:"invalid_values,omitempty"`
	DistinctFound    int       `json:"unique_values_found,omitempty"`
}

// scoreOf wraps a score value for assignment to Result.Score.
func scoreOf(v float64) *float64 { return &v }

// Report is the structured output of the engine for one dataset.
type Report struct {
	Results     []Result
	Rows        int
	Cols        int
	GeneratedAt time.Time
}

// Add appends a check result to the report.
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// Get returns the named check result.
func (r *Report) Get(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// ChecksRun returns the number of checks in the report.
func (r *Report) ChecksRun() int { return len(r.Results) }

// OverallScore is the arithmetic mean of all scored checks. Checks without
// a score are excluded from the average. A report with no scored checks is
// a vacuous pass: 100.
func (r *Report) OverallScore() float64 {
	var sum float64
	var n int
	for _, res := range r.Results {
		if res.Score != nil {
			sum += *res.Score
			n++
		}
	}
	if n == 0 {
		return 100
	}
	return sum / float64(n)
}

// reportJSON is the machine-readable wire form consumed by downstream
// collaborators (dashboards, KPI scripts).
type reportJSON struct {
	OverallScore float64           `json:"overall_score"`
	ChecksRun    int               `json:"checks_run"`
	TotalRecords int               `json:"total_records"`
	TotalColumns int               `json:"total_columns"`
	Timestamp    string            `json:"timestamp"`
	Results      map[string]Result `json:"results"`
}

// MarshalJSON emits the report as a mapping of check name to result plus
// summary fields.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		OverallScore: r.OverallScore(),
		ChecksRun:    r.ChecksRun(),
		TotalRecords: r.Rows,
		TotalColumns: r.Cols,
		Timestamp:    r.GeneratedAt.UTC().Format(time.RFC3339),
		Results:      make(map[string]Result, len(r.Results)),
	}
	for _, res := range r.Results {
		out.Results[res.Name] = res
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a report from its wire form. Check name ordering is
// not preserved.
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Rows = in.TotalRecords
	r.Cols = in.TotalColumns
	if ts, err := time.Parse(time.RFC3339, in.Timestamp); err == nil {
		r.GeneratedAt = ts
	}
	r.Results = r.Results[:0]
	for name, res := range in.Results {
		res.Name = name
		r.Results = append(r.Results, res)
	}
	return nil
}
