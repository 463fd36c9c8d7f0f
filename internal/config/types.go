// Package config provides declarative pipeline configuration: which logical
// tables to process, how to cleanse them, and which rollups to build from
// them. Configuration is loaded from defaults, a YAML file, environment
// variables, and CLI flags, in ascending precedence.
package config

// Config holds the full pipeline configuration.
type Config struct {
	// SourceDir is the directory scanned for raw CSV input files.
	SourceDir string `koanf:"source_dir"`

	// Warehouse is the path of the DuckDB warehouse file, or ":memory:".
	Warehouse string `koanf:"warehouse"`

	// StatePath is the path of the SQLite run-history database.
	StatePath string `koanf:"state_path"`

	// Jobs is the maximum number of tables processed concurrently.
	Jobs int `koanf:"jobs"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// Tables are the logical tables the pipeline processes. Each table moves
	// through the layers independently.
	Tables []TableConfig `koanf:"tables"`
}

// TableConfig describes one logical table.
type TableConfig struct {
	// Name is the table identifier, used for artifact addressing.
	Name string `koanf:"name"`

	// Source is the input file name under SourceDir. Defaults to <name>.csv.
	Source string `koanf:"source"`

	// DedupKeys are the columns that identify a duplicate record during
	// cleansing and uniqueness checking. Defaults to the first column.
	DedupKeys []string `koanf:"dedup_keys"`

	// Ranges are inclusive numeric bounds per column. When present they
	// drive both the range quality checks and the out-of-range row flags.
	Ranges map[string]RangeRule `koanf:"ranges"`

	// Categorical maps columns to their allowed value sets.
	Categorical map[string][]string `koanf:"categorical"`

	// DateLayout is the expected date format for this table's date columns,
	// in Go reference-time notation. Empty means the pipeline default.
	DateLayout string `koanf:"date_layout"`

	// Rollups are the aggregations built from this table's cleansed data.
	Rollups []RollupConfig `koanf:"rollups"`
}

// RangeRule is an inclusive numeric bound for one column.
type RangeRule struct {
	Min float64 `koanf:"min"`
	Max float64 `koanf:"max"`
}

// RollupConfig describes one aggregation over a cleansed table.
type RollupConfig struct {
	// Name is the rollup's table name in the aggregate layer.
	Name string `koanf:"name"`

	// GroupBy are the grouping columns.
	GroupBy []string `koanf:"group_by"`

	// TimeBucket is an optional timestamp column to bucket by day and group
	// on, alongside GroupBy.
	TimeBucket string `koanf:"time_bucket"`

	// Sums are columns to SUM per group.
	Sums []string `koanf:"sums"`

	// DistinctCounts are columns to COUNT DISTINCT per group.
	DistinctCounts []string `koanf:"distinct_counts"`

	// CountAs, when set, adds a COUNT(*) metric under this name.
	CountAs string `koanf:"count_as"`

	// Ratios are derived metrics computed from two summed columns.
	Ratios []RatioConfig `koanf:"ratios"`
}

// RatioConfig is a derived rollup metric: SUM(numerator) / SUM(denominator)
// per group, guarded against division by zero.
type RatioConfig struct {
	Name        string `koanf:"name"`
	Numerator   string `koanf:"numerator"`
	Denominator string `koanf:"denominator"`

	// Percent scales the ratio by 100.
	Percent bool `koanf:"percent"`
}

// SourceFile returns the table's input file name, defaulting to <name>.csv.
func (t TableConfig) SourceFile() string {
	if t.Source != "" {
		return t.Source
	}
	return t.Name + ".csv"
}
