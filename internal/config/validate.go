package config

import (
	"fmt"
	"regexp"
)

// identifierPattern matches names safe to interpolate into generated SQL.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether name is usable as a table or column
// identifier in generated SQL.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks the configuration for structural errors. Validation
// failures are fatal: the pipeline refuses to start on a broken config
// rather than fail table by table at runtime.
func Validate(cfg *Config) error {
	if cfg.Jobs < 1 {
		return fmt.Errorf("invalid config: jobs must be at least 1, got %d", cfg.Jobs)
	}

	seen := make(map[string]bool)
	for i, table := range cfg.Tables {
		if table.Name == "" {
			return fmt.Errorf("invalid config: tables[%d] has no name", i)
		}
		if !ValidIdentifier(table.Name) {
			return fmt.Errorf("invalid config: table name %q is not a valid identifier", table.Name)
		}
		if seen[table.Name] {
			return fmt.Errorf("invalid config: duplicate table name %q", table.Name)
		}
		seen[table.Name] = true

		for col, rule := range table.Ranges {
			if rule.Min > rule.Max {
				return fmt.Errorf("invalid config: table %q range for %q has min %g greater than max %g",
					table.Name, col, rule.Min, rule.Max)
			}
		}

		if err := validateRollups(table); err != nil {
			return err
		}
	}

	return nil
}

// validateRollups checks one table's rollup definitions. Rollup identifiers
// end up in generated SQL, so every referenced name must be a valid
// identifier.
func validateRollups(table TableConfig) error {
	seen := make(map[string]bool)
	for i, rollup := range table.Rollups {
		if rollup.Name == "" {
			return fmt.Errorf("invalid config: table %q rollups[%d] has no name", table.Name, i)
		}
		if !ValidIdentifier(rollup.Name) {
			return fmt.Errorf("invalid config: rollup name %q is not a valid identifier", rollup.Name)
		}
		if seen[rollup.Name] {
			return fmt.Errorf("invalid config: table %q has duplicate rollup %q", table.Name, rollup.Name)
		}
		seen[rollup.Name] = true

		var columns []string
		columns = append(columns, rollup.GroupBy...)
		columns = append(columns, rollup.Sums...)
		columns = append(columns, rollup.DistinctCounts...)
		if rollup.TimeBucket != "" {
			columns = append(columns, rollup.TimeBucket)
		}
		if rollup.CountAs != "" {
			columns = append(columns, rollup.CountAs)
		}
		for _, col := range columns {
			if !ValidIdentifier(col) {
				return fmt.Errorf("invalid config: rollup %q references invalid identifier %q", rollup.Name, col)
			}
		}

		hasMetric := len(rollup.Sums) > 0 || len(rollup.DistinctCounts) > 0 ||
			rollup.CountAs != "" || len(rollup.Ratios) > 0
		if !hasMetric {
			return fmt.Errorf("invalid config: rollup %q defines no metrics", rollup.Name)
		}

		for _, ratio := range rollup.Ratios {
			if !ValidIdentifier(ratio.Name) {
				return fmt.Errorf("invalid config: ratio name %q is not a valid identifier", ratio.Name)
			}
			if !ValidIdentifier(ratio.Numerator) || !ValidIdentifier(ratio.Denominator) {
				return fmt.Errorf("invalid config: ratio %q needs a numerator and denominator column", ratio.Name)
			}
		}
	}
	return nil
}
