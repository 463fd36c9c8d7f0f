package pipeline

// gold.go - aggregation stage: silver artifacts to gold rollups

import (
	"context"
	"fmt"
	"strings"

	"github.com/strata-labs/strata/internal/config"
)

// Aggregate materializes each configured rollup of a table as a gold-layer
// artifact, compiled to a single aggregation query over the silver data.
// Returns per-rollup row counts.
func (e *Engine) Aggregate(ctx context.Context, table config.TableConfig) (map[string]int64, error) {
	if len(table.Rollups) == 0 {
		return nil, nil
	}

	wh, err := e.Warehouse(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(table.Rollups))
	for _, rollup := range table.Rollups {
		sql := compileRollup(table.Name, rollup)
		e.logger.Debug("materializing rollup", "table", table.Name, "rollup", rollup.Name, "sql", sql)

		n, err := wh.CreateTableAs(ctx, LayerGold, rollup.Name, sql)
		if err != nil {
			return counts, fmt.Errorf("failed to build rollup %s: %w", rollup.Name, err)
		}
		counts[rollup.Name] = n
		e.logger.Info("aggregated", "table", table.Name, "rollup", rollup.Name, "rows", n)
	}
	return counts, nil
}

// compileRollup builds the aggregation SELECT for one rollup over the silver
// artifact. Grouping keys come first, then metrics; results are ordered by
// the grouping keys so rollup artifacts are deterministic.
func compileRollup(table string, rollup config.RollupConfig) string {
	var selects, groups []string

	if rollup.TimeBucket != "" {
		expr := fmt.Sprintf("date_trunc('day', %q)", rollup.TimeBucket)
		selects = append(selects, fmt.Sprintf("%s AS %q", expr, rollup.TimeBucket+"_day"))
		groups = append(groups, expr)
	}
	for _, col := range rollup.GroupBy {
		selects = append(selects, fmt.Sprintf("%q", col))
		groups = append(groups, fmt.Sprintf("%q", col))
	}

	if rollup.CountAs != "" {
		selects = append(selects, fmt.Sprintf("COUNT(*) AS %q", rollup.CountAs))
	}
	for _, col := range rollup.Sums {
		selects = append(selects, fmt.Sprintf("SUM(%q) AS %q", col, "total_"+col))
	}
	for _, col := range rollup.DistinctCounts {
		selects = append(selects, fmt.Sprintf("COUNT(DISTINCT %q) AS %q", col, "unique_"+col))
	}
	for _, ratio := range rollup.Ratios {
		// NULLIF guards the zero-denominator groups; they aggregate to NULL.
		expr := fmt.Sprintf("SUM(%q) / NULLIF(SUM(%q), 0)", ratio.Numerator, ratio.Denominator)
		if ratio.Percent {
			expr += " * 100"
		}
		selects = append(selects, fmt.Sprintf("%s AS %q", expr, ratio.Name))
	}

	sql := fmt.Sprintf("SELECT %s FROM %s.%q", strings.Join(selects, ", "), LayerSilver, table)
	if len(groups) > 0 {
		sql += " GROUP BY " + strings.Join(groups, ", ")
		sql += " ORDER BY " + strings.Join(groups, ", ")
	}
	return sql
}
