package pipeline

// silver.go - cleansing stage: bronze to silver with quality checks

import (
	"context"
	"fmt"
	"time"

	"github.com/strata-labs/strata/internal/config"
	"github.com/strata-labs/strata/internal/dataset"
	"github.com/strata-labs/strata/internal/quality"
)

// Cleanse transforms a table's bronze data into its silver artifact:
// duplicates are removed keep-first on the dedup keys, date columns are
// standardized to typed timestamps, quality flags are appended, and the full
// quality check battery runs against the deduplicated data. The bronze input
// is not modified.
func (e *Engine) Cleanse(ctx context.Context, table config.TableConfig, bronze *dataset.Dataset) (*dataset.Dataset, *quality.Report, error) {
	e.logNullCounts(table.Name, bronze)

	keys := e.dedupKeys(table, bronze)
	ds, removed := dedupe(bronze, keys)
	if removed > 0 {
		e.logger.Info("removed duplicates", "table", table.Name, "count", removed, "keys", keys)
	}

	ds, err := standardizeDates(ds, e.dateLayout(table))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to standardize dates for %s: %w", table.Name, err)
	}

	report := quality.RunAll(ds, quality.RunConfig{
		CompletenessThreshold: DefaultCompletenessThreshold,
		KeyColumns:            keys,
		Ranges:                qualityRanges(table),
		AutoRangeLimit:        AutoRangeLimit,
		DateLayout:            e.dateLayout(table),
		Categorical:           table.Categorical,
	})
	e.logger.Info("quality checked", "table", table.Name,
		"overall_score", report.OverallScore(), "checks", report.ChecksRun())

	ds, err = appendFlags(ds, table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to flag %s: %w", table.Name, err)
	}

	wh, err := e.Warehouse(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := wh.WriteDataset(ctx, LayerSilver, table.Name, ds); err != nil {
		return nil, nil, fmt.Errorf("failed to write silver artifact for %s: %w", table.Name, err)
	}

	e.logger.Info("cleansed", "table", table.Name, "rows", ds.NumRows())
	return ds, report, nil
}

// dedupKeys resolves a table's dedup key columns: the configured keys, or
// the first source column when none are configured.
func (e *Engine) dedupKeys(table config.TableConfig, ds *dataset.Dataset) []string {
	if len(table.DedupKeys) > 0 {
		return table.DedupKeys
	}
	for _, col := range ds.Columns() {
		if !lineageColumn(col.Name) {
			return []string{col.Name}
		}
	}
	return nil
}

// dateLayout resolves a table's expected date format.
func (e *Engine) dateLayout(table config.TableConfig) string {
	if table.DateLayout != "" {
		return table.DateLayout
	}
	return DefaultDateLayout
}

// qualityRanges converts configured range rules into quality check rules.
func qualityRanges(table config.TableConfig) map[string]quality.RangeRule {
	if len(table.Ranges) == 0 {
		return nil
	}
	out := make(map[string]quality.RangeRule, len(table.Ranges))
	for col, rule := range table.Ranges {
		out[col] = quality.RangeRule{Min: rule.Min, Max: rule.Max}
	}
	return out
}

// logNullCounts reports per-column null density before cleansing.
func (e *Engine) logNullCounts(table string, ds *dataset.Dataset) {
	for _, col := range ds.Columns() {
		values, _ := ds.ColumnValues(col.Name)
		n := 0
		for _, v := range values {
			if dataset.IsNull(v) {
				n++
			}
		}
		if n > 0 {
			e.logger.Debug("null values found", "table", table, "column", col.Name,
				"count", n, "percent", float64(n)/float64(ds.NumRows())*100)
		}
	}
}

// dedupe removes duplicate records keep-first on the key columns: the first
// occurrence of each key tuple survives in original order. Returns the
// deduplicated dataset and the number of rows removed. Running it twice is a
// no-op.
func dedupe(ds *dataset.Dataset, keys []string) (*dataset.Dataset, int) {
	var valid []string
	for _, k := range keys {
		if ds.HasColumn(k) {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return ds, 0
	}

	seen := make(map[string]bool, ds.NumRows())
	out := ds.Filter(func(row int) bool {
		key := quality.KeyTuple(ds, valid, row)
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
	return out, ds.NumRows() - out.NumRows()
}

// standardizeDates converts string-typed date columns to typed timestamps.
// Values that parse against the expected layout (or any known layout) become
// time.Time; values that do not become null.
func standardizeDates(ds *dataset.Dataset, layout string) (*dataset.Dataset, error) {
	for _, col := range ds.Columns() {
		if !dataset.IsDateColumn(col.Name) || col.Type != dataset.TypeString {
			continue
		}
		var err error
		ds, err = ds.MapColumn(col.Name, dataset.TypeTimestamp, func(v any) any {
			switch t := v.(type) {
			case nil:
				return nil
			case time.Time:
				return t
			case string:
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed.UTC()
				}
				if parsed, ok := dataset.ParseTimestamp(t); ok {
					return parsed
				}
				return nil
			default:
				return nil
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// appendFlags adds the cleansing marker columns: a per-row null indicator
// over the source columns, one out-of-range flag per configured range rule,
// and the processing timestamp.
func appendFlags(ds *dataset.Dataset, table config.TableConfig) (*dataset.Dataset, error) {
	var dataCols []int
	for i, col := range ds.Columns() {
		if !lineageColumn(col.Name) {
			dataCols = append(dataCols, i)
		}
	}

	hasNull := make([]any, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		flag := false
		for _, c := range dataCols {
			if dataset.IsNull(ds.Value(i, c)) {
				flag = true
				break
			}
		}
		hasNull[i] = flag
	}
	ds, err := ds.WithColumn(ColHasNullValues, dataset.TypeBool, hasNull)
	if err != nil {
		return nil, err
	}

	// Flag columns follow dataset column order for deterministic schemas.
	for _, col := range ds.Columns() {
		rule, ok := table.Ranges[col.Name]
		if !ok {
			continue
		}
		flags := make([]any, ds.NumRows())
		idx, _ := ds.ColumnIndex(col.Name)
		for i := 0; i < ds.NumRows(); i++ {
			v := ds.Value(i, idx)
			if dataset.IsNull(v) {
				flags[i] = false
				continue
			}
			f, coerced := dataset.AsFloat(v)
			flags[i] = coerced && (f < rule.Min || f > rule.Max)
		}
		ds, err = ds.WithColumn(col.Name+"_out_of_range", dataset.TypeBool, flags)
		if err != nil {
			return nil, err
		}
	}

	processed := make([]any, ds.NumRows())
	now := time.Now().UTC()
	for i := range processed {
		processed[i] = now
	}
	return ds.WithColumn(ColSilverProcessedAt, dataset.TypeTimestamp, processed)
}
