package pipeline

// check.go - standalone quality checking outside a run

import (
	"context"
	"fmt"

	"github.com/strata-labs/strata/internal/config"
	"github.com/strata-labs/strata/internal/dataset"
	"github.com/strata-labs/strata/internal/quality"
)

// CheckTable runs the quality battery against a table's current silver
// artifact, falling back to bronze when the table has not been cleansed yet.
// No artifacts are written and no run is recorded.
func (e *Engine) CheckTable(ctx context.Context, name string) (*quality.Report, error) {
	table, ok := e.tableConfig(name)
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", name)
	}

	wh, err := e.Warehouse(ctx)
	if err != nil {
		return nil, err
	}

	layer := LayerSilver
	exists, err := wh.Exists(ctx, layer, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		layer = LayerBronze
	}

	ds, err := wh.ReadDataset(ctx, layer, name)
	if err != nil {
		return nil, fmt.Errorf("no artifact for table %s: %w", name, err)
	}

	e.logger.Debug("checking artifact", "table", name, "layer", layer, "rows", ds.NumRows())
	return quality.RunAll(ds, e.runConfigFor(table)), nil
}

// CheckFile runs the quality battery against a raw CSV file using the given
// table's configuration, or pipeline defaults when name is empty.
func (e *Engine) CheckFile(path, name string) (*quality.Report, error) {
	ds, err := dataset.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := quality.RunConfig{
		CompletenessThreshold: DefaultCompletenessThreshold,
		AutoRangeLimit:        AutoRangeLimit,
		DateLayout:            DefaultDateLayout,
	}
	if table, ok := e.tableConfig(name); ok {
		cfg = e.runConfigFor(table)
	}
	return quality.RunAll(ds, cfg), nil
}

// runConfigFor builds the quality run configuration for one table, merging
// its overrides with the pipeline defaults.
func (e *Engine) runConfigFor(table config.TableConfig) quality.RunConfig {
	return quality.RunConfig{
		CompletenessThreshold: DefaultCompletenessThreshold,
		KeyColumns:            table.DedupKeys,
		Ranges:                qualityRanges(table),
		AutoRangeLimit:        AutoRangeLimit,
		DateLayout:            e.dateLayout(table),
		Categorical:           table.Categorical,
	}
}
