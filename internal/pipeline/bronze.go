package pipeline

// bronze.go - ingestion stage: raw CSV to bronze artifacts with lineage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/strata-labs/strata/internal/config"
	"github.com/strata-labs/strata/internal/dataset"
)

// ErrSourceMissing reports that a table's input file does not exist. Absence
// is a skip condition, never a run failure.
var ErrSourceMissing = errors.New("source file missing")

// Ingest reads a table's raw CSV file, stamps lineage metadata onto every
// record, and persists the result as bronze.<table>. Source values are
// preserved as read; no cleansing happens here.
func (e *Engine) Ingest(ctx context.Context, table config.TableConfig) (*dataset.Dataset, error) {
	path := filepath.Join(e.cfg.SourceDir, table.SourceFile())
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrSourceMissing)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	ds, err := dataset.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Record hashes cover the source values only, computed before the
	// lineage columns are appended so re-ingesting identical data yields
	// identical hashes.
	now := time.Now().UTC()
	ingested := make([]any, ds.NumRows())
	sources := make([]any, ds.NumRows())
	hashes := make([]any, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		ingested[i] = now
		sources[i] = filepath.Base(path)
		hashes[i] = ds.RowHash(i)
	}

	ds, err = ds.WithColumn(ColIngestionTimestamp, dataset.TypeTimestamp, ingested)
	if err != nil {
		return nil, err
	}
	ds, err = ds.WithColumn(ColSourceFile, dataset.TypeString, sources)
	if err != nil {
		return nil, err
	}
	ds, err = ds.WithColumn(ColRecordHash, dataset.TypeString, hashes)
	if err != nil {
		return nil, err
	}

	wh, err := e.Warehouse(ctx)
	if err != nil {
		return nil, err
	}
	if err := wh.WriteDataset(ctx, LayerBronze, table.Name, ds); err != nil {
		return nil, fmt.Errorf("failed to write bronze artifact for %s: %w", table.Name, err)
	}

	e.logger.Info("ingested", "table", table.Name, "source", path, "rows", ds.NumRows())
	return ds, nil
}
