// Package pipeline implements the layered pipeline: raw CSV files are
// ingested into the bronze layer with lineage metadata, cleansed and
// quality-checked into the silver layer, and aggregated into gold rollups.
// Each configured table moves through the layers independently.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strata-labs/strata/internal/artifact"
	"github.com/strata-labs/strata/internal/config"
	"github.com/strata-labs/strata/internal/state"
)

// Engine orchestrates pipeline runs.
type Engine struct {
	cfg    *config.Config
	store  state.Store
	logger *slog.Logger

	// Warehouse connection (lazy initialized)
	warehouse *artifact.Store
	whMu      sync.Mutex
}

// New creates an engine with a lazy warehouse connection. The state store is
// opened immediately; the warehouse is only opened when a run or read needs
// it.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine",
		"source_dir", cfg.SourceDir, "warehouse", cfg.Warehouse, "tables", len(cfg.Tables))

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &Engine{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}, nil
}

// Close releases the engine's state store and warehouse connections.
func (e *Engine) Close() error {
	var firstErr error
	e.whMu.Lock()
	if e.warehouse != nil {
		firstErr = e.warehouse.Close()
		e.warehouse = nil
	}
	e.whMu.Unlock()

	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Store returns the engine's state store.
func (e *Engine) Store() state.Store {
	return e.store
}

// Warehouse returns the warehouse connection, opening it on first use.
func (e *Engine) Warehouse(ctx context.Context) (*artifact.Store, error) {
	e.whMu.Lock()
	defer e.whMu.Unlock()

	if e.warehouse != nil {
		return e.warehouse, nil
	}

	wh, err := artifact.Open(ctx, e.cfg.Warehouse, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	e.warehouse = wh
	return wh, nil
}

// tableConfig looks up one table's configuration by name.
func (e *Engine) tableConfig(name string) (config.TableConfig, bool) {
	for _, t := range e.cfg.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return config.TableConfig{}, false
}
