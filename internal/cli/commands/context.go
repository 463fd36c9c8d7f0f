package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/strata-labs/strata/internal/config"
	"github.com/strata-labs/strata/internal/pipeline"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		SourceDir: config.DefaultSourceDir,
		Warehouse: config.DefaultWarehouse,
		StatePath: config.DefaultStateFile,
		Jobs:      config.DefaultJobs,
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// createEngine creates a pipeline engine from the context's configuration.
func createEngine(ctx context.Context) (*pipeline.Engine, error) {
	cfg := GetConfig(ctx)

	// Ensure the state and warehouse directories exist
	for _, path := range []string{cfg.StatePath, cfg.Warehouse} {
		if path == "" || path == ":memory:" {
			continue
		}
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return pipeline.New(cfg, GetLogger(ctx))
}
