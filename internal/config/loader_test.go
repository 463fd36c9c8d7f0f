package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceDir, cfg.SourceDir)
	assert.Equal(t, DefaultWarehouse, cfg.Warehouse)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultJobs, cfg.Jobs)
	assert.Empty(t, cfg.Tables)
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `
source_dir: input
warehouse: wh.duckdb
jobs: 4
tables:
  - name: orders
    dedup_keys: [order_id]
    date_layout: "2006-01-02"
    ranges:
      amount: {min: 0, max: 10000}
    categorical:
      status: [open, closed]
    rollups:
      - name: daily_orders
        time_bucket: order_date
        group_by: [status]
        sums: [amount]
        distinct_counts: [customer_id]
        count_as: order_count
        ratios:
          - name: margin_pct
            numerator: profit
            denominator: amount
            percent: true
  - name: customers
    source: customers_export.csv
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "input", cfg.SourceDir)
	assert.Equal(t, "wh.duckdb", cfg.Warehouse)
	assert.Equal(t, 4, cfg.Jobs)
	require.Len(t, cfg.Tables, 2)

	orders := cfg.Tables[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, "orders.csv", orders.SourceFile())
	assert.Equal(t, []string{"order_id"}, orders.DedupKeys)
	assert.Equal(t, RangeRule{Min: 0, Max: 10000}, orders.Ranges["amount"])
	assert.Equal(t, []string{"open", "closed"}, orders.Categorical["status"])

	require.Len(t, orders.Rollups, 1)
	rollup := orders.Rollups[0]
	assert.Equal(t, "daily_orders", rollup.Name)
	assert.Equal(t, "order_date", rollup.TimeBucket)
	assert.Equal(t, "order_count", rollup.CountAs)
	require.Len(t, rollup.Ratios, 1)
	assert.True(t, rollup.Ratios[0].Percent)

	assert.Equal(t, "customers_export.csv", cfg.Tables[1].SourceFile())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	ResetConfig()
	t.Setenv("STRATA_SOURCE_DIR", "/env/source")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/env/source", cfg.SourceDir)
}

func TestLoadConfigFlagOverride(t *testing.T) {
	ResetConfig()
	t.Setenv("STRATA_WAREHOUSE", "/env/wh.duckdb")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("warehouse", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--warehouse", "/flag/wh.duckdb", "--state", "/flag/state.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	// Flags beat env vars
	assert.Equal(t, "/flag/wh.duckdb", cfg.Warehouse)
	// --state maps to state_path
	assert.Equal(t, "/flag/state.db", cfg.StatePath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Jobs: 1,
			Tables: []TableConfig{{
				Name: "orders",
				Rollups: []RollupConfig{{
					Name:    "daily",
					GroupBy: []string{"status"},
					Sums:    []string{"amount"},
				}},
			}},
		}
	}

	assert.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero jobs", func(c *Config) { c.Jobs = 0 }},
		{"empty table name", func(c *Config) { c.Tables[0].Name = "" }},
		{"bad table name", func(c *Config) { c.Tables[0].Name = "or;ders" }},
		{"duplicate tables", func(c *Config) { c.Tables = append(c.Tables, c.Tables[0]) }},
		{"min above max", func(c *Config) {
			c.Tables[0].Ranges = map[string]RangeRule{"amount": {Min: 10, Max: 1}}
		}},
		{"rollup without name", func(c *Config) { c.Tables[0].Rollups[0].Name = "" }},
		{"rollup without metrics", func(c *Config) {
			c.Tables[0].Rollups[0].Sums = nil
		}},
		{"bad rollup column", func(c *Config) {
			c.Tables[0].Rollups[0].Sums = []string{"amount; DROP TABLE x"}
		}},
		{"ratio missing denominator", func(c *Config) {
			c.Tables[0].Rollups[0].Ratios = []RatioConfig{{Name: "r", Numerator: "a"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("orders"))
	assert.True(t, ValidIdentifier("_private2"))
	assert.False(t, ValidIdentifier("2fast"))
	assert.False(t, ValidIdentifier("a-b"))
	assert.False(t, ValidIdentifier(""))
}
