package config

// Default configuration values.
const (
	DefaultSourceDir = "data/raw"
	DefaultWarehouse = ".strata/warehouse.duckdb"
	DefaultStateFile = ".strata/state.db"
	DefaultJobs      = 1
	DefaultOutput    = "text"
)
