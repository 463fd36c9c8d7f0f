package pipeline

// Layer names used for artifact addressing in the warehouse.
const (
	LayerBronze = "bronze"
	LayerSilver = "silver"
	LayerGold   = "gold"
)

// Quality policy defaults. Tables override these per-table in configuration;
// the constants live here rather than in the quality package so the policy
// stays a pipeline decision.
const (
	// DefaultCompletenessThreshold is the pass bar for completeness checks,
	// as a fraction of non-null cells.
	DefaultCompletenessThreshold = 0.95

	// AutoRangeLimit caps how many numeric columns get self-calibrated
	// range checks when no explicit ranges are configured.
	AutoRangeLimit = 5

	// DefaultDateLayout is the expected date format when a table does not
	// configure one.
	DefaultDateLayout = "2006-01-02"
)

// Lineage column names added during ingestion.
const (
	ColIngestionTimestamp = "ingestion_timestamp"
	ColSourceFile         = "source_file"
	ColRecordHash         = "record_hash"
)

// Cleansing column names added during the silver stage.
const (
	ColHasNullValues     = "has_null_values"
	ColSilverProcessedAt = "silver_processed_at"
)

// lineageColumn reports whether a column carries lineage metadata rather
// than source data.
func lineageColumn(name string) bool {
	switch name {
	case ColIngestionTimestamp, ColSourceFile, ColRecordHash:
		return true
	}
	return false
}
