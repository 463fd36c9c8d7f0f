// Package state provides run-history state management using SQLite.
// It tracks pipeline runs, per-table stage progress, and the quality
// reports produced by the cleansing stage.
package state

import "time"

// Store defines the interface for state management operations.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun() (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(limit int) ([]*Run, error)

	// Table run operations
	CreateTableRun(runID, table string) (*TableRun, error)
	UpdateTableRun(id string, status TableStatus, rowsBronze, rowsSilver int64, detail string) error
	GetTableRunsForRun(runID string) ([]*TableRun, error)

	// Quality report operations
	SaveQualityReport(runID, table string, report []byte) error
	GetQualityReport(runID, table string) ([]byte, error)
	LatestQualityReport(table string) ([]byte, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one pipeline execution session.
type Run struct {
	ID          string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// TableStatus represents a logical table's position in the per-table state
// machine. A table whose input is absent becomes Skipped; absence is never a
// run-fatal condition.
type TableStatus string

// Table status constants.
const (
	TableStatusPending    TableStatus = "pending"
	TableStatusIngested   TableStatus = "ingested"
	TableStatusCleansed   TableStatus = "cleansed"
	TableStatusAggregated TableStatus = "aggregated"
	TableStatusSkipped    TableStatus = "skipped"
	TableStatusFailed     TableStatus = "failed"
)

// TableRun represents one logical table's progress within a run.
type TableRun struct {
	ID          string
	RunID       string
	Table       string
	Status      TableStatus
	RowsBronze  int64
	RowsSilver  int64
	Detail      string
	StartedAt   time.Time
	CompletedAt *time.Time
}
