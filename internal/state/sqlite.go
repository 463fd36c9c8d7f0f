package state

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver (pure Go)
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc.org/sqlite returns SQLITE_BUSY on concurrent writes from
	// separate pooled connections, and gives each connection its own
	// database in :memory: mode; a single connection avoids both.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Run operations ---

// CreateRun creates a new pipeline run.
func (s *SQLiteStore) CreateRun() (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, status, started_at, completed_at, error FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// CompleteRun marks a run as completed with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, now, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, status, started_at, completed_at, error FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// --- Table run operations ---

// CreateTableRun records a logical table entering a run in the Pending state.
func (s *SQLiteStore) CreateTableRun(runID, table string) (*TableRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	tr := &TableRun{
		ID:        generateID(),
		RunID:     runID,
		Table:     table,
		Status:    TableStatusPending,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO table_runs (id, run_id, table_name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		tr.ID, tr.RunID, tr.Table, tr.Status, tr.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create table run: %w", err)
	}
	return tr, nil
}

// UpdateTableRun advances a table run's status and row counts. Terminal
// statuses also stamp the completion time.
func (s *SQLiteStore) UpdateTableRun(id string, status TableStatus, rowsBronze, rowsSilver int64, detail string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var completedAt *time.Time
	switch status {
	case TableStatusAggregated, TableStatusSkipped, TableStatusFailed:
		now := time.Now().UTC()
		completedAt = &now
	}

	result, err := s.db.Exec(
		`UPDATE table_runs SET status = ?, rows_bronze = ?, rows_silver = ?, detail = ?, completed_at = ? WHERE id = ?`,
		status, rowsBronze, rowsSilver, detail, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update table run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("table run not found: %s", id)
	}
	return nil
}

// GetTableRunsForRun retrieves all table runs for a run, ordered by start.
func (s *SQLiteStore) GetTableRunsForRun(runID string) ([]*TableRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, table_name, status, rows_bronze, rows_silver, detail, started_at, completed_at
		 FROM table_runs WHERE run_id = ? ORDER BY started_at, table_name`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get table runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*TableRun
	for rows.Next() {
		tr := &TableRun{}
		var completedAt sql.NullTime
		if err := rows.Scan(&tr.ID, &tr.RunID, &tr.Table, &tr.Status, &tr.RowsBronze, &tr.RowsSilver, &tr.Detail, &tr.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table run: %w", err)
		}
		if completedAt.Valid {
			tr.CompletedAt = &completedAt.Time
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table runs: %w", err)
	}
	return out, nil
}

// --- Quality report operations ---

// SaveQualityReport stores the cleansing-stage quality report for one table
// in a run. The report is opaque JSON produced by the quality engine.
func (s *SQLiteStore) SaveQualityReport(runID, table string, report []byte) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`INSERT INTO quality_reports (run_id, table_name, report, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, table_name) DO UPDATE SET report = excluded.report, created_at = excluded.created_at`,
		runID, table, string(report), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save quality report: %w", err)
	}
	return nil
}

// GetQualityReport retrieves the quality report for one table in one run.
func (s *SQLiteStore) GetQualityReport(runID, table string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var report string
	err := s.db.QueryRow(
		`SELECT report FROM quality_reports WHERE run_id = ? AND table_name = ?`,
		runID, table,
	).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quality report not found for run %s table %s", runID, table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quality report: %w", err)
	}
	return []byte(report), nil
}

// LatestQualityReport retrieves the most recent quality report for a table
// across all runs.
func (s *SQLiteStore) LatestQualityReport(table string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var report string
	err := s.db.QueryRow(
		`SELECT report FROM quality_reports WHERE table_name = ? ORDER BY created_at DESC LIMIT 1`,
		table,
	).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no quality report recorded for table %s", table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest quality report: %w", err)
	}
	return []byte(report), nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
