// Package artifact persists datasets as typed, columnar, self-describing
// tables in a DuckDB warehouse. Each pipeline layer is a schema and each
// logical table is a table within it, addressed as <layer>.<table>.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/strata-labs/strata/internal/dataset"
)

// ErrNotFound is returned when a layer/table artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store is a DuckDB-backed artifact store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open connects to the warehouse at path. Use ":memory:" for an ephemeral
// in-memory warehouse.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb warehouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb warehouse: %w", err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the warehouse connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WriteDataset persists a dataset as <layer>.<table>, replacing any previous
// artifact at that address. The table is created schema-on-write with one
// typed column per dataset column.
func (s *Store) WriteDataset(ctx context.Context, layer, table string, ds *dataset.Dataset) error {
	if s.db == nil {
		return fmt.Errorf("warehouse not opened")
	}
	qualified := layer + "." + table

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", layer)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", layer, err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", qualified, err)
	}

	cols := ds.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%q %s", c.Name, duckdbType(c.Type))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create %s: %w", qualified, err)
	}

	if ds.NumRows() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", qualified, placeholders)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", qualified, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < ds.NumRows(); i++ {
		if _, err := stmt.ExecContext(ctx, ds.Row(i)...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, qualified, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert into %s: %w", qualified, err)
	}

	s.logger.Debug("artifact written", "layer", layer, "table", table, "rows", ds.NumRows())
	return nil
}

// ReadDataset loads <layer>.<table> back into a dataset with full round-trip
// fidelity: identical row count, column set, and per-cell values. Returns
// ErrNotFound if the artifact does not exist.
func (s *Store) ReadDataset(ctx context.Context, layer, table string) (*dataset.Dataset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("warehouse not opened")
	}

	cols, err := s.columnMetadata(ctx, layer, table)
	if err != nil {
		return nil, err
	}

	qualified := layer + "." + table
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = fmt.Sprintf("%q", c.Name)
	}
	//nolint:gosec // identifiers are validated at config load
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), qualified))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", qualified, err)
	}
	defer func() { _ = rows.Close() }()

	ds := dataset.New(cols)
	for rows.Next() {
		scan := make([]any, len(cols))
		for i := range scan {
			scan[i] = scanTarget(cols[i].Type)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", qualified, err)
		}
		values := make([]any, len(cols))
		for i, sc := range scan {
			values[i] = scannedValue(sc)
		}
		if err := ds.AppendRow(values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", qualified, err)
	}

	return ds, nil
}

// Exists reports whether <layer>.<table> has been written.
func (s *Store) Exists(ctx context.Context, layer, table string) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("warehouse not opened")
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?`,
		layer, table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check %s.%s: %w", layer, table, err)
	}
	return n > 0, nil
}

// RowCount returns the number of rows in <layer>.<table>.
func (s *Store) RowCount(ctx context.Context, layer, table string) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("warehouse not opened")
	}
	var count int64
	//nolint:gosec // identifiers are validated at config load
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", layer, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s.%s: %w", layer, table, err)
	}
	return count, nil
}

// CreateTableAs materializes a SELECT statement as <layer>.<name>, replacing
// any previous artifact, and returns the resulting row count. Used by the
// aggregation stage for rollups.
func (s *Store) CreateTableAs(ctx context.Context, layer, name, selectSQL string) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("warehouse not opened")
	}
	qualified := layer + "." + name

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", layer)); err != nil {
		return 0, fmt.Errorf("failed to create schema %s: %w", layer, err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)); err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", qualified, err)
	}
	//nolint:gosec // selectSQL is generated by the rollup compiler, not user input
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", qualified, selectSQL)); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", qualified, err)
	}

	count, err := s.RowCount(ctx, layer, name)
	if err != nil {
		return 0, nil // table created but count unavailable
	}
	return count, nil
}

// columnMetadata reads the column set of <layer>.<table> from the
// information schema. Returns ErrNotFound when the table is absent.
func (s *Store) columnMetadata(ctx context.Context, layer, table string) ([]dataset.Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, layer, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []dataset.Column
	for rows.Next() {
		var name, dbType string
		if err := rows.Scan(&name, &dbType); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, dataset.Column{Name: name, Type: datasetType(dbType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", layer, table, ErrNotFound)
	}
	return cols, nil
}

// duckdbType maps a dataset column type to its DuckDB storage type.
func duckdbType(t dataset.Type) string {
	switch t {
	case dataset.TypeFloat:
		return "DOUBLE"
	case dataset.TypeBool:
		return "BOOLEAN"
	case dataset.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// datasetType maps a DuckDB data type back to a dataset column type.
func datasetType(dbType string) dataset.Type {
	switch strings.ToUpper(dbType) {
	case "DOUBLE", "FLOAT", "REAL", "BIGINT", "INTEGER", "SMALLINT", "TINYINT", "HUGEINT", "DECIMAL":
		return dataset.TypeFloat
	case "BOOLEAN":
		return dataset.TypeBool
	case "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "DATE":
		return dataset.TypeTimestamp
	default:
		return dataset.TypeString
	}
}

// scanTarget allocates a nullable scan destination for a column type.
func scanTarget(t dataset.Type) any {
	switch t {
	case dataset.TypeFloat:
		return &sql.NullFloat64{}
	case dataset.TypeBool:
		return &sql.NullBool{}
	case dataset.TypeTimestamp:
		return &sql.NullTime{}
	default:
		return &sql.NullString{}
	}
}

// scannedValue converts a scan destination back to a dataset cell value.
func scannedValue(sc any) any {
	switch t := sc.(type) {
	case *sql.NullFloat64:
		if t.Valid {
			return t.Float64
		}
	case *sql.NullBool:
		if t.Valid {
			return t.Bool
		}
	case *sql.NullTime:
		if t.Valid {
			return t.Time.UTC()
		}
	case *sql.NullString:
		if t.Valid {
			return t.String
		}
	}
	return nil
}
