// Package dataset provides the column-oriented tabular structure that flows
// through the pipeline layers. Schemas are inferred at ingestion and carried
// through each stage; cell values are dynamically typed (string, float64,
// bool, time.Time, or nil for missing).
package dataset

import (
	"fmt"
	"strings"
)

// Type is the declared type of a column, resolved once at ingestion.
type Type string

// Column types.
const (
	TypeString    Type = "string"
	TypeFloat     Type = "float"
	TypeBool      Type = "bool"
	TypeTimestamp Type = "timestamp"
)

// Column describes one column of a Dataset.
type Column struct {
	Name string
	Type Type
}

// Dataset is an ordered collection of records over a fixed set of columns.
// Stages never mutate a Dataset they received; transforms return a new one.
type Dataset struct {
	cols   []Column
	byName map[string]int
	rows   [][]any
}

// New creates an empty Dataset with the given columns.
func New(cols []Column) *Dataset {
	d := &Dataset{
		cols:   make([]Column, len(cols)),
		byName: make(map[string]int, len(cols)),
	}
	copy(d.cols, cols)
	for i, c := range d.cols {
		d.byName[c.Name] = i
	}
	return d
}

// Columns returns a copy of the column definitions.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.cols))
	copy(out, d.cols)
	return out
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of a named column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.byName[name]
	return i, ok
}

// HasColumn reports whether a column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// NumRows returns the number of records.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.cols) }

// AppendRow adds a record. The value count must match the column count.
func (d *Dataset) AppendRow(values []any) error {
	if len(values) != len(d.cols) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(values), len(d.cols))
	}
	row := make([]any, len(values))
	copy(row, values)
	d.rows = append(d.rows, row)
	return nil
}

// Row returns a copy of record i.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.rows[i]))
	copy(out, d.rows[i])
	return out
}

// Value returns the cell at (row, col). nil means missing.
func (d *Dataset) Value(row, col int) any {
	return d.rows[row][col]
}

// ColumnValues returns all values of a named column in row order.
func (d *Dataset) ColumnValues(name string) ([]any, bool) {
	idx, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(d.rows))
	for i, row := range d.rows {
		out[i] = row[idx]
	}
	return out, true
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := New(d.cols)
	out.rows = make([][]any, len(d.rows))
	for i, row := range d.rows {
		r := make([]any, len(row))
		copy(r, row)
		out.rows[i] = r
	}
	return out
}

// Filter returns a new Dataset containing only the rows for which keep
// returns true, preserving original row order.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	out := New(d.cols)
	for i, row := range d.rows {
		if keep(i) {
			r := make([]any, len(row))
			copy(r, row)
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// WithColumn returns a new Dataset with an additional column appended.
// values must have one entry per row.
func (d *Dataset) WithColumn(name string, typ Type, values []any) (*Dataset, error) {
	if len(values) != len(d.rows) {
		return nil, fmt.Errorf("column %q has %d values, dataset has %d rows", name, len(values), len(d.rows))
	}
	if d.HasColumn(name) {
		return nil, fmt.Errorf("column %q already exists", name)
	}
	out := New(append(d.Columns(), Column{Name: name, Type: typ}))
	out.rows = make([][]any, len(d.rows))
	for i, row := range d.rows {
		r := make([]any, len(row)+1)
		copy(r, row)
		r[len(row)] = values[i]
		out.rows[i] = r
	}
	return out, nil
}

// MapColumn returns a new Dataset with the named column's values replaced by
// fn(value) and its type set to typ. Returns an error if the column is absent.
func (d *Dataset) MapColumn(name string, typ Type, fn func(any) any) (*Dataset, error) {
	idx, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := d.Clone()
	out.cols[idx].Type = typ
	for i := range out.rows {
		out.rows[i][idx] = fn(out.rows[i][idx])
	}
	return out, nil
}

// IsNull reports whether a cell value is missing.
func IsNull(v any) bool { return v == nil }

// IsDateColumn reports whether a column name matches the temporal heuristic
// used by both the cleansing stage and the date-format quality check.
func IsDateColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), "date")
}
