package dataset

// csv.go - raw CSV ingestion with per-column type inference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSVFile reads a raw CSV file into a typed Dataset.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// ReadCSV reads header-mapped CSV data into a Dataset. Ragged rows are
// padded or truncated to the header width. Each column's type is inferred
// from its non-empty values (float, then bool, then timestamp, falling back
// to string); empty cells become missing.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	// Variable field counts are handled below by padding/truncating.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var raw [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			row = padded
		} else if len(row) > len(headers) {
			row = row[:len(headers)]
		}
		raw = append(raw, row)
	}

	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = Column{Name: h, Type: inferColumnType(raw, i)}
	}

	d := New(cols)
	d.rows = make([][]any, len(raw))
	for ri, row := range raw {
		typed := make([]any, len(cols))
		for ci, cell := range row {
			typed[ci] = convertCell(cell, cols[ci].Type)
		}
		d.rows[ri] = typed
	}
	return d, nil
}

// inferColumnType picks the narrowest type that every non-empty value of
// column ci satisfies.
func inferColumnType(rows [][]string, ci int) Type {
	seen := false
	isFloat, isBool, isTime := true, true, true
	for _, row := range rows {
		cell := strings.TrimSpace(row[ci])
		if cell == "" {
			continue
		}
		seen = true
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, err := strconv.ParseBool(cell); err != nil {
				isBool = false
			}
		}
		if isTime {
			if _, ok := ParseTimestamp(cell); !ok {
				isTime = false
			}
		}
		if !isFloat && !isBool && !isTime {
			break
		}
	}
	if !seen {
		return TypeString
	}
	switch {
	case isFloat:
		return TypeFloat
	case isBool:
		return TypeBool
	case isTime:
		return TypeTimestamp
	default:
		return TypeString
	}
}

// convertCell converts one raw cell to the column's inferred type.
// Unparsable values degrade to missing rather than erroring.
func convertCell(cell string, typ Type) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch typ {
	case TypeFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil
		}
		return f
	case TypeBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return nil
		}
		return b
	case TypeTimestamp:
		ts, ok := ParseTimestamp(cell)
		if !ok {
			return nil
		}
		return ts
	default:
		return cell
	}
}
