package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVTypeInference(t *testing.T) {
	input := `id,amount,active,signup_date,name
1,10.5,true,2024-01-15,alice
2,20,false,2024-02-20,bob
3,,true,,carol
`
	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, 5, ds.NumCols())

	types := map[string]Type{}
	for _, c := range ds.Columns() {
		types[c.Name] = c.Type
	}
	assert.Equal(t, TypeFloat, types["id"])
	assert.Equal(t, TypeFloat, types["amount"])
	assert.Equal(t, TypeBool, types["active"])
	assert.Equal(t, TypeTimestamp, types["signup_date"])
	assert.Equal(t, TypeString, types["name"])

	// Empty cells become missing
	values, ok := ds.ColumnValues("amount")
	require.True(t, ok)
	assert.Equal(t, 10.5, values[0])
	assert.Nil(t, values[2])

	dates, _ := ds.ColumnValues("signup_date")
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Nil(t, dates[2])
}

func TestReadCSVRaggedRows(t *testing.T) {
	input := "a,b,c\n1,2\n1,2,3,4\n"
	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, ds.NumRows())
	assert.Equal(t, 3, ds.NumCols())

	// Short rows are padded with missing values
	assert.Nil(t, ds.Value(0, 2))
	// Long rows are truncated
	assert.Equal(t, 3.0, ds.Value(1, 2))
}

func TestReadCSVEmptyFile(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.NumRows())
	assert.Equal(t, 2, ds.NumCols())
}

func TestRecordHashDeterministic(t *testing.T) {
	row := []any{"alice", 42.0, true}
	assert.Equal(t, RecordHash(row), RecordHash(row))
}

func TestRecordHashSensitivity(t *testing.T) {
	tests := []struct {
		name string
		a, b []any
		same bool
	}{
		{"identical", []any{"a", 1.0}, []any{"a", 1.0}, true},
		{"value change", []any{"a", 1.0}, []any{"a", 2.0}, false},
		{"order change", []any{"a", "b"}, []any{"b", "a"}, false},
		{"nil vs empty string", []any{nil}, []any{""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, RecordHash(tt.a), RecordHash(tt.b))
			} else {
				assert.NotEqual(t, RecordHash(tt.a), RecordHash(tt.b))
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hello", "hello"},
		{42.0, "42"},
		{10.5, "10.5"},
		{true, "true"},
		{ts, "2024-03-01T12:00:00Z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.True(t, got.Equal(tt.want), tt.in)
		}
	}
}

func TestFilterAndWithColumn(t *testing.T) {
	ds := New([]Column{{Name: "x", Type: TypeFloat}})
	for _, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, ds.AppendRow([]any{v}))
	}

	even := ds.Filter(func(row int) bool {
		f, _ := AsFloat(ds.Value(row, 0))
		return int(f)%2 == 0
	})
	assert.Equal(t, 2, even.NumRows())
	assert.Equal(t, 4, ds.NumRows()) // original untouched

	flagged, err := even.WithColumn("flag", TypeBool, []any{true, false})
	require.NoError(t, err)
	assert.Equal(t, 2, flagged.NumCols())
	assert.False(t, even.HasColumn("flag"))

	_, err = flagged.WithColumn("flag", TypeBool, []any{true, false})
	assert.Error(t, err)
}

func TestMapColumn(t *testing.T) {
	ds := New([]Column{{Name: "d", Type: TypeString}})
	require.NoError(t, ds.AppendRow([]any{"2024-01-15"}))
	require.NoError(t, ds.AppendRow([]any{"junk"}))

	out, err := ds.MapColumn("d", TypeTimestamp, func(v any) any {
		s, _ := v.(string)
		if ts, ok := ParseTimestamp(s); ok {
			return ts
		}
		return nil
	})
	require.NoError(t, err)

	cols := out.Columns()
	assert.Equal(t, TypeTimestamp, cols[0].Type)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), out.Value(0, 0))
	assert.Nil(t, out.Value(1, 0))

	_, err = ds.MapColumn("missing", TypeString, func(v any) any { return v })
	assert.Error(t, err)
}

func TestIsDateColumn(t *testing.T) {
	assert.True(t, IsDateColumn("signup_date"))
	assert.True(t, IsDateColumn("DateOfBirth"))
	assert.False(t, IsDateColumn("amount"))
}
