package artifact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-labs/strata/internal/dataset"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New([]dataset.Column{
		{Name: "name", Type: dataset.TypeString},
		{Name: "amount", Type: dataset.TypeFloat},
		{Name: "active", Type: dataset.TypeBool},
		{Name: "seen_at", Type: dataset.TypeTimestamp},
	})
	require.NoError(t, ds.AppendRow([]any{"alice", 10.5, true, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)}))
	require.NoError(t, ds.AppendRow([]any{"bob", nil, false, nil}))
	return ds
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	want := sampleDataset(t)
	require.NoError(t, s.WriteDataset(ctx, "bronze", "people", want))

	got, err := s.ReadDataset(ctx, "bronze", "people")
	require.NoError(t, err)

	assert.Equal(t, want.NumRows(), got.NumRows())
	assert.Equal(t, want.ColumnNames(), got.ColumnNames())
	for i := 0; i < want.NumRows(); i++ {
		for j := 0; j < want.NumCols(); j++ {
			wv, gv := want.Value(i, j), got.Value(i, j)
			if wt, ok := wv.(time.Time); ok {
				gt, ok := gv.(time.Time)
				require.True(t, ok)
				assert.True(t, wt.Equal(gt))
				continue
			}
			assert.Equal(t, wv, gv, "row %d col %d", i, j)
		}
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteDataset(ctx, "bronze", "t", sampleDataset(t)))

	small := dataset.New([]dataset.Column{{Name: "x", Type: dataset.TypeFloat}})
	require.NoError(t, small.AppendRow([]any{1.0}))
	require.NoError(t, s.WriteDataset(ctx, "bronze", "t", small))

	got, err := s.ReadDataset(ctx, "bronze", "t")
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumRows())
	assert.Equal(t, []string{"x"}, got.ColumnNames())
}

func TestWriteEmptyDataset(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	empty := dataset.New([]dataset.Column{{Name: "x", Type: dataset.TypeString}})
	require.NoError(t, s.WriteDataset(ctx, "silver", "empty", empty))

	got, err := s.ReadDataset(ctx, "silver", "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumRows())
	assert.Equal(t, 1, got.NumCols())
}

func TestReadMissingTable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadDataset(context.Background(), "bronze", "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExistsAndRowCount(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ok, err := s.Exists(ctx, "bronze", "people")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WriteDataset(ctx, "bronze", "people", sampleDataset(t)))

	ok, err = s.Exists(ctx, "bronze", "people")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.RowCount(ctx, "bronze", "people")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCreateTableAs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ds := dataset.New([]dataset.Column{
		{Name: "region", Type: dataset.TypeString},
		{Name: "amount", Type: dataset.TypeFloat},
	})
	require.NoError(t, ds.AppendRow([]any{"east", 10.0}))
	require.NoError(t, ds.AppendRow([]any{"east", 20.0}))
	require.NoError(t, ds.AppendRow([]any{"west", 5.0}))
	require.NoError(t, s.WriteDataset(ctx, "silver", "sales", ds))

	n, err := s.CreateTableAs(ctx, "gold", "by_region",
		`SELECT "region", SUM("amount") AS "total_amount" FROM silver."sales" GROUP BY "region" ORDER BY "region"`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.ReadDataset(ctx, "gold", "by_region")
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "total_amount"}, got.ColumnNames())
	assert.Equal(t, "east", got.Value(0, 0))
	assert.Equal(t, 30.0, got.Value(0, 1))
}
