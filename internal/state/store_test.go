package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(filepath.Join(t.TempDir(), "state.db")))
	require.NoError(t, s.InitSchema())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun()
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.CompleteRun(run.ID, RunStatusCompleted, ""))

	got, err = s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestCompleteRunWithError(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun()
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(run.ID, RunStatusFailed, "2 table(s) failed"))

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "2 table(s) failed", got.Error)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun("nonexistent")
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.CreateRun()
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestTableRunLifecycle(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun()
	require.NoError(t, err)

	tr, err := s.CreateTableRun(run.ID, "orders")
	require.NoError(t, err)
	assert.Equal(t, TableStatusPending, tr.Status)

	require.NoError(t, s.UpdateTableRun(tr.ID, TableStatusIngested, 100, 0, ""))
	require.NoError(t, s.UpdateTableRun(tr.ID, TableStatusCleansed, 100, 95, ""))
	require.NoError(t, s.UpdateTableRun(tr.ID, TableStatusAggregated, 100, 95, ""))

	trs, err := s.GetTableRunsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, TableStatusAggregated, trs[0].Status)
	assert.Equal(t, int64(100), trs[0].RowsBronze)
	assert.Equal(t, int64(95), trs[0].RowsSilver)
	assert.NotNil(t, trs[0].CompletedAt)
}

func TestTableRunSkipped(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun()
	require.NoError(t, err)
	tr, err := s.CreateTableRun(run.ID, "missing")
	require.NoError(t, err)

	require.NoError(t, s.UpdateTableRun(tr.ID, TableStatusSkipped, 0, 0, "source file missing"))

	trs, err := s.GetTableRunsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, TableStatusSkipped, trs[0].Status)
	assert.Equal(t, "source file missing", trs[0].Detail)
	assert.NotNil(t, trs[0].CompletedAt)
}

func TestQualityReports(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun()
	require.NoError(t, err)

	payload := []byte(`{"overall_score": 92.5}`)
	require.NoError(t, s.SaveQualityReport(run.ID, "orders", payload))

	got, err := s.GetQualityReport(run.ID, "orders")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Saving again replaces
	updated := []byte(`{"overall_score": 95.0}`)
	require.NoError(t, s.SaveQualityReport(run.ID, "orders", updated))
	got, err = s.GetQualityReport(run.ID, "orders")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	latest, err := s.LatestQualityReport("orders")
	require.NoError(t, err)
	assert.Equal(t, updated, latest)

	_, err = s.GetQualityReport(run.ID, "nope")
	assert.Error(t, err)
	_, err = s.LatestQualityReport("nope")
	assert.Error(t, err)
}

func TestStoreNotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)
	_, err := s.CreateRun()
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
