package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/uiverify/pkg/runner"
)

func newTestStore(t *testing.T, opts ...Option) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "history.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func result(id string, success bool) runner.RunResult {
	r := runner.RunResult{
		ID:        id,
		Suite:     "vacations-year",
		TargetURL: "http://localhost:3000/",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Success:   success,
		Steps: []runner.StepResult{
			{Index: 1, Name: "Dashboard", Status: runner.StepPassed},
			{Index: 2, Name: "Open Vacations", Status: runner.StepPassed},
		},
		Artifacts: []runner.Artifact{{Name: "dashboard_full", Kind: runner.ArtifactScreenshot}},
	}
	if !success {
		r.Steps[1].Status = runner.StepFailed
		r.Failure = &runner.FailureInfo{Step: "Open Vacations", Index: 2, Kind: runner.KindElementNotFound}
	}
	return r
}

func TestSaveGet(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(result("run-1", false)))

	got, err := store.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "vacations-year", got.Suite)
	assert.False(t, got.Success)
	require.NotNil(t, got.Failure)
	assert.Equal(t, runner.KindElementNotFound, got.Failure.Kind)
	assert.Equal(t, runner.StepFailed, got.Steps[1].Status)
	assert.True(t, got.StartedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(runner.RunResult{}))
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	for i := 1; i <= 4; i++ {
		require.NoError(t, store.Save(result(fmt.Sprintf("run-%d", i), i%2 == 0)))
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "run-4", all[0].ID)
	assert.Equal(t, "run-1", all[3].ID)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-4", "run-3"}, []string{limited[0].ID, limited[1].ID})

	assert.Equal(t, "ElementNotFound at step 2 (Open Vacations)", all[1].Failure)
	assert.Equal(t, 1, all[1].Failed)
	assert.Equal(t, 2, all[0].Passed)
}

func TestSaveSameIDKeepsPosition(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(result("a", false)))
	require.NoError(t, store.Save(result("b", true)))
	require.NoError(t, store.Save(result("a", true)))

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.True(t, all[1].Success)
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(result(fmt.Sprintf("run-%d", i), true)))
	}

	removed, err := store.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	all, err := store.List(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-5", "run-4"}, []string{all[0].ID, all[1].ID})

	_, err = store.Get("run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err = store.Prune(10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMaxEntries(t *testing.T) {
	store := newTestStore(t, WithMaxEntries(3))
	for i := 1; i <= 6; i++ {
		require.NoError(t, store.Save(result(fmt.Sprintf("run-%d", i), true)))
	}
	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-6", all[0].ID)
	assert.Equal(t, "run-4", all[2].ID)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(result("kept", true)))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Get("kept")
	require.NoError(t, err)
	assert.True(t, got.Success)
}

func TestDefaultPath(t *testing.T) {
	state := filepath.Join(t.TempDir(), ".uiverify")
	assert.Equal(t, filepath.Join(os.TempDir(), "uiverify", "history.db"), DefaultPath(state))

	require.NoError(t, os.Mkdir(state, 0755))
	assert.Equal(t, filepath.Join(state, "history.db"), DefaultPath(state))
}
