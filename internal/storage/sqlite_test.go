package storage

import (
	"path/filepath"
	"testing"

	"github.com/osoriano/pitwall/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "pitwall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordRunUpserts(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordRun(&models.Run{
		ID:           "r1",
		Brief:        "a todo app",
		Status:       models.RunStatusRunning,
		CurrentPhase: models.PhasePlanning,
	}))
	require.NoError(t, store.RecordRun(&models.Run{
		ID:           "r1",
		Brief:        "a todo app",
		Status:       models.RunStatusWaitingHITL,
		CurrentPhase: models.PhaseHITLGate1,
	}))

	runs, err := store.ListWatched(10)
	require.NoError(t, err)
	require.Len(t, runs, 1, "same run id must not produce a second row")

	assert.Equal(t, "r1", runs[0].RunID)
	assert.Equal(t, "a todo app", runs[0].Brief)
	assert.Equal(t, models.RunStatusWaitingHITL, runs[0].LastStatus)
	assert.Equal(t, models.PhaseHITLGate1, runs[0].LastPhase)
	assert.False(t, runs[0].FirstSeen.IsZero())
}

func TestRecordRunKeepsBriefWhenUpdateOmitsIt(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordRun(&models.Run{
		ID:     "r1",
		Brief:  "a todo app",
		Status: models.RunStatusRunning,
	}))
	// Status polls don't always carry the brief.
	require.NoError(t, store.RecordRun(&models.Run{
		ID:     "r1",
		Status: models.RunStatusCompleted,
	}))

	runs, err := store.ListWatched(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a todo app", runs[0].Brief)
	assert.Equal(t, models.RunStatusCompleted, runs[0].LastStatus)
}

func TestListWatchedLimit(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.RecordRun(&models.Run{ID: id, Status: models.RunStatusRunning}))
	}

	runs, err := store.ListWatched(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecordAndListDecisions(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordDecision("r1", models.PhaseHITLGate1, models.DecisionApproved, "", "running"))
	require.NoError(t, store.RecordDecision("r1", models.PhaseHITLGate2, models.DecisionChangesRequested, "fix auth", "running"))
	require.NoError(t, store.RecordDecision("r2", models.PhaseHITLGate1, models.DecisionRejected, "wrong scope", "running"))

	decisions, err := store.DecisionsForRun("r1")
	require.NoError(t, err)
	require.Len(t, decisions, 2)

	assert.Equal(t, models.PhaseHITLGate1, decisions[0].Gate)
	assert.Equal(t, models.DecisionApproved, decisions[0].Decision)
	assert.Equal(t, models.PhaseHITLGate2, decisions[1].Gate)
	assert.Equal(t, "fix auth", decisions[1].Feedback)
	assert.False(t, decisions[1].SubmittedAt.IsZero())

	other, err := store.DecisionsForRun("r2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestDecisionsForUnknownRun(t *testing.T) {
	store := newTestStore(t)
	decisions, err := store.DecisionsForRun("nope")
	require.NoError(t, err)
	assert.Empty(t, decisions)
}
