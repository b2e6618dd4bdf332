package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osoriano/pitwall/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func TestGetRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/runs/run-42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"run_id":           "run-42",
			"status":           "waiting_hitl",
			"current_phase":    "hitl_gate_1",
			"current_agent":    "HITL Gate 1",
			"num_requirements": 7,
		})
	})

	run, err := client.GetRun(context.Background(), "run-42")
	require.NoError(t, err)
	assert.Equal(t, "run-42", run.ID)
	assert.Equal(t, models.RunStatusWaitingHITL, run.Status)
	assert.Equal(t, models.PhaseHITLGate1, run.CurrentPhase)
	assert.Equal(t, 7, run.NumRequirements)
}

func TestGetRun_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Run not found"}`, http.StatusNotFound)
	})

	_, err := client.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRun_ServerErrorIsNotNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GetRun(context.Background(), "run-42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"runs": []map[string]any{
				{"run_id": "a", "status": "running"},
				{"run_id": "b", "status": "completed"},
			},
		})
	})

	runs, err := client.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, models.RunStatusCompleted, runs[1].Status)
}

func TestStartRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a todo app", body["brief"])

		json.NewEncoder(w).Encode(map[string]any{"run_id": "new-run", "status": "running"})
	})

	run, err := client.StartRun(context.Background(), "a todo app")
	require.NoError(t, err)
	assert.Equal(t, "new-run", run.ID)
}

func TestGetActivityEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/r1/activity", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"activity": []map[string]any{
				{"agent": "Business Analyst", "icon": "📋", "message": "working"},
			},
			"total": 1,
		})
	})

	activity, err := client.GetActivity(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "Business Analyst", activity[0].Agent)
}

func TestGetFileContent_EscapesPathSegments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/r1/files/backend/app%20v2/main.py", r.URL.EscapedPath())
		json.NewEncoder(w).Encode(map[string]any{
			"path":    "backend/app v2/main.py",
			"content": "print('hi')",
			"lines":   1,
		})
	})

	file, err := client.GetFileContent(context.Background(), "r1", "backend/app v2/main.py")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", file.Content)
}

func TestSubmitDecision(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/r1/hitl", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "changes_requested", body["decision"])
		assert.Equal(t, "tighten the stories", body["feedback"])

		json.NewEncoder(w).Encode(map[string]any{
			"run_id": "r1",
			"status": "running",
		})
	})

	result, err := client.SubmitDecision(context.Background(), "r1", models.DecisionChangesRequested, "tighten the stories")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, result.Status)
	assert.False(t, result.AlreadyProcessed())
}

func TestSubmitDecision_AlreadyProcessed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"run_id":  "r1",
			"status":  "already_processed",
			"message": "decision already processed",
		})
	})

	result, err := client.SubmitDecision(context.Background(), "r1", models.DecisionApproved, "")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed())
}

func TestDeployStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/deploy/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "deployed",
			"urls":   map[string]string{"frontend": "http://localhost:3000"},
		})
	})

	status, err := client.GetDeployStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deployed", status.Status)
	assert.Equal(t, "http://localhost:3000", status.URLs["frontend"])
}
