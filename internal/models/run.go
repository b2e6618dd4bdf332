package models

type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusWaitingHITL RunStatus = "waiting_hitl"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusError       RunStatus = "error"
)

// Run is the backend's view of one pipeline execution, as returned by
// GET /api/runs/{id}. The id is assigned by the backend and never changes.
type Run struct {
	ID                string    `json:"run_id"`
	Status            RunStatus `json:"status"`
	CurrentPhase      Phase     `json:"current_phase"`
	CurrentAgent      string    `json:"current_agent"`
	PlanningIteration int       `json:"planning_iteration"`
	NumRequirements   int       `json:"num_requirements"`
	NumUserStories    int       `json:"num_user_stories"`
	NumTestCases      int       `json:"num_test_cases"`
	NumGeneratedFiles int       `json:"num_generated_files"`
	DeploymentReady   bool      `json:"deployment_ready"`
	Brief             string    `json:"brief"`
}

// RunSummary is one element of GET /api/runs.
type RunSummary struct {
	ID                string    `json:"run_id"`
	Brief             string    `json:"brief"`
	Status            RunStatus `json:"status"`
	CurrentPhase      Phase     `json:"current_phase"`
	NumRequirements   int       `json:"num_requirements"`
	NumUserStories    int       `json:"num_user_stories"`
	NumGeneratedFiles int       `json:"num_generated_files"`
}

type Decision string

const (
	DecisionApproved         Decision = "approved"
	DecisionChangesRequested Decision = "changes_requested"
	DecisionRejected         Decision = "rejected"
)

// Valid reports whether d is one of the three gate decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionChangesRequested, DecisionRejected:
		return true
	}
	return false
}
