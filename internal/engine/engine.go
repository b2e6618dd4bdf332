// Package engine synchronizes a local mirror of remote pipeline run
// state by polling the backend, and reconciles authoritative poll
// results with the optimistic overlay armed after a gate decision.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/osoriano/pitwall/internal/api"
	"github.com/osoriano/pitwall/internal/models"
)

var (
	// ErrNotWatching is returned by Submit when no run is activated.
	ErrNotWatching = errors.New("no run is being watched")
	// ErrRunGone is returned once the backend has reported the run deleted.
	ErrRunGone = errors.New("run no longer exists")
	// ErrRunFinished is returned after an authoritative completed status.
	ErrRunFinished = errors.New("run already completed")
	// ErrDecisionPending is returned while a previous decision's
	// prediction has not been confirmed; the control surface must stay
	// disabled until then.
	ErrDecisionPending = errors.New("a decision is already pending")
	// ErrNotAtGate is returned when the run is not waiting at a HITL gate.
	ErrNotAtGate = errors.New("run is not waiting at a gate")
)

// Backend is the slice of the pipeline API the engine consumes. It is
// satisfied by *api.Client.
type Backend interface {
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	GetArtifacts(ctx context.Context, runID string) (*models.Artifacts, error)
	GetFiles(ctx context.Context, runID string) ([]models.FileEntry, error)
	GetDecisions(ctx context.Context, runID string) ([]models.DecisionEntry, error)
	GetActivity(ctx context.Context, runID string) ([]models.ActivityEntry, error)
	GetDeployStatus(ctx context.Context) (*models.DeployStatus, error)
	SubmitDecision(ctx context.Context, runID string, decision models.Decision, feedback string) (*api.DecisionResult, error)
}

// Recorder persists watch history. Recording failures are logged and
// otherwise ignored; history is best-effort.
type Recorder interface {
	RecordRun(run *models.Run) error
	RecordDecision(runID string, gate models.Phase, decision models.Decision, feedback, result string) error
}

// View is the merged, read-only snapshot handed to presentation: the
// mirror's last-known-good state with the pending prediction (if any)
// masked over the run status.
type View struct {
	RunID     string
	Absent    bool // backend reported the run deleted
	Polling   bool
	Pending   bool // a decision prediction is awaiting confirmation
	Run       *models.Run
	Artifacts *models.Artifacts
	Files     []models.FileEntry
	Decisions []models.DecisionEntry
	Activity  []models.ActivityEntry
	Deploy    *models.DeployStatus
}

// Engine owns the mirror and overlay for one run view. All mutation goes
// through its mutex; fetches run concurrently but apply their results
// one at a time.
type Engine struct {
	backend  Backend
	recorder Recorder
	logger   *slog.Logger
	interval time.Duration

	mu         sync.Mutex
	runID      string
	gen        uint64 // activation generation; stale responses check it
	active     bool
	polling    bool
	gone       bool
	submitting bool
	cycle      uint64
	cancel     context.CancelFunc
	mirror     mirror
	overlay    overlay
}

// New builds an engine polling backend at the given interval. recorder
// and logger may be nil.
func New(backend Backend, interval time.Duration, recorder Recorder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		backend:  backend,
		recorder: recorder,
		logger:   logger,
		interval: interval,
	}
}

// Activate binds the engine to runID and starts polling: one immediate
// cycle, then one per interval. Any previous session is torn down and
// every piece of state — mirror, overlay, sequence numbers, the
// not-found latch — is reset, so navigating away and back retries a run
// the backend had reported gone.
func (e *Engine) Activate(runID string) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.gen++
	e.runID = runID
	e.active = true
	e.polling = true
	e.gone = false
	e.submitting = false
	e.cycle = 0
	e.mirror.reset()
	e.overlay.reset()
	gen := e.gen
	e.mu.Unlock()

	go e.loop(ctx, gen, runID)
}

// Deactivate stops polling and detaches from the run. The mirror is kept
// for a final render but no further updates are applied.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	e.active = false
	e.polling = false
}

func (e *Engine) loop(ctx context.Context, gen uint64, runID string) {
	e.pollCycle(ctx, gen, runID)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollCycle(ctx, gen, runID)
		}
	}
}

// pollCycle launches all six fetches concurrently and returns without
// waiting: a slow cycle may overlap the next one, and the per-field
// sequence guard makes that safe.
func (e *Engine) pollCycle(ctx context.Context, gen uint64, runID string) {
	e.mu.Lock()
	if gen != e.gen || !e.polling {
		e.mu.Unlock()
		return
	}
	e.cycle++
	n := e.cycle
	e.mu.Unlock()

	go func() {
		run, err := e.backend.GetRun(ctx, runID)
		e.applyRun(gen, n, run, err)
	}()
	go func() {
		artifacts, err := e.backend.GetArtifacts(ctx, runID)
		e.applyArtifacts(gen, n, artifacts, err)
	}()
	go func() {
		files, err := e.backend.GetFiles(ctx, runID)
		e.applyFiles(gen, n, files, err)
	}()
	go func() {
		decisions, err := e.backend.GetDecisions(ctx, runID)
		e.applyDecisions(gen, n, decisions, err)
	}()
	go func() {
		activity, err := e.backend.GetActivity(ctx, runID)
		e.applyActivity(gen, n, activity, err)
	}()
	go func() {
		deploy, err := e.backend.GetDeployStatus(ctx)
		e.applyDeploy(gen, n, deploy, err)
	}()
}

// guard reports whether a response from activation gen may touch the
// mirror. Callers hold the mutex.
func (e *Engine) guard(gen uint64) bool {
	return gen == e.gen && e.active
}

func (e *Engine) applyRun(gen, cycle uint64, run *models.Run, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.guard(gen) {
		return
	}

	if errors.Is(err, api.ErrRunNotFound) {
		// Terminal for this activation: the run is gone, the mirror's
		// run is absent, and no further cycles are scheduled.
		e.logger.Warn("run gone, polling stopped", "run", e.runID)
		e.gone = true
		e.mirror.run = nil
		e.overlay.reset()
		e.stopPollingLocked()
		return
	}
	if err != nil {
		e.logger.Debug("run status fetch failed", "cycle", cycle, "err", err)
		return
	}
	if !e.mirror.accept(fieldRun, cycle) {
		return
	}

	if e.overlay.observe(run.Status) {
		e.logger.Debug("prediction confirmed", "status", run.Status, "phase", run.CurrentPhase)
	}
	e.mirror.run = run

	if run.Status == models.RunStatusCompleted {
		// Authoritative completion ends the watch; the overlay (already
		// retired above, completed != waiting_hitl) can never re-arm.
		e.stopPollingLocked()
	}

	if e.recorder != nil {
		if rerr := e.recorder.RecordRun(run); rerr != nil {
			e.logger.Debug("record run", "err", rerr)
		}
	}
}

func (e *Engine) applyArtifacts(gen, cycle uint64, artifacts *models.Artifacts, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.guard(gen) {
		return
	}
	if err != nil {
		e.logger.Debug("artifacts fetch failed", "cycle", cycle, "err", err)
		return
	}
	if !e.mirror.accept(fieldArtifacts, cycle) {
		return
	}
	e.mirror.artifacts = artifacts
}

func (e *Engine) applyFiles(gen, cycle uint64, files []models.FileEntry, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.guard(gen) {
		return
	}
	if err != nil {
		e.logger.Debug("files fetch failed", "cycle", cycle, "err", err)
		return
	}
	if !e.mirror.accept(fieldFiles, cycle) {
		return
	}
	e.mirror.files = files
}

func (e *Engine) applyDecisions(gen, cycle uint64, decisions []models.DecisionEntry, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.guard(gen) {
		return
	}
	if err != nil {
		e.logger.Debug("decisions fetch failed", "cycle", cycle, "err", err)
		return
	}
	if !e.mirror.accept(fieldDecisions, cycle) {
		return
	}
	e.mirror.decisions = decisions
}

func (e *Engine) applyActivity(gen, cycle uint64, activity []models.ActivityEntry, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.guard(gen) {
		return
	}
	if err != nil {
		e.logger.Debug("activity fetch failed", "cycle", cycle, "err", err)
		return
	}
	if !e.mirror.accept(fieldActivity, cycle) {
		return
	}
	e.mirror.activity = activity
}

func (e *Engine) applyDeploy(gen, cycle uint64, deploy *models.DeployStatus, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.guard(gen) {
		return
	}
	if err != nil {
		e.logger.Debug("deploy status fetch failed", "cycle", cycle, "err", err)
		return
	}
	if !e.mirror.accept(fieldDeploy, cycle) {
		return
	}
	e.mirror.deploy = deploy
}

func (e *Engine) stopPollingLocked() {
	e.polling = false
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Submit issues a gate decision and, on acknowledgment, arms the
// optimistic prediction so the view advances immediately instead of
// flickering back to waiting_hitl while the backend catches up.
func (e *Engine) Submit(ctx context.Context, decision models.Decision, feedback string) error {
	if !decision.Valid() {
		return fmt.Errorf("invalid decision %q", decision)
	}

	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotWatching
	}
	if e.gone {
		e.mu.Unlock()
		return ErrRunGone
	}
	if e.submitting || e.overlay.active() {
		e.mu.Unlock()
		return ErrDecisionPending
	}
	run := e.mirror.run
	if run == nil {
		e.mu.Unlock()
		return ErrNotAtGate
	}
	if run.Status == models.RunStatusCompleted {
		e.mu.Unlock()
		return ErrRunFinished
	}
	if run.Status != models.RunStatusWaitingHITL || !run.CurrentPhase.IsGate() {
		e.mu.Unlock()
		return ErrNotAtGate
	}
	gate := run.CurrentPhase
	runID := e.runID
	gen := e.gen
	e.submitting = true
	e.mu.Unlock()

	result, err := e.backend.SubmitDecision(ctx, runID, decision, feedback)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitting = false
	if err != nil {
		// The command failed outright; nothing was armed and the
		// control surface stays available for a retry.
		return fmt.Errorf("submit decision: %w", err)
	}
	if gen != e.gen || !e.active || e.gone {
		// Deactivated, re-activated, or the run vanished while the call
		// was in flight; there is no view left to predict over.
		return nil
	}
	if result.AlreadyProcessed() {
		// A prior submission won the race. Success, but predicting a
		// transition from it would double-apply.
		e.logger.Debug("decision already processed", "run", runID)
		return nil
	}

	e.overlay.arm(gate, time.Now())
	e.logger.Debug("prediction armed", "gate", gate, "decision", decision)

	if e.recorder != nil {
		if rerr := e.recorder.RecordDecision(runID, gate, decision, feedback, string(result.Status)); rerr != nil {
			e.logger.Debug("record decision", "err", rerr)
		}
	}
	return nil
}

// View returns the merged snapshot: last-known-good mirror state with
// the pending prediction masked over the run. The returned run is a
// copy; presentation never sees mirror internals.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		RunID:     e.runID,
		Absent:    e.gone,
		Polling:   e.polling,
		Pending:   e.overlay.active(),
		Artifacts: e.mirror.artifacts,
		Files:     e.mirror.files,
		Decisions: e.mirror.decisions,
		Activity:  e.mirror.activity,
		Deploy:    e.mirror.deploy,
	}
	if e.mirror.run != nil {
		run := e.overlay.mask(*e.mirror.run)
		v.Run = &run
	}
	return v
}
