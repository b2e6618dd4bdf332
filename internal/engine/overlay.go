package engine

import (
	"time"

	"github.com/osoriano/pitwall/internal/models"
)

// prediction is the short-lived local guess of post-decision state,
// armed when the backend acknowledges a gate decision and retired when
// an authoritative poll confirms the transition.
type prediction struct {
	phase    models.Phase
	status   models.RunStatus
	issuedAt time.Time
}

// overlay is the tagged pending/none state masking a stale gate status.
// It has no timeout: the backend's processing time is unbounded, and
// expiring the mask on a clock would reintroduce the regression flicker
// it exists to prevent. Retirement happens only through observe.
type overlay struct {
	pending *prediction
}

func (o *overlay) active() bool {
	return o.pending != nil
}

// arm publishes the prediction for a decision acknowledged at gate:
// the run is running again and has advanced to the phase after the gate.
// ok is false when gate is not a gate phase; the overlay stays untouched.
func (o *overlay) arm(gate models.Phase, now time.Time) bool {
	next, ok := gate.NextAfterGate()
	if !ok {
		return false
	}
	o.pending = &prediction{
		phase:    next,
		status:   models.RunStatusRunning,
		issuedAt: now,
	}
	return true
}

// observe arbitrates an authoritative poll status against the pending
// prediction. Any status other than waiting_hitl means the backend has
// caught up (in whatever direction) and the prediction is retired; a
// still-stale waiting_hitl keeps the mask in place.
func (o *overlay) observe(status models.RunStatus) (retired bool) {
	if o.pending == nil {
		return false
	}
	if status == models.RunStatusWaitingHITL {
		return false
	}
	o.pending = nil
	return true
}

// mask overlays the prediction onto a run snapshot: predicted status and
// phase win, and the stale gate agent is cleared. The mirror's copy is
// untouched; only the returned value is masked.
func (o *overlay) mask(run models.Run) models.Run {
	if o.pending == nil {
		return run
	}
	run.Status = o.pending.status
	run.CurrentPhase = o.pending.phase
	run.CurrentAgent = ""
	return run
}

func (o *overlay) reset() {
	o.pending = nil
}
