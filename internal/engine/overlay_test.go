package engine

import (
	"testing"
	"time"

	"github.com/osoriano/pitwall/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestOverlay_ArmGate1PredictsBuilding(t *testing.T) {
	var o overlay
	assert.True(t, o.arm(models.PhaseHITLGate1, time.Now()))
	assert.True(t, o.active())

	masked := o.mask(models.Run{
		Status:       models.RunStatusWaitingHITL,
		CurrentPhase: models.PhaseHITLGate1,
		CurrentAgent: "HITL Gate 1",
	})
	assert.Equal(t, models.RunStatusRunning, masked.Status)
	assert.Equal(t, models.PhaseBuilding, masked.CurrentPhase)
	assert.Empty(t, masked.CurrentAgent)
}

func TestOverlay_ArmGate2PredictsDevOps(t *testing.T) {
	var o overlay
	assert.True(t, o.arm(models.PhaseHITLGate2, time.Now()))

	masked := o.mask(models.Run{CurrentPhase: models.PhaseHITLGate2})
	assert.Equal(t, models.PhaseDevOps, masked.CurrentPhase)
}

func TestOverlay_ArmNonGateRefused(t *testing.T) {
	var o overlay
	assert.False(t, o.arm(models.PhaseBuilding, time.Now()))
	assert.False(t, o.active())
}

func TestOverlay_ObserveRetiresOnAnyNonWaitingStatus(t *testing.T) {
	for _, status := range []models.RunStatus{
		models.RunStatusRunning,
		models.RunStatusCompleted,
		models.RunStatusError,
	} {
		var o overlay
		o.arm(models.PhaseHITLGate1, time.Now())
		assert.True(t, o.observe(status), "status %s", status)
		assert.False(t, o.active())
	}
}

func TestOverlay_ObserveKeepsMaskWhileWaiting(t *testing.T) {
	var o overlay
	o.arm(models.PhaseHITLGate1, time.Now())
	assert.False(t, o.observe(models.RunStatusWaitingHITL))
	assert.True(t, o.active())
}

func TestOverlay_ObserveNoOpWhenInactive(t *testing.T) {
	var o overlay
	assert.False(t, o.observe(models.RunStatusRunning))
}

func TestOverlay_MaskPassthroughWhenInactive(t *testing.T) {
	var o overlay
	run := models.Run{Status: models.RunStatusRunning, CurrentPhase: models.PhasePlanning}
	assert.Equal(t, run, o.mask(run))
}

func TestMirror_AcceptRejectsStaleCycles(t *testing.T) {
	var m mirror
	assert.True(t, m.accept(fieldRun, 1))
	assert.True(t, m.accept(fieldRun, 3))
	assert.False(t, m.accept(fieldRun, 2), "late response from an earlier cycle")
	assert.False(t, m.accept(fieldRun, 3), "duplicate of the applied cycle")
	assert.True(t, m.accept(fieldRun, 4))
}

func TestMirror_SequenceNumbersArePerField(t *testing.T) {
	var m mirror
	assert.True(t, m.accept(fieldRun, 5))
	assert.True(t, m.accept(fieldArtifacts, 2), "other fields keep their own watermark")
}

func TestMirror_ResetClearsWatermarks(t *testing.T) {
	var m mirror
	m.run = &models.Run{ID: "r1"}
	m.accept(fieldRun, 9)
	m.reset()
	assert.Nil(t, m.run)
	assert.True(t, m.accept(fieldRun, 1))
}
