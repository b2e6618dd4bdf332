package models

type Phase string

const (
	PhasePlanning    Phase = "planning"
	PhaseHITLGate1   Phase = "hitl_gate_1"
	PhaseBuilding    Phase = "building"
	PhaseIntegration Phase = "integration"
	PhaseHITLGate2   Phase = "hitl_gate_2"
	PhaseDevOps      Phase = "devops"
	PhaseDone        Phase = "done"
)

// PhaseOrder is the fixed pipeline sequence. Indexes are used only for
// done/current/pending classification and are never renumbered.
var PhaseOrder = []Phase{
	PhasePlanning,
	PhaseHITLGate1,
	PhaseBuilding,
	PhaseIntegration,
	PhaseHITLGate2,
	PhaseDevOps,
	PhaseDone,
}

// Index returns the phase's position in PhaseOrder, or -1 if p is not a
// pipeline phase.
func (p Phase) Index() int {
	for i, ph := range PhaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// IsGate reports whether the pipeline halts at p for a human decision.
func (p Phase) IsGate() bool {
	return p == PhaseHITLGate1 || p == PhaseHITLGate2
}

// NextAfterGate returns the phase the pipeline enters once a decision at
// gate p is acknowledged. ok is false when p is not a gate.
func (p Phase) NextAfterGate() (Phase, bool) {
	switch p {
	case PhaseHITLGate1:
		return PhaseBuilding, true
	case PhaseHITLGate2:
		return PhaseDevOps, true
	}
	return "", false
}
