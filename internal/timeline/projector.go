// Package timeline derives the ordered phase view rendered by the
// console. Project is pure: no I/O, no retained state, safe on every
// frame.
package timeline

import "github.com/osoriano/pitwall/internal/models"

type PhaseState string

const (
	StateDone    PhaseState = "done"
	StateCurrent PhaseState = "current"
	StatePending PhaseState = "pending"
)

// AgentActivity is one agent's most recent feed entry within a phase.
type AgentActivity struct {
	Agent string
	Entry models.ActivityEntry
}

// PhaseView is one row of the projected timeline.
type PhaseView struct {
	Phase  models.Phase
	State  PhaseState
	Agents []AgentActivity
}

// AgentPhases maps an agent's display name to the phase its activity is
// grouped under. It is static configuration injected by the caller, not
// package state.
type AgentPhases map[string]models.Phase

// DefaultAgentPhases covers the agent names the backend writes into the
// activity feed, including the gate pseudo-agents emitted while waiting
// for approval and the "Pipeline" entry closing out the devops phase.
// The registry display names are kept as aliases in case a feed entry
// ever carries one.
func DefaultAgentPhases() AgentPhases {
	return AgentPhases{
		"BA Agent":              models.PhasePlanning,
		"PO Agent":              models.PhasePlanning,
		"Architect":             models.PhasePlanning,
		"Evaluator":             models.PhasePlanning,
		"HITL Gate 1":           models.PhaseHITLGate1,
		"Backend Builder":       models.PhaseBuilding,
		"Frontend Builder":      models.PhaseBuilding,
		"QA Agent":              models.PhaseBuilding,
		"Integration Validator": models.PhaseIntegration,
		"HITL Gate 2":           models.PhaseHITLGate2,
		"DevOps Agent":          models.PhaseDevOps,
		"Pipeline":              models.PhaseDevOps,

		// Registry display names.
		"Business Analyst":                  models.PhasePlanning,
		"Product Owner":                     models.PhasePlanning,
		"Software Architect":                models.PhasePlanning,
		"Planning Evaluator":                models.PhasePlanning,
		"Backend Developer":                 models.PhaseBuilding,
		"Frontend Developer":                models.PhaseBuilding,
		"QA Engineer":                       models.PhaseBuilding,
		"Integration Validator (Architect)": models.PhaseIntegration,
		"DevOps Engineer":                   models.PhaseDevOps,
	}
}

// Project classifies every phase of the canonical order against the
// run's current phase and, for phases already reached, groups activity
// by agent keeping only each agent's latest entry. The activity slice is
// read in arrival order and never mutated; an unknown current phase
// leaves every phase pending.
func Project(run *models.Run, activity []models.ActivityEntry, table AgentPhases) []PhaseView {
	current := -1
	if run != nil {
		current = run.CurrentPhase.Index()
	}

	views := make([]PhaseView, 0, len(models.PhaseOrder))
	for i, phase := range models.PhaseOrder {
		state := StatePending
		switch {
		case current < 0:
		case i < current:
			state = StateDone
		case i == current:
			state = StateCurrent
		}

		view := PhaseView{Phase: phase, State: state}
		if state != StatePending {
			view.Agents = latestByAgent(activity, phase, table)
		}
		views = append(views, view)
	}
	return views
}

// latestByAgent gathers the activity entries whose agent maps to phase,
// keeping one entry per agent (later arrivals overwrite earlier ones)
// in first-seen agent order.
func latestByAgent(activity []models.ActivityEntry, phase models.Phase, table AgentPhases) []AgentActivity {
	index := make(map[string]int)
	var agents []AgentActivity
	for _, entry := range activity {
		if table[entry.Agent] != phase {
			continue
		}
		if i, seen := index[entry.Agent]; seen {
			agents[i].Entry = entry
			continue
		}
		index[entry.Agent] = len(agents)
		agents = append(agents, AgentActivity{Agent: entry.Agent, Entry: entry})
	}
	return agents
}
