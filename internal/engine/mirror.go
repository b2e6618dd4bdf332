package engine

import "github.com/osoriano/pitwall/internal/models"

// field identifies one independently fetched slot of the mirror.
type field int

const (
	fieldRun field = iota
	fieldArtifacts
	fieldFiles
	fieldDecisions
	fieldActivity
	fieldDeploy
	numFields
)

// mirror holds the last-known-good snapshot of remote run state. Each
// field is replaced wholesale by the poll cycle that fetched it; a failed
// fetch leaves the previous value in place (stale beats null). The
// applied array carries the poll-cycle sequence number that last wrote
// each field, so a response that arrives out of order is discarded
// instead of rolling a field backwards.
type mirror struct {
	run       *models.Run
	artifacts *models.Artifacts
	files     []models.FileEntry
	decisions []models.DecisionEntry
	activity  []models.ActivityEntry
	deploy    *models.DeployStatus

	applied [numFields]uint64
}

// accept records cycle as the writer of f and reports whether the write
// may proceed. Cycles at or below the last applied one are stale.
func (m *mirror) accept(f field, cycle uint64) bool {
	if cycle <= m.applied[f] {
		return false
	}
	m.applied[f] = cycle
	return true
}

func (m *mirror) reset() {
	*m = mirror{}
}
