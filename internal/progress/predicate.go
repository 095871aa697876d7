package progress

import "github.com/metalagman/questline/internal/model"

// Satisfied reports whether a required task in status actual satisfies an edge
// carrying set. An empty actual means the task has no progress record.
func Satisfied(set model.RequirementSet, actual model.Status) bool {
	if actual == "" {
		return false
	}
	for _, req := range set.Normalize() {
		if requirementMet(req, actual) {
			return true
		}
	}
	return false
}

func requirementMet(req model.Requirement, actual model.Status) bool {
	switch req {
	case model.RequireComplete:
		return actual == model.StatusCompleted
	case model.RequireActive:
		return actual == model.StatusInProgress || actual == model.StatusCompleted
	case model.RequireFailed:
		return false
	default:
		return false
	}
}

// requirementsMet runs the full satisfaction scan for task i: every incoming
// edge must be satisfied by the stored status of its required task.
func requirementsMet(g *Graph, progress ProgressMap, i int) bool {
	for _, e := range g.Requires(i) {
		if !Satisfied(e.Statuses, progress.Get(g.ID(e.Peer))) {
			return false
		}
	}
	return true
}
