package progress

import "github.com/metalagman/questline/internal/model"

// ObjectiveState pairs an objective with the user's completion flag.
type ObjectiveState struct {
	Objective model.Objective
	Completed bool
}

// ObjectivesComplete reports whether a task may auto-complete: every mandatory
// objective is done. A task whose objectives are all optional needs all of
// them; a task without objectives never auto-completes.
func ObjectivesComplete(objectives []ObjectiveState) bool {
	if len(objectives) == 0 {
		return false
	}
	mandatory := 0
	for _, o := range objectives {
		if o.Objective.Optional {
			continue
		}
		mandatory++
		if !o.Completed {
			return false
		}
	}
	if mandatory > 0 {
		return true
	}
	for _, o := range objectives {
		if !o.Completed {
			return false
		}
	}
	return true
}

// RollUp derives the task status implied by objective progress after an
// objective was set to checked. current is the stored task status ("" when
// there is no record). The second result is false when the stored status
// should stay as it is; unchecking an objective never moves the task.
func RollUp(current model.Status, objectives []ObjectiveState, checked bool) (model.Status, bool) {
	if !checked || current == model.StatusCompleted {
		return current, false
	}
	if ObjectivesComplete(objectives) {
		return model.StatusCompleted, true
	}
	if !anyComplete(objectives) {
		return current, false
	}
	switch current {
	case "", model.StatusLocked, model.StatusAvailable:
		return model.StatusInProgress, true
	default:
		return current, false
	}
}

func anyComplete(objectives []ObjectiveState) bool {
	for _, o := range objectives {
		if o.Completed {
			return true
		}
	}
	return false
}

func countComplete(objectives []ObjectiveState) int {
	n := 0
	for _, o := range objectives {
		if o.Completed {
			n++
		}
	}
	return n
}
