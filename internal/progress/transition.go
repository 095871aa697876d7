package progress

import "github.com/metalagman/questline/internal/model"

// AllowedTransitions returns the statuses a user may move a task to from
// status from. Locked tasks only leave that state through the cascade.
func AllowedTransitions(from model.Status) []model.Status {
	switch from {
	case model.StatusLocked:
		return nil
	case model.StatusAvailable:
		return []model.Status{model.StatusInProgress, model.StatusCompleted}
	case model.StatusInProgress:
		return []model.Status{model.StatusCompleted, model.StatusAvailable}
	case model.StatusCompleted:
		return []model.Status{model.StatusAvailable}
	default:
		return nil
	}
}

// ValidateTransition checks a user-requested status change. Same-state
// requests are accepted as no-ops.
func ValidateTransition(from, to model.Status) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}
	if from == to {
		return nil
	}
	allowed := AllowedTransitions(from)
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to, Allowed: allowed}
}
