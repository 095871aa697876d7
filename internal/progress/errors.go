package progress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/metalagman/questline/internal/model"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition matches every *InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// NotFoundError reports an unknown task, objective or edge reference.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) work.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidTransitionError reports a status change outside the transition table.
type InvalidTransitionError struct {
	From    model.Status
	To      model.Status
	Allowed []model.Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("invalid status transition from %s to %s (allowed: [%s])",
		e.From, e.To, strings.Join(allowed, ", "))
}

// Is makes errors.Is(err, ErrInvalidTransition) work.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) work.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func taskNotFound(id string) error {
	return &NotFoundError{Kind: "task", ID: id}
}

func objectiveNotFound(id string) error {
	return &NotFoundError{Kind: "objective", ID: id}
}
