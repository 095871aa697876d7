package progress

import (
	"context"
	"errors"
	"strings"

	"github.com/metalagman/questline/internal/model"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Engine applies progress operations for users against a Repository. It
// keeps no state between calls.
type Engine struct {
	repo Repository
	inst *instruments
}

// NewEngine creates an engine over repo.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, inst: newInstruments()}
}

// StatusChange is the outcome of SetTaskStatus.
type StatusChange struct {
	TaskID   string       `json:"task_id"`
	Previous model.Status `json:"previous"`
	Status   model.Status `json:"status"`
	Unlocked []string     `json:"unlocked"`
	Relocked []string     `json:"relocked"`
}

// SetTaskStatus moves a task to status on behalf of a user and cascades the
// change to its dependents.
func (e *Engine) SetTaskStatus(ctx context.Context, userID, taskID string, status model.Status) (change StatusChange, err error) {
	ctx, span := e.inst.start(ctx, "SetTaskStatus", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return StatusChange{}, err
	}
	if !status.Valid() {
		return StatusChange{}, &ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}

	err = e.repo.InTx(ctx, func(tx Tx) error {
		s, err := openSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		i, err := s.task(taskID)
		if err != nil {
			return err
		}

		current, ok := s.progress.Lookup(taskID)
		if !ok {
			current = s.resolver().InitialStatus(i)
			if err := s.write(i, current); err != nil {
				return err
			}
		}
		if err := ValidateTransition(current, status); err != nil {
			return err
		}

		change = StatusChange{TaskID: taskID, Previous: current, Status: status, Unlocked: []string{}, Relocked: []string{}}
		if current == status {
			return nil
		}
		if err := s.write(i, status); err != nil {
			return err
		}

		switch status {
		case model.StatusCompleted, model.StatusInProgress:
			unlocked, err := s.unlockDependents(i, status)
			if err != nil {
				return err
			}
			change.Unlocked = append(change.Unlocked, unlocked...)
		case model.StatusAvailable:
			if current == model.StatusCompleted || current == model.StatusInProgress {
				relocked, err := s.relockDependents(i)
				if err != nil {
					return err
				}
				change.Relocked = append(change.Relocked, relocked...)
			}
		case model.StatusLocked:
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			e.inst.rejected.Add(ctx, 1)
		}
		return StatusChange{}, err
	}

	if change.Previous != change.Status {
		e.inst.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(change.Status))))
	}
	e.inst.unlocked.Add(ctx, int64(len(change.Unlocked)))
	e.inst.relocked.Add(ctx, int64(len(change.Relocked)))
	log.Debug().
		Str("user_id", userID).
		Str("task_id", taskID).
		Str("from", string(change.Previous)).
		Str("to", string(change.Status)).
		Int("unlocked", len(change.Unlocked)).
		Int("relocked", len(change.Relocked)).
		Msg("task status set")
	return change, nil
}

// ObjectiveChange is the outcome of SetObjectiveCompletion.
type ObjectiveChange struct {
	ObjectiveID       string       `json:"objective_id"`
	TaskID            string       `json:"task_id"`
	Completed         bool         `json:"completed"`
	TaskStatusChanged bool         `json:"task_status_changed"`
	TaskStatus        model.Status `json:"task_status"`
	Unlocked          []string     `json:"unlocked"`
	ObjectivesTotal   int          `json:"objectives_total"`
	ObjectivesDone    int          `json:"objectives_done"`
}

// SetObjectiveCompletion records an objective flag and rolls the result up
// into the parent task, cascading if the task status changes.
func (e *Engine) SetObjectiveCompletion(ctx context.Context, userID, objectiveID string, completed bool) (change ObjectiveChange, err error) {
	ctx, span := e.inst.start(ctx, "SetObjectiveCompletion", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return ObjectiveChange{}, err
	}

	err = e.repo.InTx(ctx, func(tx Tx) error {
		obj, ok, err := tx.Objective(ctx, objectiveID)
		if err != nil {
			return err
		}
		if !ok {
			return objectiveNotFound(objectiveID)
		}
		s, err := openSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		i, err := s.task(obj.TaskID)
		if err != nil {
			return err
		}

		if err := tx.SaveObjectiveProgress(ctx, model.ObjectiveProgress{UserID: userID, ObjectiveID: objectiveID, Completed: completed}); err != nil {
			return err
		}

		siblings, err := tx.Objectives(ctx, obj.TaskID)
		if err != nil {
			return err
		}
		ids := make([]string, len(siblings))
		for k, o := range siblings {
			ids[k] = o.ID
		}
		flags, err := tx.ObjectiveProgress(ctx, userID, ids)
		if err != nil {
			return err
		}
		states := make([]ObjectiveState, len(siblings))
		for k, o := range siblings {
			done := flags[o.ID]
			if o.ID == objectiveID {
				done = completed
			}
			states[k] = ObjectiveState{Objective: o, Completed: done}
		}

		current := s.progress.Get(obj.TaskID)
		change = ObjectiveChange{
			ObjectiveID:     objectiveID,
			TaskID:          obj.TaskID,
			Completed:       completed,
			TaskStatus:      current,
			Unlocked:        []string{},
			ObjectivesTotal: len(states),
			ObjectivesDone:  countComplete(states),
		}

		next, changed := RollUp(current, states, completed)
		if !changed {
			if change.TaskStatus == "" {
				change.TaskStatus = s.resolver().Status(i)
			}
			return nil
		}
		if err := s.write(i, next); err != nil {
			return err
		}
		unlocked, err := s.unlockDependents(i, next)
		if err != nil {
			return err
		}
		change.TaskStatusChanged = true
		change.TaskStatus = next
		change.Unlocked = append(change.Unlocked, unlocked...)
		return nil
	})
	if err != nil {
		return ObjectiveChange{}, err
	}

	if change.TaskStatusChanged {
		e.inst.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(change.TaskStatus))))
	}
	e.inst.unlocked.Add(ctx, int64(len(change.Unlocked)))
	log.Debug().
		Str("user_id", userID).
		Str("objective_id", objectiveID).
		Bool("completed", completed).
		Str("task_status", string(change.TaskStatus)).
		Bool("task_changed", change.TaskStatusChanged).
		Msg("objective updated")
	return change, nil
}

// EffectiveStatus returns the status a task should be shown with for a user.
func (e *Engine) EffectiveStatus(ctx context.Context, userID, taskID string) (status model.Status, err error) {
	ctx, span := e.inst.start(ctx, "EffectiveStatus", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return "", err
	}
	err = e.repo.InTx(ctx, func(tx Tx) error {
		s, err := openSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		i, err := s.task(taskID)
		if err != nil {
			return err
		}
		status = s.resolver().Status(i)
		return nil
	})
	return status, err
}

// Filter narrows the working set of EffectiveStatuses. The zero value keeps
// every task.
type Filter struct {
	Type         string
	CriticalOnly bool
	Location     string
	Search       string
	MaxLevel     int
}

// Match reports whether a task belongs to the working set.
func (f Filter) Match(t model.Task) bool {
	if f.Type != "" && !strings.EqualFold(f.Type, t.Type) {
		return false
	}
	if f.CriticalOnly && !t.Critical {
		return false
	}
	if f.Location != "" && !strings.EqualFold(f.Location, t.Location) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.MaxLevel > 0 && t.Level > f.MaxLevel {
		return false
	}
	return true
}

// EffectiveStatuses returns the effective status of every task in the working
// set selected by filter.
func (e *Engine) EffectiveStatuses(ctx context.Context, userID string, filter Filter) (statuses map[string]model.Status, err error) {
	ctx, span := e.inst.start(ctx, "EffectiveStatuses", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return nil, err
	}
	err = e.repo.InTx(ctx, func(tx Tx) error {
		s, err := openSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		view := make([]bool, s.graph.Len())
		for i := range view {
			view[i] = filter.Match(s.graph.Task(i))
		}
		r := s.resolver().WithView(func(i int) bool { return view[i] })
		statuses = make(map[string]model.Status)
		for i := range view {
			if view[i] {
				statuses[s.graph.ID(i)] = r.Status(i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &ValidationError{Field: "user", Reason: "user id is required"}
	}
	return nil
}
