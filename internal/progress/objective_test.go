package progress

import (
	"testing"

	"github.com/metalagman/questline/internal/model"
	"github.com/stretchr/testify/assert"
)

func states(optional []bool, done []bool) []ObjectiveState {
	out := make([]ObjectiveState, len(optional))
	for i := range optional {
		out[i] = ObjectiveState{
			Objective: model.Objective{ID: string(rune('a' + i)), Optional: optional[i]},
			Completed: done[i],
		}
	}
	return out
}

func TestObjectivesComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		optional []bool
		done     []bool
		want     bool
	}{
		{"no objectives", nil, nil, false},
		{"mandatory done optional open", []bool{false, false, true}, []bool{true, true, false}, true},
		{"mandatory open", []bool{false, false, true}, []bool{true, false, true}, false},
		{"all optional need all", []bool{true, true}, []bool{true, false}, false},
		{"all optional all done", []bool{true, true}, []bool{true, true}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ObjectivesComplete(states(tc.optional, tc.done)))
		})
	}
}

func TestRollUp(t *testing.T) {
	t.Parallel()

	threePlusOne := []bool{false, false, false, true}

	tests := []struct {
		name        string
		current     model.Status
		done        []bool
		unchecked   bool
		want        model.Status
		wantChanged bool
	}{
		{"nothing done", model.StatusAvailable, []bool{false, false, false, false}, false, model.StatusAvailable, false},
		{"first done starts task", model.StatusAvailable, []bool{true, false, false, false}, false, model.StatusInProgress, true},
		{"first done on absent record", "", []bool{true, false, false, false}, false, model.StatusInProgress, true},
		{"optional only starts task", model.StatusLocked, []bool{false, false, false, true}, false, model.StatusInProgress, true},
		{"already in progress", model.StatusInProgress, []bool{true, true, false, false}, false, model.StatusInProgress, false},
		{"mandatory done completes", model.StatusInProgress, []bool{true, true, true, false}, false, model.StatusCompleted, true},
		{"completed stays", model.StatusCompleted, []bool{true, true, true, true}, false, model.StatusCompleted, false},
		{"no regression from completed", model.StatusCompleted, []bool{true, false, false, false}, false, model.StatusCompleted, false},
		{"unchecking keeps available", model.StatusAvailable, []bool{true, false, false, false}, true, model.StatusAvailable, false},
		{"unchecking optional keeps in progress", model.StatusInProgress, []bool{true, true, true, false}, true, model.StatusInProgress, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, changed := RollUp(tc.current, states(threePlusOne, tc.done), !tc.unchecked)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantChanged, changed)
		})
	}
}
