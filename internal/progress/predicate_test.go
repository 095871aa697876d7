package progress

import (
	"testing"

	"github.com/metalagman/questline/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestSatisfied(t *testing.T) {
	t.Parallel()

	complete := model.RequirementSet{model.RequireComplete}
	active := model.RequirementSet{model.RequireActive}
	failed := model.RequirementSet{model.RequireFailed}
	either := model.RequirementSet{model.RequireFailed, model.RequireActive}

	tests := []struct {
		name   string
		set    model.RequirementSet
		actual model.Status
		want   bool
	}{
		{"complete by completed", complete, model.StatusCompleted, true},
		{"complete not by in progress", complete, model.StatusInProgress, false},
		{"complete not by available", complete, model.StatusAvailable, false},
		{"complete not by absent", complete, "", false},
		{"active by in progress", active, model.StatusInProgress, true},
		{"active by completed", active, model.StatusCompleted, true},
		{"active not by available", active, model.StatusAvailable, false},
		{"active not by locked", active, model.StatusLocked, false},
		{"active not by absent", active, "", false},
		{"failed never", failed, model.StatusCompleted, false},
		{"or across set", either, model.StatusInProgress, true},
		{"empty set means complete", nil, model.StatusCompleted, true},
		{"empty set rejects in progress", nil, model.StatusInProgress, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Satisfied(tc.set, tc.actual))
		})
	}
}

func TestRequirementsMet_IsConjunctive(t *testing.T) {
	t.Parallel()

	c := chain("a>c", "b>c")
	g := NewGraph(c.Tasks, c.Edges)
	ci, _ := g.Index("c")

	assert.False(t, requirementsMet(g, ProgressMap{"a": model.StatusCompleted}, ci))
	assert.True(t, requirementsMet(g, ProgressMap{"a": model.StatusCompleted, "b": model.StatusCompleted}, ci))
}
