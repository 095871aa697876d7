package progress

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/metalagman/questline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectionIDs(sel []Selection) []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.TaskID
	}
	return out
}

// A -> B -> C, B -> D
func forkCatalog() model.Catalog {
	return chain("A>B", "B>C", "B>D")
}

func TestPlanCatchUp_Fork(t *testing.T) {
	t.Parallel()

	c := forkCatalog()
	g := NewGraph(c.Tasks, c.Edges)
	d, _ := g.Index("D")
	cc, _ := g.Index("C")

	plan := PlanCatchUp(g, ProgressMap{}, []int{d})
	want := CatchUpPlan{
		Prerequisites: []Selection{
			{TaskID: "A", Title: "A", Level: 1, ChainLength: 0},
			{TaskID: "B", Title: "B", Level: 1, ChainLength: 1},
		},
		CompletedBranches: []Selection{
			{TaskID: "C", Title: "C", Level: 1, ChainLength: 2},
		},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}

	plan = PlanCatchUp(g, ProgressMap{}, []int{cc, d})
	assert.Equal(t, []string{"A", "B"}, selectionIDs(plan.Prerequisites))
	assert.Empty(t, plan.CompletedBranches)
}

func TestPlanCatchUp_SkipsCompletedPrerequisites(t *testing.T) {
	t.Parallel()

	c := forkCatalog()
	g := NewGraph(c.Tasks, c.Edges)
	d, _ := g.Index("D")

	plan := PlanCatchUp(g, ProgressMap{"A": model.StatusCompleted, "B": model.StatusInProgress}, []int{d})
	assert.Equal(t, []string{"B"}, selectionIDs(plan.Prerequisites))
}

func TestPlanCatchUp_UnrelatedBranchesExcluded(t *testing.T) {
	t.Parallel()

	c := chain("A>B", "A>C", "X>Y")
	g := NewGraph(c.Tasks, c.Edges)
	b, _ := g.Index("B")

	plan := PlanCatchUp(g, ProgressMap{}, []int{b})
	assert.Equal(t, []string{"C"}, selectionIDs(plan.CompletedBranches))
}

func TestBranchTaskIDsAndGroupByType(t *testing.T) {
	t.Parallel()

	c := forkCatalog()
	g := NewGraph(c.Tasks, c.Edges)
	cc, _ := g.Index("C")
	assert.Equal(t, []string{"A", "B", "C"}, BranchTaskIDs(g, cc))

	groups := GroupByType([]Selection{
		{TaskID: "1", Type: "prapor"},
		{TaskID: "2", Type: ""},
		{TaskID: "3", Type: "prapor"},
	})
	assert.Equal(t, []string{"1", "3"}, selectionIDs(groups["prapor"]))
	assert.Equal(t, []string{"2"}, selectionIDs(groups["unknown"]))
}

func TestCatchUp_WritesPrerequisitesBranchesAndTargets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, repo := newTestEngine(forkCatalog())

	result, err := e.CatchUp(ctx, user, []string{"D"}, []string{"C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.Completed)
	assert.Equal(t, []string{"C"}, result.CompletedBranches)
	assert.Equal(t, []string{"D"}, result.Available)

	for id, want := range map[string]model.Status{
		"A": model.StatusCompleted,
		"B": model.StatusCompleted,
		"C": model.StatusCompleted,
		"D": model.StatusAvailable,
	} {
		assert.Equal(t, want, repo.stored(user, id), id)
	}

	status, err := e.EffectiveStatus(ctx, user, "D")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, status)
}

func TestCatchUp_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, repo := newTestEngine(forkCatalog())

	_, err := e.CatchUp(ctx, user, []string{"D"}, nil)
	require.NoError(t, err)
	saves := repo.saves

	result, err := e.CatchUp(ctx, user, []string{"D"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Completed)
	assert.Equal(t, []string{"D"}, result.Available)
	assert.Equal(t, saves, repo.saves)
}

func TestCatchUp_CompletedTargetIsLeftAlone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, repo := newTestEngine(forkCatalog())
	repo.seed(user, map[string]model.Status{"D": model.StatusCompleted})

	result, err := e.CatchUp(ctx, user, []string{"D"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Available)
	assert.Equal(t, model.StatusCompleted, repo.stored(user, "D"))
}

func TestCatchUp_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, repo := newTestEngine(forkCatalog())

	_, err := e.CatchUp(ctx, user, nil, nil)
	require.ErrorIs(t, err, ErrValidation)

	many := make([]string, MaxCatchUpTargets+1)
	for i := range many {
		many[i] = fmt.Sprintf("t%d", i)
	}
	_, err = e.PlanCatchUp(ctx, user, many)
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.CatchUp(ctx, user, []string{"D"}, []string{"D"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.CatchUp(ctx, user, []string{"ghost"}, nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.CatchUp(ctx, user, []string{"D"}, []string{"ghost"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, model.Status(""), repo.stored(user, "A"), "failed batch must not write")
}

func TestCatchUp_UnlocksRelockedSiblings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, repo := newTestEngine(chain("a>b", "a>x"))

	_, err := e.SetTaskStatus(ctx, user, "a", model.StatusCompleted)
	require.NoError(t, err)
	change, err := e.SetTaskStatus(ctx, user, "a", model.StatusAvailable)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "x"}, change.Relocked)

	result, err := e.CatchUp(ctx, user, []string{"b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Completed)
	assert.Equal(t, []string{"b"}, result.Available)
	assert.Equal(t, []string{"x"}, result.Unlocked)
	assert.Equal(t, model.StatusAvailable, repo.stored(user, "x"))

	status, err := e.EffectiveStatus(ctx, user, "x")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, status)

	_, err = e.SetTaskStatus(ctx, user, "x", model.StatusInProgress)
	require.NoError(t, err)
}
