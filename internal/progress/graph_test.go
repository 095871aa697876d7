package progress

import (
	"sort"
	"testing"

	"github.com/metalagman/questline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(g *Graph, set map[int]struct{}) []string {
	out := make([]string, 0, len(set))
	for i := range set {
		out = append(out, g.ID(i))
	}
	sort.Strings(out)
	return out
}

func TestGraph_AncestorsAndDescendants(t *testing.T) {
	t.Parallel()

	c := chain("a>b", "b>c", "b>d", "x>d")
	g := NewGraph(c.Tasks, c.Edges)
	d, _ := g.Index("d")
	b, _ := g.Index("b")
	a, _ := g.Index("a")

	assert.Equal(t, []string{"a", "b", "x"}, ids(g, g.Ancestors(d)))
	assert.Equal(t, []string{"c", "d"}, ids(g, g.Descendants(b)))
	assert.True(t, g.IsRoot(a))
	assert.False(t, g.IsRoot(d))
	assert.True(t, g.IsTerminal(d))
	assert.False(t, g.IsTerminal(b))
}

func TestNewGraph_DropsUnknownAndDuplicateEdges(t *testing.T) {
	t.Parallel()

	tasks := []model.Task{{ID: "b"}, {ID: "a"}}
	edges := []model.Edge{
		{RequiredID: "a", DependentID: "b"},
		{RequiredID: "a", DependentID: "b", Statuses: model.RequirementSet{model.RequireActive}},
		{RequiredID: "ghost", DependentID: "b"},
		{RequiredID: "a", DependentID: "ghost"},
	}
	g := NewGraph(tasks, edges)

	require.Equal(t, 2, g.Len())
	assert.Equal(t, "a", g.ID(0))
	b, ok := g.Index("b")
	require.True(t, ok)
	require.Len(t, g.Requires(b), 1)
	assert.Equal(t, model.RequirementSet{model.RequireComplete}, g.Requires(b)[0].Statuses)

	_, ok = g.Index("ghost")
	assert.False(t, ok)
}

func TestGraph_WalkSurvivesCycles(t *testing.T) {
	t.Parallel()

	c := chain("a>b", "b>c", "c>a")
	g := NewGraph(c.Tasks, c.Edges)
	a, _ := g.Index("a")
	assert.Equal(t, []string{"b", "c"}, ids(g, g.Ancestors(a)))
}
