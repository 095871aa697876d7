// Package progress resolves quest requirements and propagates status changes
// through the quest graph for a single user.
package progress

import (
	"sort"

	"github.com/metalagman/questline/internal/model"
	"github.com/rs/zerolog/log"
)

// EdgeRef is one side of a requirement edge as seen from a task. For incoming
// edges Peer is the required task, for outgoing edges Peer is the dependent.
type EdgeRef struct {
	Peer     int
	Statuses model.RequirementSet
}

// Graph is an index-addressed view of the catalog. Tasks are stored in an
// arena ordered by id; edges are kept in both directions.
type Graph struct {
	tasks []model.Task
	index map[string]int
	in    [][]EdgeRef
	out   [][]EdgeRef
}

// NewGraph builds a graph from catalog tasks and edges. Edges that reference
// unknown tasks are dropped.
func NewGraph(tasks []model.Task, edges []model.Edge) *Graph {
	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	g := &Graph{
		tasks: sorted,
		index: make(map[string]int, len(sorted)),
		in:    make([][]EdgeRef, len(sorted)),
		out:   make([][]EdgeRef, len(sorted)),
	}
	for i, t := range sorted {
		g.index[t.ID] = i
	}

	seen := make(map[[2]int]bool, len(edges))
	for _, e := range edges {
		req, ok := g.index[e.RequiredID]
		if !ok {
			log.Debug().Str("required_id", e.RequiredID).Str("dependent_id", e.DependentID).Msg("edge references unknown required task")
			continue
		}
		dep, ok := g.index[e.DependentID]
		if !ok {
			log.Debug().Str("required_id", e.RequiredID).Str("dependent_id", e.DependentID).Msg("edge references unknown dependent task")
			continue
		}
		key := [2]int{req, dep}
		if seen[key] {
			continue
		}
		seen[key] = true
		statuses := e.Statuses.Normalize()
		g.in[dep] = append(g.in[dep], EdgeRef{Peer: req, Statuses: statuses})
		g.out[req] = append(g.out[req], EdgeRef{Peer: dep, Statuses: statuses})
	}
	for i := range g.in {
		sort.Slice(g.in[i], func(a, b int) bool { return g.in[i][a].Peer < g.in[i][b].Peer })
		sort.Slice(g.out[i], func(a, b int) bool { return g.out[i][a].Peer < g.out[i][b].Peer })
	}
	return g
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Index returns the arena index of a task id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// ID returns the task id at index i.
func (g *Graph) ID(i int) string {
	return g.tasks[i].ID
}

// Task returns the catalog task at index i.
func (g *Graph) Task(i int) model.Task {
	return g.tasks[i]
}

// Requires returns the incoming edges of task i.
func (g *Graph) Requires(i int) []EdgeRef {
	return g.in[i]
}

// Dependents returns the outgoing edges of task i.
func (g *Graph) Dependents(i int) []EdgeRef {
	return g.out[i]
}

// IsRoot reports whether task i has no requirements.
func (g *Graph) IsRoot(i int) bool {
	return len(g.in[i]) == 0
}

// IsTerminal reports whether no task depends on task i.
func (g *Graph) IsTerminal(i int) bool {
	return len(g.out[i]) == 0
}

// Ancestors returns every task reachable by following requirement edges
// backwards from i, excluding i itself.
func (g *Graph) Ancestors(i int) map[int]struct{} {
	return g.walk(i, g.in)
}

// Descendants returns every task reachable by following requirement edges
// forwards from i, excluding i itself.
func (g *Graph) Descendants(i int) map[int]struct{} {
	return g.walk(i, g.out)
}

// walk is a stack-based DFS; the visited set keeps diamonds and stray cycles
// from being expanded twice.
func (g *Graph) walk(start int, adj [][]EdgeRef) map[int]struct{} {
	visited := map[int]struct{}{start: {}}
	stack := []int{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range adj[cur] {
			if _, ok := visited[e.Peer]; ok {
				continue
			}
			visited[e.Peer] = struct{}{}
			stack = append(stack, e.Peer)
		}
	}
	delete(visited, start)
	return visited
}

// ProgressMap holds the stored status of each task for one user. Tasks
// without a record are absent.
type ProgressMap map[string]model.Status

// NewProgressMap indexes progress records by task id.
func NewProgressMap(records []model.TaskProgress) ProgressMap {
	m := make(ProgressMap, len(records))
	for _, r := range records {
		m[r.TaskID] = r.Status
	}
	return m
}

// Get returns the stored status of a task, or "" when there is no record.
func (m ProgressMap) Get(id string) model.Status {
	return m[id]
}

// Lookup returns the stored status and whether a record exists.
func (m ProgressMap) Lookup(id string) (model.Status, bool) {
	s, ok := m[id]
	return s, ok
}
