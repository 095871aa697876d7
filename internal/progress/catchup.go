package progress

import (
	"sort"

	"github.com/metalagman/questline/internal/model"
)

// MaxCatchUpTargets caps the number of targets in one catch-up request.
const MaxCatchUpTargets = 100

// Selection describes a task offered in a catch-up plan.
type Selection struct {
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Level       int    `json:"level"`
	ChainLength int    `json:"chain_length"`
}

// CatchUpPlan is what a catch-up would do, before anything is written.
type CatchUpPlan struct {
	// Prerequisites must be completed for the user to be on the targets.
	Prerequisites []Selection `json:"prerequisites"`
	// CompletedBranches are sibling terminal tasks the user has probably
	// finished already; they are only written when confirmed.
	CompletedBranches []Selection `json:"completed_branches"`
}

// chainIndex caches ancestor counts for one plan.
type chainIndex struct {
	graph  *Graph
	length map[int]int
}

func (c *chainIndex) of(i int) int {
	if n, ok := c.length[i]; ok {
		return n
	}
	n := len(c.graph.Ancestors(i))
	c.length[i] = n
	return n
}

func (c *chainIndex) selection(i int) Selection {
	t := c.graph.Task(i)
	return Selection{
		TaskID:      t.ID,
		Title:       t.Title,
		Type:        t.Type,
		Level:       t.Level,
		ChainLength: c.of(i),
	}
}

// PlanCatchUp computes the incomplete prerequisites of targets and the
// sibling terminal branches that share an ancestor with them.
func PlanCatchUp(g *Graph, progress ProgressMap, targets []int) CatchUpPlan {
	chains := &chainIndex{graph: g, length: make(map[int]int)}

	targetSet := make(map[int]struct{}, len(targets))
	for _, t := range targets {
		targetSet[t] = struct{}{}
	}
	ancestors := make(map[int]struct{})
	descendants := make(map[int]struct{})
	for _, t := range targets {
		for a := range g.Ancestors(t) {
			ancestors[a] = struct{}{}
		}
		for d := range g.Descendants(t) {
			descendants[d] = struct{}{}
		}
	}

	plan := CatchUpPlan{
		Prerequisites:     []Selection{},
		CompletedBranches: []Selection{},
	}
	for a := range ancestors {
		if _, ok := targetSet[a]; ok {
			continue
		}
		if progress.Get(g.ID(a)) == model.StatusCompleted {
			continue
		}
		plan.Prerequisites = append(plan.Prerequisites, chains.selection(a))
	}
	sort.Slice(plan.Prerequisites, func(i, j int) bool {
		a, b := plan.Prerequisites[i], plan.Prerequisites[j]
		if a.ChainLength != b.ChainLength {
			return a.ChainLength < b.ChainLength
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.TaskID < b.TaskID
	})

	// A target counts as its own ancestor when looking for shared ancestry.
	shared := make(map[int]struct{}, len(ancestors)+len(targetSet))
	for a := range ancestors {
		shared[a] = struct{}{}
	}
	for t := range targetSet {
		shared[t] = struct{}{}
	}

	for i := 0; i < g.Len(); i++ {
		if !g.IsTerminal(i) {
			continue
		}
		if _, ok := targetSet[i]; ok {
			continue
		}
		if _, ok := ancestors[i]; ok {
			continue
		}
		if _, ok := descendants[i]; ok {
			continue
		}
		if !sharesAncestor(g.Ancestors(i), shared) {
			continue
		}
		plan.CompletedBranches = append(plan.CompletedBranches, chains.selection(i))
	}
	sort.Slice(plan.CompletedBranches, func(i, j int) bool {
		a, b := plan.CompletedBranches[i], plan.CompletedBranches[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.TaskID < b.TaskID
	})
	return plan
}

func sharesAncestor(candidate, shared map[int]struct{}) bool {
	for a := range candidate {
		if _, ok := shared[a]; ok {
			return true
		}
	}
	return false
}

// BranchTaskIDs returns a branch task and all of its ancestors, ordered by id.
func BranchTaskIDs(g *Graph, branch int) []string {
	ancestors := g.Ancestors(branch)
	ids := make([]string, 0, len(ancestors)+1)
	ids = append(ids, g.ID(branch))
	for a := range ancestors {
		ids = append(ids, g.ID(a))
	}
	sort.Strings(ids)
	return ids
}

// GroupByType buckets selections by task type, preserving their order.
func GroupByType(selections []Selection) map[string][]Selection {
	groups := make(map[string][]Selection)
	for _, s := range selections {
		key := s.Type
		if key == "" {
			key = "unknown"
		}
		groups[key] = append(groups[key], s)
	}
	return groups
}
