package catalog

import (
	"sort"

	"github.com/metalagman/questline/internal/model"
)

// DetectCycle returns a requirement cycle as a path of task ids, first id
// repeated at the end, or nil when the catalog is acyclic.
func DetectCycle(c model.Catalog) []string {
	const (
		white = iota
		gray
		black
	)

	adj := make(map[string][]string, len(c.Tasks))
	for _, e := range c.Edges {
		adj[e.RequiredID] = append(adj[e.RequiredID], e.DependentID)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}

	color := make(map[string]int, len(c.Tasks))
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range adj[node] {
			switch color[next] {
			case gray:
				path := []string{next}
				for cur := node; cur != next; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, next)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			case white:
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
