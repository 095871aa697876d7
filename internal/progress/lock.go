package progress

import (
	"github.com/metalagman/questline/internal/model"
	"github.com/rs/zerolog/log"
)

// LockCache memoizes effective-lock results for one operation. It must not
// outlive the operation that created it: progress changes between requests.
type LockCache struct {
	locked map[int]bool
}

// NewLockCache returns an empty cache.
func NewLockCache() *LockCache {
	return &LockCache{locked: make(map[int]bool)}
}

func (c *LockCache) get(i int) (bool, bool) {
	v, ok := c.locked[i]
	return v, ok
}

func (c *LockCache) set(i int, locked bool) {
	c.locked[i] = locked
}

// forget drops cached results; used after the progress map is written.
func (c *LockCache) forget() {
	clear(c.locked)
}

// Resolver decides whether tasks are effectively locked for one user.
type Resolver struct {
	graph    *Graph
	progress ProgressMap
	cache    *LockCache
	inView   func(int) bool
}

// NewResolver returns a resolver over the whole graph.
func NewResolver(g *Graph, progress ProgressMap, cache *LockCache) *Resolver {
	if cache == nil {
		cache = NewLockCache()
	}
	return &Resolver{graph: g, progress: progress, cache: cache}
}

// WithView restricts recursion to tasks accepted by inView. Requirements on
// tasks outside the view are judged only by their stored status.
func (r *Resolver) WithView(inView func(int) bool) *Resolver {
	r.inView = inView
	return r
}

func (r *Resolver) visible(i int) bool {
	return r.inView == nil || r.inView(i)
}

type lockFrame struct {
	node int
	next int
}

// Locked reports whether task i is effectively locked: some requirement edge
// on it, or on any visible ancestor, is unsatisfied by stored progress.
func (r *Resolver) Locked(i int) bool {
	if v, ok := r.cache.get(i); ok {
		return v
	}

	visiting := map[int]struct{}{i: {}}
	stack := []lockFrame{{node: i}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := r.graph.Requires(top.node)
		locked := false
		pushed := false
		for top.next < len(edges) {
			e := edges[top.next]
			if !Satisfied(e.Statuses, r.progress.Get(r.graph.ID(e.Peer))) {
				locked = true
				break
			}
			if !r.visible(e.Peer) {
				top.next++
				continue
			}
			if v, ok := r.cache.get(e.Peer); ok {
				if v {
					locked = true
					break
				}
				top.next++
				continue
			}
			if _, ok := visiting[e.Peer]; ok {
				log.Warn().Str("task_id", r.graph.ID(top.node)).Str("required_id", r.graph.ID(e.Peer)).Msg("requirement cycle detected")
				top.next++
				continue
			}
			visiting[e.Peer] = struct{}{}
			stack = append(stack, lockFrame{node: e.Peer})
			pushed = true
			break
		}
		if pushed {
			continue
		}
		node := top.node
		r.cache.set(node, locked)
		delete(visiting, node)
		stack = stack[:len(stack)-1]
	}

	v, _ := r.cache.get(i)
	return v
}

// Status returns the effective status of task i: locked when the resolver
// says so, otherwise the stored status, defaulting to available.
func (r *Resolver) Status(i int) model.Status {
	if r.Locked(i) {
		return model.StatusLocked
	}
	if s, ok := r.progress.Lookup(r.graph.ID(i)); ok {
		return s
	}
	return model.StatusAvailable
}

// InitialStatus is the status a new progress record starts with.
func (r *Resolver) InitialStatus(i int) model.Status {
	if r.Locked(i) {
		return model.StatusLocked
	}
	return model.StatusAvailable
}
