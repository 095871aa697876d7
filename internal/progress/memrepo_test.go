package progress

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/metalagman/questline/internal/model"
)

// memRepo is an in-memory Repository. InTx works on a copy of the progress
// tables and publishes it only when fn succeeds.
type memRepo struct {
	mu          sync.Mutex
	tasks       []model.Task
	edges       []model.Edge
	objectives  []model.Objective
	progress    map[string]map[string]model.Status
	objProgress map[string]map[string]bool
	saves       int
}

func newMemRepo(c model.Catalog) *memRepo {
	return &memRepo{
		tasks:       c.Tasks,
		edges:       c.Edges,
		objectives:  c.Objectives,
		progress:    make(map[string]map[string]model.Status),
		objProgress: make(map[string]map[string]bool),
	}
}

func (r *memRepo) InTx(_ context.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{
		repo:        r,
		progress:    make(map[string]map[string]model.Status, len(r.progress)),
		objProgress: make(map[string]map[string]bool, len(r.objProgress)),
	}
	for u, m := range r.progress {
		tx.progress[u] = maps.Clone(m)
	}
	for u, m := range r.objProgress {
		tx.objProgress[u] = maps.Clone(m)
	}
	if err := fn(tx); err != nil {
		return err
	}
	r.progress = tx.progress
	r.objProgress = tx.objProgress
	r.saves += tx.saves
	return nil
}

// seed stores statuses for a user without going through the engine.
func (r *memRepo) seed(userID string, statuses map[string]model.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress[userID] == nil {
		r.progress[userID] = make(map[string]model.Status)
	}
	maps.Copy(r.progress[userID], statuses)
}

// stored returns the committed status of a task ("" when absent).
func (r *memRepo) stored(userID, taskID string) model.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress[userID][taskID]
}

type memTx struct {
	repo        *memRepo
	progress    map[string]map[string]model.Status
	objProgress map[string]map[string]bool
	saves       int
}

func (t *memTx) Catalog(context.Context) ([]model.Task, []model.Edge, error) {
	return t.repo.tasks, t.repo.edges, nil
}

func (t *memTx) Progress(_ context.Context, userID string) ([]model.TaskProgress, error) {
	var out []model.TaskProgress
	for id, s := range t.progress[userID] {
		out = append(out, model.TaskProgress{UserID: userID, TaskID: id, Status: s, UpdatedAt: "2025-01-01T00:00:00Z"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (t *memTx) SaveProgress(_ context.Context, p model.TaskProgress) error {
	if t.progress[p.UserID] == nil {
		t.progress[p.UserID] = make(map[string]model.Status)
	}
	t.progress[p.UserID][p.TaskID] = p.Status
	t.saves++
	return nil
}

func (t *memTx) Objective(_ context.Context, id string) (model.Objective, bool, error) {
	for _, o := range t.repo.objectives {
		if o.ID == id {
			return o, true, nil
		}
	}
	return model.Objective{}, false, nil
}

func (t *memTx) Objectives(_ context.Context, taskID string) ([]model.Objective, error) {
	var out []model.Objective
	for _, o := range t.repo.objectives {
		if o.TaskID == taskID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (t *memTx) ObjectiveProgress(_ context.Context, userID string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if done, ok := t.objProgress[userID][id]; ok {
			out[id] = done
		}
	}
	return out, nil
}

func (t *memTx) SaveObjectiveProgress(_ context.Context, p model.ObjectiveProgress) error {
	if t.objProgress[p.UserID] == nil {
		t.objProgress[p.UserID] = make(map[string]bool)
	}
	t.objProgress[p.UserID][p.ObjectiveID] = p.Completed
	return nil
}

// chain builds a catalog from "required>dependent" pairs; every id mentioned
// becomes a task titled after itself.
func chain(pairs ...string) model.Catalog {
	var c model.Catalog
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			c.Tasks = append(c.Tasks, model.Task{ID: id, Title: id, Level: 1})
		}
	}
	for _, p := range pairs {
		req, dep, ok := strings.Cut(p, ">")
		if !ok {
			add(p)
			continue
		}
		add(req)
		add(dep)
		c.Edges = append(c.Edges, model.Edge{RequiredID: req, DependentID: dep})
	}
	return c
}
