package progress

import (
	"context"
	"sort"
	"strings"

	"github.com/metalagman/questline/internal/model"
	"github.com/rs/zerolog/log"
)

// CatchUpResult lists what a catch-up batch wrote.
type CatchUpResult struct {
	Completed         []string `json:"completed"`
	CompletedBranches []string `json:"completed_branches"`
	Available         []string `json:"available"`
	// Unlocked are other dependents of the completed tasks that the batch
	// made available.
	Unlocked []string `json:"unlocked"`
}

// PlanCatchUp computes the catch-up plan for targets without writing.
func (e *Engine) PlanCatchUp(ctx context.Context, userID string, targets []string) (plan CatchUpPlan, err error) {
	ctx, span := e.inst.start(ctx, "PlanCatchUp", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return CatchUpPlan{}, err
	}
	targets, err = normalizeTargets(targets)
	if err != nil {
		return CatchUpPlan{}, err
	}
	err = e.repo.InTx(ctx, func(tx Tx) error {
		s, err := openSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		idx, err := s.indexAll(targets)
		if err != nil {
			return err
		}
		plan = PlanCatchUp(s.graph, s.progress, idx)
		return nil
	})
	if err != nil {
		return CatchUpPlan{}, err
	}
	return plan, nil
}

// CatchUp completes every incomplete prerequisite of targets, plus each
// confirmed branch and its prerequisites, and makes the targets available.
// Everything is written in one transaction.
func (e *Engine) CatchUp(ctx context.Context, userID string, targets, confirmedBranches []string) (result CatchUpResult, err error) {
	ctx, span := e.inst.start(ctx, "CatchUp", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return CatchUpResult{}, err
	}
	targets, err = normalizeTargets(targets)
	if err != nil {
		return CatchUpResult{}, err
	}
	confirmedBranches = dedupe(confirmedBranches)

	err = e.repo.InTx(ctx, func(tx Tx) error {
		s, err := openSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		targetIdx, err := s.indexAll(targets)
		if err != nil {
			return err
		}
		branchIdx, err := s.indexAll(confirmedBranches)
		if err != nil {
			return err
		}
		isTarget := make(map[int]struct{}, len(targetIdx))
		for _, t := range targetIdx {
			isTarget[t] = struct{}{}
		}
		for _, b := range branchIdx {
			if _, ok := isTarget[b]; ok {
				return &ValidationError{Field: "branches", Reason: "task " + s.graph.ID(b) + " is also a target"}
			}
		}

		plan := PlanCatchUp(s.graph, s.progress, targetIdx)
		result = CatchUpResult{Completed: []string{}, CompletedBranches: []string{}, Available: []string{}, Unlocked: []string{}}

		var done []int
		complete := func(i int) (bool, error) {
			if s.progress.Get(s.graph.ID(i)) == model.StatusCompleted {
				return false, nil
			}
			if err := s.write(i, model.StatusCompleted); err != nil {
				return false, err
			}
			done = append(done, i)
			return true, nil
		}

		for _, sel := range plan.Prerequisites {
			i, _ := s.graph.Index(sel.TaskID)
			ok, err := complete(i)
			if err != nil {
				return err
			}
			if ok {
				result.Completed = append(result.Completed, sel.TaskID)
			}
		}

		for _, b := range branchIdx {
			for _, a := range sortedByChain(s.graph, s.graph.Ancestors(b)) {
				if _, ok := isTarget[a]; ok {
					continue
				}
				ok, err := complete(a)
				if err != nil {
					return err
				}
				if ok {
					result.Completed = append(result.Completed, s.graph.ID(a))
				}
			}
			ok, err := complete(b)
			if err != nil {
				return err
			}
			if ok {
				result.CompletedBranches = append(result.CompletedBranches, s.graph.ID(b))
			}
		}

		for _, t := range targetIdx {
			id := s.graph.ID(t)
			current := s.progress.Get(id)
			if current == model.StatusCompleted {
				continue
			}
			if current != model.StatusAvailable {
				if err := s.write(t, model.StatusAvailable); err != nil {
					return err
				}
			}
			result.Available = append(result.Available, id)
		}

		seen := make(map[string]struct{})
		for _, i := range done {
			unlocked, err := s.unlockDependents(i, model.StatusCompleted)
			if err != nil {
				return err
			}
			for _, id := range unlocked {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				result.Unlocked = append(result.Unlocked, id)
			}
		}
		return nil
	})
	if err != nil {
		return CatchUpResult{}, err
	}

	written := len(result.Completed) + len(result.CompletedBranches) + len(result.Available)
	e.inst.catchUps.Add(ctx, int64(written))
	e.inst.unlocked.Add(ctx, int64(len(result.Unlocked)))
	log.Info().
		Str("user_id", userID).
		Strs("targets", targets).
		Int("completed", len(result.Completed)).
		Int("branches", len(result.CompletedBranches)).
		Int("available", len(result.Available)).
		Int("unlocked", len(result.Unlocked)).
		Msg("catch-up applied")
	return result, nil
}

func (s *session) indexAll(ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		i, err := s.task(id)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// sortedByChain orders tasks so shallow prerequisites come first.
func sortedByChain(g *Graph, set map[int]struct{}) []int {
	chains := &chainIndex{graph: g, length: make(map[int]int, len(set))}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		ca, cb := chains.of(out[a]), chains.of(out[b])
		if ca != cb {
			return ca < cb
		}
		return out[a] < out[b]
	})
	return out
}

func normalizeTargets(targets []string) ([]string, error) {
	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, &ValidationError{Field: "targets", Reason: "at least one target task is required"}
	}
	if len(targets) > MaxCatchUpTargets {
		return nil, &ValidationError{Field: "targets", Reason: "too many target tasks"}
	}
	return targets, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
