package progress

import (
	"github.com/metalagman/questline/internal/model"
	"github.com/rs/zerolog/log"
)

// unlockDependents promotes dependents of task changed whose requirements are
// now all satisfied. It looks one hop ahead only: a task that becomes
// available does not unlock its own dependents.
func (s *session) unlockDependents(changed int, status model.Status) ([]string, error) {
	var queue []int
	queued := make(map[int]struct{})
	for _, e := range s.graph.Dependents(changed) {
		if !Satisfied(e.Statuses, status) {
			continue
		}
		if _, ok := queued[e.Peer]; ok {
			continue
		}
		queued[e.Peer] = struct{}{}
		queue = append(queue, e.Peer)
	}

	var unlocked []string
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if !requirementsMet(s.graph, s.progress, dep) {
			continue
		}
		id := s.graph.ID(dep)
		current, ok := s.progress.Lookup(id)
		if ok && current != model.StatusLocked {
			continue
		}
		if err := s.write(dep, model.StatusAvailable); err != nil {
			return nil, err
		}
		unlocked = append(unlocked, id)
	}

	if len(unlocked) > 0 {
		log.Debug().Str("user_id", s.userID).Str("task_id", s.graph.ID(changed)).Strs("unlocked", unlocked).Msg("dependents unlocked")
	}
	return unlocked, nil
}

// relockDependents re-locks available dependents of task changed whose
// requirements no longer hold, following each relocked task onwards.
// In-progress and completed dependents are left alone; the lock resolver
// shadows them instead.
func (s *session) relockDependents(changed int) ([]string, error) {
	queue := []int{changed}
	relocked := make(map[int]struct{})
	var ids []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.graph.Dependents(cur) {
			dep := e.Peer
			if _, ok := relocked[dep]; ok {
				continue
			}
			if requirementsMet(s.graph, s.progress, dep) {
				continue
			}
			if s.progress.Get(s.graph.ID(dep)) != model.StatusAvailable {
				continue
			}
			if err := s.write(dep, model.StatusLocked); err != nil {
				return nil, err
			}
			relocked[dep] = struct{}{}
			ids = append(ids, s.graph.ID(dep))
			queue = append(queue, dep)
		}
	}

	if len(ids) > 0 {
		log.Debug().Str("user_id", s.userID).Str("task_id", s.graph.ID(changed)).Strs("relocked", ids).Msg("dependents relocked")
	}
	return ids, nil
}
