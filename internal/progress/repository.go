package progress

import (
	"context"

	"github.com/metalagman/questline/internal/model"
)

// Repository runs engine operations against the authoritative store.
type Repository interface {
	// InTx runs fn in one transaction. If fn returns an error nothing it
	// wrote is kept.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the store as seen from inside one transaction.
type Tx interface {
	Catalog(ctx context.Context) ([]model.Task, []model.Edge, error)
	Progress(ctx context.Context, userID string) ([]model.TaskProgress, error)
	SaveProgress(ctx context.Context, p model.TaskProgress) error
	Objective(ctx context.Context, id string) (model.Objective, bool, error)
	Objectives(ctx context.Context, taskID string) ([]model.Objective, error)
	ObjectiveProgress(ctx context.Context, userID string, objectiveIDs []string) (map[string]bool, error)
	SaveObjectiveProgress(ctx context.Context, p model.ObjectiveProgress) error
}

// session is the in-transaction state of one engine operation.
type session struct {
	ctx      context.Context
	tx       Tx
	userID   string
	graph    *Graph
	progress ProgressMap
	cache    *LockCache
}

func openSession(ctx context.Context, tx Tx, userID string) (*session, error) {
	tasks, edges, err := tx.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	records, err := tx.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &session{
		ctx:      ctx,
		tx:       tx,
		userID:   userID,
		graph:    NewGraph(tasks, edges),
		progress: NewProgressMap(records),
		cache:    NewLockCache(),
	}, nil
}

func (s *session) resolver() *Resolver {
	return NewResolver(s.graph, s.progress, s.cache)
}

func (s *session) task(id string) (int, error) {
	i, ok := s.graph.Index(id)
	if !ok {
		return 0, taskNotFound(id)
	}
	return i, nil
}

// write persists a task status and keeps the in-memory view in step with it.
func (s *session) write(i int, status model.Status) error {
	id := s.graph.ID(i)
	if err := s.tx.SaveProgress(s.ctx, model.TaskProgress{UserID: s.userID, TaskID: id, Status: status}); err != nil {
		return err
	}
	s.progress[id] = status
	s.cache.forget()
	return nil
}
