// Package db provides database connectivity, migrations and the progress
// store for questline.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/metalagman/questline/internal/model"
	"github.com/metalagman/questline/internal/progress"
	"github.com/rs/zerolog/log"
)

const busyRetryMaxElapsed = 10 * time.Second

// Store persists the quest catalog and per-user progress.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func newBusyBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxElapsedTime = busyRetryMaxElapsed
	return bo
}

// isBusy reports whether err is SQLite refusing a write because another
// connection holds the lock.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_locked")
}

// InTx runs fn in one transaction, rolling back if fn fails. Transactions
// that fail because the database is busy are retried from the start.
func (s *Store) InTx(ctx context.Context, fn func(progress.Tx) error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.runTx(ctx, fn)
		if err != nil && isBusy(err) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("database busy, retrying transaction")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newBusyBackoff(), ctx))
}

func (s *Store) runTx(ctx context.Context, fn func(progress.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&txStore{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ImportCatalog upserts tasks and objectives and replaces the edge set in one
// transaction. Tasks missing from catalog are kept so stored progress stays
// valid.
func (s *Store) ImportCatalog(ctx context.Context, catalog model.Catalog) error {
	return s.InTx(ctx, func(ptx progress.Tx) error {
		t := ptx.(*txStore)
		for _, task := range catalog.Tasks {
			if err := t.upsertTask(ctx, task); err != nil {
				return err
			}
		}
		if _, err := t.q.ExecContext(ctx, `DELETE FROM task_edges`); err != nil {
			return fmt.Errorf("clear edges: %w", err)
		}
		for _, edge := range catalog.Edges {
			if err := t.insertEdge(ctx, edge); err != nil {
				return err
			}
		}
		for pos, obj := range catalog.Objectives {
			if err := t.upsertObjective(ctx, obj, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tasks returns every catalog task ordered by level and title.
func (s *Store) Tasks(ctx context.Context) ([]model.Task, error) {
	return (&txStore{q: s.db}).tasks(ctx, ` ORDER BY level, title, id`)
}

// Catalog returns the full catalog including objectives.
func (s *Store) Catalog(ctx context.Context) (model.Catalog, error) {
	t := &txStore{q: s.db}
	tasks, edges, err := t.Catalog(ctx)
	if err != nil {
		return model.Catalog{}, err
	}
	objectives, err := t.objectives(ctx, "", nil)
	if err != nil {
		return model.Catalog{}, err
	}
	return model.Catalog{Tasks: tasks, Edges: edges, Objectives: objectives}, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txStore implements progress.Tx over a transaction (or, for read helpers,
// the plain handle).
type txStore struct {
	q querier
}

var _ progress.Tx = (*txStore)(nil)

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (t *txStore) upsertTask(ctx context.Context, task model.Task) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO tasks(id, title, level, critical, type, location, wiki_link)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, level=excluded.level, critical=excluded.critical,
			type=excluded.type, location=excluded.location, wiki_link=excluded.wiki_link`,
		task.ID, task.Title, task.Level, task.Critical, task.Type, nullableString(task.Location), nullableString(task.WikiLink))
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", task.ID, err)
	}
	return nil
}

func (t *txStore) insertEdge(ctx context.Context, edge model.Edge) error {
	statusesJSON, err := json.Marshal(edge.Statuses.Normalize().Strings())
	if err != nil {
		return fmt.Errorf("marshal edge statuses: %w", err)
	}
	_, err = t.q.ExecContext(ctx, `INSERT OR REPLACE INTO task_edges(required_id, dependent_id, statuses_json) VALUES(?, ?, ?)`,
		edge.RequiredID, edge.DependentID, string(statusesJSON))
	if err != nil {
		return fmt.Errorf("insert edge %s -> %s: %w", edge.RequiredID, edge.DependentID, err)
	}
	return nil
}

func (t *txStore) upsertObjective(ctx context.Context, obj model.Objective, position int) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO objectives(id, task_id, position, description, optional, location)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET task_id=excluded.task_id, position=excluded.position,
			description=excluded.description, optional=excluded.optional, location=excluded.location`,
		obj.ID, obj.TaskID, position, obj.Description, obj.Optional, nullableString(obj.Location))
	if err != nil {
		return fmt.Errorf("upsert objective %s: %w", obj.ID, err)
	}
	return nil
}

// Catalog loads all tasks and edges.
func (t *txStore) Catalog(ctx context.Context) ([]model.Task, []model.Edge, error) {
	tasks, err := t.tasks(ctx, ` ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	rows, err := t.q.QueryContext(ctx, `SELECT required_id, dependent_id, statuses_json FROM task_edges ORDER BY dependent_id, required_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		var statusesJSON string
		if err := rows.Scan(&e.RequiredID, &e.DependentID, &statusesJSON); err != nil {
			return nil, nil, fmt.Errorf("scan edge: %w", err)
		}
		statuses, err := parseStatuses(statusesJSON)
		if err != nil {
			return nil, nil, fmt.Errorf("edge %s -> %s: %w", e.RequiredID, e.DependentID, err)
		}
		e.Statuses = statuses
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate edges: %w", err)
	}
	return tasks, edges, nil
}

func parseStatuses(raw string) (model.RequirementSet, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("parse statuses: %w", err)
	}
	out := make(model.RequirementSet, 0, len(values))
	for _, v := range values {
		r, err := model.ParseRequirement(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *txStore) tasks(ctx context.Context, order string) ([]model.Task, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT id, title, level, critical, type, location, wiki_link FROM tasks`+order)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var out []model.Task
	for rows.Next() {
		var task model.Task
		var location, wikiLink sql.NullString
		if err := rows.Scan(&task.ID, &task.Title, &task.Level, &task.Critical, &task.Type, &location, &wikiLink); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.Location = location.String
		task.WikiLink = wikiLink.String
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// Progress returns the stored task progress of a user.
func (t *txStore) Progress(ctx context.Context, userID string) ([]model.TaskProgress, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT user_id, task_id, status, updated_at FROM task_progress WHERE user_id=? ORDER BY task_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()
	var out []model.TaskProgress
	for rows.Next() {
		var p model.TaskProgress
		var status string
		if err := rows.Scan(&p.UserID, &p.TaskID, &status, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		s, err := model.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("progress %s: %w", p.TaskID, err)
		}
		p.Status = s
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// SaveProgress inserts or overwrites one task progress record.
func (t *txStore) SaveProgress(ctx context.Context, p model.TaskProgress) error {
	updatedAt := p.UpdatedAt
	if updatedAt == "" {
		updatedAt = now()
	}
	_, err := t.q.ExecContext(ctx, `INSERT INTO task_progress(user_id, task_id, status, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(user_id, task_id) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at`,
		p.UserID, p.TaskID, string(p.Status), updatedAt)
	if err != nil {
		return fmt.Errorf("save progress %s: %w", p.TaskID, err)
	}
	return nil
}

// Objective fetches one objective by id.
func (t *txStore) Objective(ctx context.Context, id string) (model.Objective, bool, error) {
	row := t.q.QueryRowContext(ctx, `SELECT id, task_id, description, optional, location FROM objectives WHERE id=?`, id)
	var obj model.Objective
	var location sql.NullString
	if err := row.Scan(&obj.ID, &obj.TaskID, &obj.Description, &obj.Optional, &location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Objective{}, false, nil
		}
		return model.Objective{}, false, fmt.Errorf("read objective: %w", err)
	}
	obj.Location = location.String
	return obj, true, nil
}

// Objectives returns the objectives of a task in catalog order.
func (t *txStore) Objectives(ctx context.Context, taskID string) ([]model.Objective, error) {
	return t.objectives(ctx, ` WHERE task_id=?`, []any{taskID})
}

func (t *txStore) objectives(ctx context.Context, where string, args []any) ([]model.Objective, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT id, task_id, description, optional, location FROM objectives`+where+` ORDER BY task_id, position, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query objectives: %w", err)
	}
	defer rows.Close()
	var out []model.Objective
	for rows.Next() {
		var obj model.Objective
		var location sql.NullString
		if err := rows.Scan(&obj.ID, &obj.TaskID, &obj.Description, &obj.Optional, &location); err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		obj.Location = location.String
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objectives: %w", err)
	}
	return out, nil
}

// ObjectiveProgress returns completion flags for the given objectives. Missing
// records are reported as not completed.
func (t *txStore) ObjectiveProgress(ctx context.Context, userID string, objectiveIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(objectiveIDs))
	if len(objectiveIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(objectiveIDs)), ",")
	args := make([]any, 0, len(objectiveIDs)+1)
	args = append(args, userID)
	for _, id := range objectiveIDs {
		args = append(args, id)
	}
	rows, err := t.q.QueryContext(ctx, `SELECT objective_id, completed FROM objective_progress
		WHERE user_id=? AND objective_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query objective progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var completed bool
		if err := rows.Scan(&id, &completed); err != nil {
			return nil, fmt.Errorf("scan objective progress: %w", err)
		}
		out[id] = completed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objective progress: %w", err)
	}
	return out, nil
}

// SaveObjectiveProgress inserts or overwrites one objective flag.
func (t *txStore) SaveObjectiveProgress(ctx context.Context, p model.ObjectiveProgress) error {
	updatedAt := p.UpdatedAt
	if updatedAt == "" {
		updatedAt = now()
	}
	_, err := t.q.ExecContext(ctx, `INSERT INTO objective_progress(user_id, objective_id, completed, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(user_id, objective_id) DO UPDATE SET completed=excluded.completed, updated_at=excluded.updated_at`,
		p.UserID, p.ObjectiveID, p.Completed, updatedAt)
	if err != nil {
		return fmt.Errorf("save objective progress %s: %w", p.ObjectiveID, err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
