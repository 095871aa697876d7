package progress

import (
	"context"
	"sort"
	"time"

	"github.com/metalagman/questline/internal/model"
)

// ExportVersion is the format version written by Export.
const ExportVersion = "1.0"

// Export is a portable dump of one user's stored progress.
type Export struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	UserID     string        `json:"user_id"`
	Summary    ExportSummary `json:"summary"`
	Tasks      []ExportEntry `json:"tasks"`
}

// ExportSummary counts stored records by status. Available includes tasks in
// progress.
type ExportSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Available int `json:"available"`
	Locked    int `json:"locked"`
}

// ExportEntry is one stored progress record with catalog details.
type ExportEntry struct {
	TaskID    string       `json:"task_id"`
	Title     string       `json:"title"`
	Type      string       `json:"type"`
	Status    model.Status `json:"status"`
	UpdatedAt string       `json:"updated_at"`
}

// Export returns the stored progress records of a user. Records for tasks no
// longer in the catalog are kept with empty catalog fields.
func (e *Engine) Export(ctx context.Context, userID string) (out Export, err error) {
	ctx, span := e.inst.start(ctx, "Export", userID)
	defer func() { e.inst.end(span, err) }()

	if err := validateUser(userID); err != nil {
		return Export{}, err
	}
	err = e.repo.InTx(ctx, func(tx Tx) error {
		tasks, _, err := tx.Catalog(ctx)
		if err != nil {
			return err
		}
		records, err := tx.Progress(ctx, userID)
		if err != nil {
			return err
		}
		byID := make(map[string]model.Task, len(tasks))
		for _, t := range tasks {
			byID[t.ID] = t
		}

		out = Export{
			Version:    ExportVersion,
			ExportedAt: time.Now().UTC(),
			UserID:     userID,
			Tasks:      make([]ExportEntry, 0, len(records)),
		}
		for _, r := range records {
			t := byID[r.TaskID]
			out.Tasks = append(out.Tasks, ExportEntry{
				TaskID:    r.TaskID,
				Title:     t.Title,
				Type:      t.Type,
				Status:    r.Status,
				UpdatedAt: r.UpdatedAt,
			})
			out.Summary.Total++
			switch r.Status {
			case model.StatusCompleted:
				out.Summary.Completed++
			case model.StatusAvailable, model.StatusInProgress:
				out.Summary.Available++
			case model.StatusLocked:
				out.Summary.Locked++
			}
		}
		sort.Slice(out.Tasks, func(i, j int) bool { return out.Tasks[i].TaskID < out.Tasks[j].TaskID })
		return nil
	})
	if err != nil {
		return Export{}, err
	}
	return out, nil
}
