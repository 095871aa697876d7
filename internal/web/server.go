// Package web serves the questline JSON API and a small HTML progress page.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/metalagman/questline/internal/model"
	"github.com/metalagman/questline/internal/progress"
	"github.com/rs/zerolog/log"
)

// Engine is the subset of progress.Engine the server calls.
type Engine interface {
	SetTaskStatus(ctx context.Context, userID, taskID string, status model.Status) (progress.StatusChange, error)
	SetObjectiveCompletion(ctx context.Context, userID, objectiveID string, completed bool) (progress.ObjectiveChange, error)
	EffectiveStatus(ctx context.Context, userID, taskID string) (model.Status, error)
	EffectiveStatuses(ctx context.Context, userID string, filter progress.Filter) (map[string]model.Status, error)
	PlanCatchUp(ctx context.Context, userID string, targets []string) (progress.CatchUpPlan, error)
	CatchUp(ctx context.Context, userID string, targets, confirmedBranches []string) (progress.CatchUpResult, error)
	Export(ctx context.Context, userID string) (progress.Export, error)
}

// TaskSource lists catalog tasks for display.
type TaskSource interface {
	Tasks(ctx context.Context) ([]model.Task, error)
}

// Server provides the API and web UI handlers.
type Server struct {
	engine Engine
	tasks  TaskSource
	page   *template.Template
}

//go:embed templates/*.html
var templatesFS embed.FS

// NewServer creates a new web server.
func NewServer(engine Engine, tasks TaskSource) (*Server, error) {
	page, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Server{engine: engine, tasks: tasks, page: page}, nil
}

// Routes returns the router for the API and web UI.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/users/{user}/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/users/{user}/tasks/{task}", s.handleGetTask)
	mux.HandleFunc("PATCH /api/users/{user}/tasks/{task}", s.handleSetTask)
	mux.HandleFunc("PATCH /api/users/{user}/objectives/{objective}", s.handleSetObjective)
	mux.HandleFunc("POST /api/users/{user}/catch-up/plan", s.handlePlanCatchUp)
	mux.HandleFunc("POST /api/users/{user}/catch-up", s.handleCatchUp)
	mux.HandleFunc("GET /api/users/{user}/export", s.handleExport)

	mux.HandleFunc("GET /users/{user}", s.handleIndex)
	mux.HandleFunc("POST /users/{user}/tasks/{task}/done", s.handleMarkDone)
	return withRequestID(withAccessLog(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TaskView is one task row of a listing.
type TaskView struct {
	model.Task
	Status model.Status `json:"status"`
}

func filterFromQuery(q url.Values) (progress.Filter, error) {
	f := progress.Filter{
		Type:     q.Get("type"),
		Location: q.Get("location"),
		Search:   q.Get("search"),
	}
	if v := q.Get("critical"); v != "" {
		critical, err := strconv.ParseBool(v)
		if err != nil {
			return f, &progress.ValidationError{Field: "critical", Reason: "must be a boolean"}
		}
		f.CriticalOnly = critical
	}
	if v := q.Get("max_level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil || level < 0 {
			return f, &progress.ValidationError{Field: "max_level", Reason: "must be a non-negative integer"}
		}
		f.MaxLevel = level
	}
	return f, nil
}

func (s *Server) listTasks(ctx context.Context, userID string, filter progress.Filter, only model.Status) ([]TaskView, error) {
	statuses, err := s.engine.EffectiveStatuses(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TaskView, 0, len(statuses))
	for _, t := range tasks {
		st, ok := statuses[t.ID]
		if !ok || (only != "" && st != only) {
			continue
		}
		out = append(out, TaskView{Task: t, Status: st})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var only model.Status
	if v := r.URL.Query().Get("status"); v != "" {
		only, err = model.ParseStatus(v)
		if err != nil {
			writeError(w, r, &progress.ValidationError{Field: "status", Reason: err.Error()})
			return
		}
	}
	items, err := s.listTasks(r.Context(), r.PathValue("user"), filter, only)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task")
	status, err := s.engine.EffectiveStatus(r.Context(), r.PathValue("user"), taskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": status})
}

type setTaskRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetTask(w http.ResponseWriter, r *http.Request) {
	var req setTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, &progress.ValidationError{Field: "status", Reason: err.Error()})
		return
	}
	change, err := s.engine.SetTaskStatus(r.Context(), r.PathValue("user"), r.PathValue("task"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

type setObjectiveRequest struct {
	Completed *bool `json:"completed"`
}

func (s *Server) handleSetObjective(w http.ResponseWriter, r *http.Request) {
	var req setObjectiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Completed == nil {
		writeError(w, r, &progress.ValidationError{Field: "completed", Reason: "is required"})
		return
	}
	change, err := s.engine.SetObjectiveCompletion(r.Context(), r.PathValue("user"), r.PathValue("objective"), *req.Completed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

type catchUpRequest struct {
	Targets  []string `json:"targets"`
	Branches []string `json:"branches,omitempty"`
}

func (s *Server) handlePlanCatchUp(w http.ResponseWriter, r *http.Request) {
	var req catchUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.engine.PlanCatchUp(r.Context(), r.PathValue("user"), req.Targets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleCatchUp(w http.ResponseWriter, r *http.Request) {
	var req catchUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.engine.CatchUp(r.Context(), r.PathValue("user"), req.Targets, req.Branches)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.engine.Export(r.Context(), r.PathValue("user"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="progress-`+url.PathEscape(export.UserID)+`.json"`)
	writeJSON(w, http.StatusOK, export)
}

type indexPage struct {
	User  string
	Tasks []TaskView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	items, err := s.listTasks(r.Context(), user, progress.Filter{}, "")
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, indexPage{User: user, Tasks: items}); err != nil {
		log.Error().Err(err).Msg("render index")
	}
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if _, err := s.engine.SetTaskStatus(r.Context(), user, r.PathValue("task"), model.StatusCompleted); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/users/"+url.PathEscape(user), http.StatusSeeOther)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &progress.ValidationError{Field: "body", Reason: strings.TrimPrefix(err.Error(), "json: ")}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind"`
	From    model.Status   `json:"from,omitempty"`
	To      model.Status   `json:"to,omitempty"`
	Allowed *[]model.Status `json:"allowed,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, progress.ErrInvalidTransition), errors.Is(err, progress.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var transition *progress.InvalidTransitionError
	switch {
	case errors.As(err, &transition):
		body.Kind = "invalid_transition"
		body.From = transition.From
		body.To = transition.To
		allowed := append([]model.Status{}, transition.Allowed...)
		body.Allowed = &allowed
	case status == http.StatusNotFound:
		body.Kind = "not_found"
	case status == http.StatusBadRequest:
		body.Kind = "validation"
	default:
		body.Kind = "internal"
		body.Error = "internal error"
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}
