// Package model defines the quest catalog and per-user progress records.
package model

import (
	"fmt"
	"strings"
)

// Status is the progress state of a task for one user.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusAvailable  Status = "available"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusLocked, StatusAvailable, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusLocked, StatusAvailable, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts the canonical lowercase form and the upper-case form used
// by older exports ("IN_PROGRESS").
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return s, nil
}

// Requirement is one acceptable state of a required task on an edge.
type Requirement string

const (
	RequireComplete Requirement = "complete"
	RequireActive   Requirement = "active"
	// RequireFailed is carried by catalog data but can never be satisfied
	// because failure is not tracked.
	RequireFailed Requirement = "failed"
)

// Valid reports whether r is one of the known requirement kinds.
func (r Requirement) Valid() bool {
	switch r {
	case RequireComplete, RequireActive, RequireFailed:
		return true
	default:
		return false
	}
}

// ParseRequirement parses a requirement kind, case-insensitively.
func ParseRequirement(value string) (Requirement, error) {
	r := Requirement(strings.ToLower(strings.TrimSpace(value)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown requirement status %q", value)
	}
	return r, nil
}

// RequirementSet is the set of acceptable states on one edge. Any member
// satisfies the edge.
type RequirementSet []Requirement

// Normalize returns the set with duplicates removed; an empty set means
// "must be complete".
func (rs RequirementSet) Normalize() RequirementSet {
	if len(rs) == 0 {
		return RequirementSet{RequireComplete}
	}
	out := make(RequirementSet, 0, len(rs))
	seen := make(map[Requirement]struct{}, len(rs))
	for _, r := range rs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Strings returns the set as plain strings for storage.
func (rs RequirementSet) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Task is an immutable catalog quest.
type Task struct {
	ID       string `json:"id"                  yaml:"id"                  toml:"id"`
	Title    string `json:"title"               yaml:"title"               toml:"title"`
	Level    int    `json:"level"               yaml:"level"               toml:"level"`
	Critical bool   `json:"critical"            yaml:"critical"            toml:"critical"`
	Type     string `json:"type"                yaml:"type"                toml:"type"`
	Location string `json:"location,omitempty"  yaml:"location,omitempty"  toml:"location"`
	WikiLink string `json:"wiki_link,omitempty" yaml:"wiki_link,omitempty" toml:"wiki_link"`
}

// Edge states that Dependent stays locked until Required is in one of Statuses.
type Edge struct {
	RequiredID  string         `json:"required_id"`
	DependentID string         `json:"dependent_id"`
	Statuses    RequirementSet `json:"statuses"`
}

// Objective is a sub-step of a task.
type Objective struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Location    string `json:"location,omitempty"`
}

// Catalog is the full immutable quest graph.
type Catalog struct {
	Tasks      []Task      `json:"tasks"`
	Edges      []Edge      `json:"edges"`
	Objectives []Objective `json:"objectives"`
}

// TaskProgress is a stored status for one user and task.
type TaskProgress struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	Status    Status `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ObjectiveProgress is a stored completion flag for one user and objective.
type ObjectiveProgress struct {
	UserID      string `json:"user_id"`
	ObjectiveID string `json:"objective_id"`
	Completed   bool   `json:"completed"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}
