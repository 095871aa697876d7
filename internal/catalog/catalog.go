// Package catalog loads quest catalogs from YAML, JSON or TOML files and
// checks them before they are imported into the store.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/metalagman/questline/internal/model"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Format is a catalog file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported catalog extension %q", filepath.Ext(path))
	}
}

// Document is the on-disk catalog layout. Requirements and objectives are
// nested under the task they belong to.
type Document struct {
	Tasks []TaskDoc `json:"tasks" yaml:"tasks" toml:"tasks"`
}

// TaskDoc is one task entry in a catalog file.
type TaskDoc struct {
	ID         string         `json:"id"                   yaml:"id"                   toml:"id"`
	Title      string         `json:"title"                yaml:"title"                toml:"title"`
	Level      int            `json:"level,omitempty"      yaml:"level,omitempty"      toml:"level,omitempty"`
	Critical   bool           `json:"critical,omitempty"   yaml:"critical,omitempty"   toml:"critical,omitempty"`
	Type       string         `json:"type,omitempty"       yaml:"type,omitempty"       toml:"type,omitempty"`
	Location   string         `json:"location,omitempty"   yaml:"location,omitempty"   toml:"location,omitempty"`
	WikiLink   string         `json:"wiki_link,omitempty"  yaml:"wiki_link,omitempty"  toml:"wiki_link,omitempty"`
	Requires   []RequireDoc   `json:"requires,omitempty"   yaml:"requires,omitempty"   toml:"requires,omitempty"`
	Objectives []ObjectiveDoc `json:"objectives,omitempty" yaml:"objectives,omitempty" toml:"objectives,omitempty"`
}

// RequireDoc is an incoming edge of a task.
type RequireDoc struct {
	Task     string   `json:"task"               yaml:"task"               toml:"task"`
	Statuses []string `json:"statuses,omitempty" yaml:"statuses,omitempty" toml:"statuses,omitempty"`
}

// ObjectiveDoc is one objective of a task.
type ObjectiveDoc struct {
	ID          string `json:"id"                 yaml:"id"                 toml:"id"`
	Description string `json:"description"        yaml:"description"        toml:"description"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
}

// LoadFile reads, validates and converts a catalog file.
func LoadFile(path string) (model.Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return model.Catalog{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes data in the given format, validates it against the catalog
// schema and returns the flattened catalog.
func Parse(data []byte, format Format) (model.Catalog, error) {
	var raw any
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return model.Catalog{}, fmt.Errorf("parse yaml catalog: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return model.Catalog{}, fmt.Errorf("decode yaml catalog: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return model.Catalog{}, fmt.Errorf("parse json catalog: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return model.Catalog{}, fmt.Errorf("decode json catalog: %w", err)
		}
	case FormatTOML:
		var table map[string]any
		if _, err := toml.Decode(string(data), &table); err != nil {
			return model.Catalog{}, fmt.Errorf("parse toml catalog: %w", err)
		}
		raw = table
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return model.Catalog{}, fmt.Errorf("decode toml catalog: %w", err)
		}
	default:
		return model.Catalog{}, fmt.Errorf("unsupported catalog format %q", format)
	}

	if err := validateSchema(raw); err != nil {
		return model.Catalog{}, err
	}
	return doc.Catalog()
}

func validateSchema(raw any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate catalog schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)
	return fmt.Errorf("catalog schema validation failed: %s", strings.Join(errs, "; "))
}

// Catalog flattens the document into tasks, edges and objectives and checks
// referential integrity and acyclicity.
func (d Document) Catalog() (model.Catalog, error) {
	var out model.Catalog
	ids := make(map[string]struct{}, len(d.Tasks))
	objectiveIDs := make(map[string]struct{})

	for _, t := range d.Tasks {
		if _, dup := ids[t.ID]; dup {
			return model.Catalog{}, fmt.Errorf("duplicate task id %q", t.ID)
		}
		ids[t.ID] = struct{}{}
		level := t.Level
		if level <= 0 {
			level = 1
		}
		out.Tasks = append(out.Tasks, model.Task{
			ID:       t.ID,
			Title:    t.Title,
			Level:    level,
			Critical: t.Critical,
			Type:     t.Type,
			Location: t.Location,
			WikiLink: t.WikiLink,
		})
		for _, o := range t.Objectives {
			if _, dup := objectiveIDs[o.ID]; dup {
				return model.Catalog{}, fmt.Errorf("duplicate objective id %q", o.ID)
			}
			objectiveIDs[o.ID] = struct{}{}
			out.Objectives = append(out.Objectives, model.Objective{
				ID:          o.ID,
				TaskID:      t.ID,
				Description: o.Description,
				Optional:    o.Optional,
				Location:    o.Location,
			})
		}
	}

	for _, t := range d.Tasks {
		seen := make(map[string]struct{}, len(t.Requires))
		for _, r := range t.Requires {
			if _, ok := ids[r.Task]; !ok {
				return model.Catalog{}, fmt.Errorf("task %q requires unknown task %q", t.ID, r.Task)
			}
			if r.Task == t.ID {
				return model.Catalog{}, fmt.Errorf("task %q requires itself", t.ID)
			}
			if _, dup := seen[r.Task]; dup {
				return model.Catalog{}, fmt.Errorf("task %q requires %q twice", t.ID, r.Task)
			}
			seen[r.Task] = struct{}{}
			statuses := make(model.RequirementSet, 0, len(r.Statuses))
			for _, s := range r.Statuses {
				req, err := model.ParseRequirement(s)
				if err != nil {
					return model.Catalog{}, fmt.Errorf("task %q requirement on %q: %w", t.ID, r.Task, err)
				}
				statuses = append(statuses, req)
			}
			out.Edges = append(out.Edges, model.Edge{
				RequiredID:  r.Task,
				DependentID: t.ID,
				Statuses:    statuses.Normalize(),
			})
		}
	}

	if cycle := DetectCycle(out); cycle != nil {
		return model.Catalog{}, fmt.Errorf("requirement cycle detected: %s", strings.Join(cycle, " -> "))
	}
	return out, nil
}
