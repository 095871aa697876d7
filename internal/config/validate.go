package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// SchemaError lists every schema violation found in a settings document.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return "config schema validation failed: " + strings.Join(e.Issues, "; ")
}

// ValidateSettings validates raw config settings against the JSON schema.
// Keys not described by the schema at the top level, such as bound CLI
// flags, are ignored.
func ValidateSettings(settings map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		issues = append(issues, schemaErr.Field()+": "+schemaErr.Description())
	}
	sort.Strings(issues)
	return &SchemaError{Issues: issues}
}
