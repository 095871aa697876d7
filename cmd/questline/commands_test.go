package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/metalagman/questline/internal/progress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `tasks:
  - id: a
    title: Alpha
    type: prapor
  - id: b
    title: Bravo
    level: 2
    type: prapor
    requires:
      - task: a
    objectives:
      - id: b1
        description: Find it
  - id: c
    title: Charlie
    level: 3
    type: therapist
    requires:
      - task: a
`

// setupProject creates a project in a temp dir and makes it the working
// directory. Commands in this file share process-wide state and must not run
// in parallel.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, writeTestFile(filepath.Join(dir, "quests.yaml"), testCatalogYAML))
	require.NoError(t, writeTestFile(filepath.Join(dir, defaultConfigPath), "user: tester\n"))
	return dir
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestCommands_ImportSetStatus(t *testing.T) {
	setupProject(t)

	runCmd(t, catalogImportCmd(), "quests.yaml")

	out := runCmd(t, statusCmd(), "b")
	assert.Contains(t, out, "locked")

	out = runCmd(t, setCmd(), "a", "completed")
	assert.Contains(t, out, "unlocked:")
	assert.Contains(t, out, "b")

	out = runCmd(t, statusCmd(), "--type", "prapor")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Alpha")
	assert.Contains(t, lines[1], "available")

	out = runCmd(t, objectiveCmd(), "b1")
	assert.Contains(t, out, "1/1 objectives")
	assert.Contains(t, out, "completed")
}

func TestCommands_CatchUpAndExport(t *testing.T) {
	dir := setupProject(t)
	runCmd(t, catalogImportCmd(), "quests.yaml")

	out := runCmd(t, catchUpCmd(), "b")
	assert.Contains(t, out, "Prerequisites to complete (1)")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Charlie")

	out = runCmd(t, catchUpCmd(), "--apply", "--branch", "c", "b")
	assert.Contains(t, out, "completed 1 prerequisites, 1 branches")

	exportPath := filepath.Join(dir, "export.json")
	runCmd(t, exportCmd(), "-o", exportPath)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var export progress.Export
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "tester", export.UserID)
	assert.Equal(t, progress.ExportSummary{Total: 3, Completed: 2, Available: 1}, export.Summary)
}

func TestCommands_SetRejectsLockedTask(t *testing.T) {
	setupProject(t)
	runCmd(t, catalogImportCmd(), "quests.yaml")

	cmd := setCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"b", "completed"})
	err := cmd.Execute()
	require.ErrorIs(t, err, progress.ErrInvalidTransition)
}

func TestCatalogCheck(t *testing.T) {
	setupProject(t)
	out := runCmd(t, catalogCheckCmd(), "quests.yaml")
	assert.Contains(t, out, "3 tasks, 2 requirements, 1 objectives")
}
