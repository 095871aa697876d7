package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/questline/internal/model"
	"github.com/spf13/viper"
)

func TestResolveConfigPath_DefaultYAMLPreferred(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), "user: alice\n"); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}
	if err := writeTestFile(filepath.Join(repoRoot, ".questline", "config.json"), `{"user":"bob"}`); err != nil {
		t.Fatalf("write json config: %v", err)
	}

	got := resolveConfigPath(repoRoot, defaultConfigPath)
	want := filepath.Join(repoRoot, defaultConfigPath)
	if got != want {
		t.Fatalf("resolve config path = %q, want %q", got, want)
	}
}

func TestResolveConfigPath_FallsBackToJSON(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	jsonPath := filepath.Join(repoRoot, ".questline", "config.json")
	if err := writeTestFile(jsonPath, `{"user":"bob"}`); err != nil {
		t.Fatalf("write json config: %v", err)
	}

	if got := resolveConfigPath(repoRoot, ""); got != jsonPath {
		t.Fatalf("resolve config path = %q, want %q", got, jsonPath)
	}
}

func TestLoadConfig_UsesYAML(t *testing.T) {
	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), `user: alice
database:
  path: data/q.db
  busy_timeout: 2s
server:
  addr: ":9090"
display:
  hide: [completed]
`); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", defaultConfigPath)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.User != "alice" {
		t.Fatalf("user = %q, want %q", cfg.User, "alice")
	}
	if want := filepath.Join(repoRoot, "data", "q.db"); cfg.Database.Path != want {
		t.Fatalf("database.path = %q, want %q", cfg.Database.Path, want)
	}
	if cfg.Database.BusyTimeout != 2*time.Second {
		t.Fatalf("database.busy_timeout = %s, want 2s", cfg.Database.BusyTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("server.shutdown_timeout = %s, want default 10s", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Display.Hide) != 1 || cfg.Display.Hide[0] != model.StatusCompleted {
		t.Fatalf("display.hide = %v, want [completed]", cfg.Display.Hide)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	repoRoot := t.TempDir()

	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.User != "default" {
		t.Fatalf("user = %q, want %q", cfg.User, "default")
	}
	if want := filepath.Join(repoRoot, ".questline", "questline.db"); cfg.Database.Path != want {
		t.Fatalf("database.path = %q, want %q", cfg.Database.Path, want)
	}
}

func TestLoadConfig_RejectsSchemaViolations(t *testing.T) {
	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), "database:\n  driver: postgres\n"); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", defaultConfigPath)

	if _, err := loadConfig(repoRoot); err == nil {
		t.Fatal("load config: expected schema error")
	}
}

func writeTestFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
