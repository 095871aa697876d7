// Package config provides configuration loading and management for questline.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/questline/internal/model"
)

// Dir is the per-project directory holding the database and config.
const Dir = ".questline"

// Config is the root configuration.
type Config struct {
	User      string          `json:"user,omitempty" mapstructure:"user" yaml:"user,omitempty"`
	Database  DatabaseConfig  `json:"database"       mapstructure:"database" yaml:"database"`
	Server    ServerConfig    `json:"server"         mapstructure:"server" yaml:"server"`
	Catalog   CatalogConfig   `json:"catalog"        mapstructure:"catalog" yaml:"catalog"`
	Telemetry TelemetryConfig `json:"telemetry"      mapstructure:"telemetry" yaml:"telemetry"`
	Display   DisplayConfig   `json:"display"        mapstructure:"display" yaml:"display"`
}

// DatabaseConfig locates and tunes the SQLite database.
type DatabaseConfig struct {
	Path        string        `json:"path"                   mapstructure:"path" yaml:"path"`
	BusyTimeout time.Duration `json:"busy_timeout,omitempty" mapstructure:"busy_timeout" yaml:"busy_timeout,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `json:"addr"                       mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" mapstructure:"shutdown_timeout" yaml:"shutdown_timeout,omitempty"`
}

// CatalogConfig points at the catalog file imported by default.
type CatalogConfig struct {
	Path string `json:"path,omitempty" mapstructure:"path" yaml:"path,omitempty"`
}

// TelemetryConfig toggles OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool `json:"enabled"          mapstructure:"enabled" yaml:"enabled"`
	Stdout  bool `json:"stdout,omitempty" mapstructure:"stdout" yaml:"stdout,omitempty"`
}

// DisplayConfig controls CLI listings.
type DisplayConfig struct {
	Hide []model.Status `json:"hide,omitempty" mapstructure:"hide" yaml:"hide,omitempty"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		User: "default",
		Database: DatabaseConfig{
			Path:        filepath.Join(Dir, "questline.db"),
			BusyTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// DefaultSettings returns Default as a settings map suitable for viper.SetDefault.
func DefaultSettings() map[string]any {
	d := Default()
	return map[string]any{
		"user":                    d.User,
		"database.path":           d.Database.Path,
		"database.busy_timeout":   d.Database.BusyTimeout.String(),
		"server.addr":             d.Server.Addr,
		"server.shutdown_timeout": d.Server.ShutdownTimeout.String(),
		"telemetry.enabled":       false,
		"telemetry.stdout":        false,
	}
}

// DecodeHook converts raw settings into typed config fields.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		statusHook,
	)
}

var statusType = reflect.TypeOf(model.Status(""))

func statusHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != statusType {
		return data, nil
	}
	s, err := model.ParseStatus(data.(string))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Decode builds a Config from raw settings, such as viper.AllSettings().
func Decode(settings map[string]any) (Config, error) {
	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       DecodeHook(),
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, fmt.Errorf("create config decoder: %w", err)
	}
	if err := dec.Decode(settings); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks semantic constraints the schema cannot express.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must be set")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must be >= 0")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be >= 0")
	}
	return nil
}
