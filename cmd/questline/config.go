package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/questline/internal/config"
	"github.com/spf13/viper"
)

var defaultConfigPath = filepath.Join(config.Dir, "config.yaml")

// resolveConfigPath makes path absolute under repoRoot. When the default YAML
// file is missing, a config.json next to it is used instead.
func resolveConfigPath(repoRoot, path string) string {
	if path == "" {
		path = defaultConfigPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	if filepath.Base(path) == "config.yaml" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			alt := filepath.Join(filepath.Dir(path), "config.json")
			if _, err := os.Stat(alt); err == nil {
				return alt
			}
		}
	}
	return path
}

func loadConfig(repoRoot string) (config.Config, error) {
	for key, value := range config.DefaultSettings() {
		viper.SetDefault(key, value)
	}

	path := resolveConfigPath(repoRoot, viper.GetString("config"))
	if _, err := os.Stat(path); err == nil {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("stat config: %w", err)
	}

	settings := viper.AllSettings()
	if err := config.ValidateSettings(settings); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Decode(settings)
	if err != nil {
		return config.Config{}, err
	}
	if !filepath.IsAbs(cfg.Database.Path) {
		cfg.Database.Path = filepath.Join(repoRoot, cfg.Database.Path)
	}
	if cfg.Catalog.Path != "" && !filepath.IsAbs(cfg.Catalog.Path) {
		cfg.Catalog.Path = filepath.Join(repoRoot, cfg.Catalog.Path)
	}
	return cfg, nil
}
