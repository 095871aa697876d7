package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/questline/internal/catalog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigYAML = `# questline configuration
user: default

database:
  path: .questline/questline.db
  busy_timeout: 5s

server:
  addr: 127.0.0.1:8080
  shutdown_timeout: 10s

# catalog:
#   path: quests.yaml

telemetry:
  enabled: false
  stdout: false

display:
  hide: []
`

func initCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a questline project",
		Long:  "Initialize a questline project by creating the .questline directory, installing a default config and migrating the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return err
			}
			configPath := resolveConfigPath(repoRoot, viper.GetString("config"))
			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if _, err := os.Stat(configPath); err == nil {
				log.Info().Str("path", configPath).Msg("config already exists, skipping")
			} else {
				log.Info().Str("path", configPath).Msg("installing default config")
				if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			log.Info().Str("path", a.cfg.Database.Path).Msg("database ready")

			if catalogPath == "" {
				catalogPath = a.cfg.Catalog.Path
			}
			if catalogPath == "" {
				return nil
			}
			c, err := catalog.LoadFile(catalogPath)
			if err != nil {
				return err
			}
			if err := a.store.ImportCatalog(cmd.Context(), c); err != nil {
				return err
			}
			log.Info().Int("tasks", len(c.Tasks)).Int("edges", len(c.Edges)).Msg("catalog imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog file to import after initializing")
	return cmd
}
