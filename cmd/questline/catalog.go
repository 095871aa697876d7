package main

import (
	"fmt"

	"github.com/metalagman/questline/internal/catalog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the quest catalog",
	}
	cmd.AddCommand(catalogImportCmd())
	cmd.AddCommand(catalogCheckCmd())
	return cmd
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import tasks, requirements and objectives from a YAML, JSON or TOML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			path := a.cfg.Catalog.Path
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("catalog file is required (argument or catalog.path)")
			}
			c, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}
			if err := a.store.ImportCatalog(cmd.Context(), c); err != nil {
				return err
			}
			log.Info().
				Str("path", path).
				Int("tasks", len(c.Tasks)).
				Int("edges", len(c.Edges)).
				Int("objectives", len(c.Objectives)).
				Msg("catalog imported")
			return nil
		},
	}
}

func catalogCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a catalog file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tasks, %d requirements, %d objectives\n",
				args[0], len(c.Tasks), len(c.Edges), len(c.Objectives))
			return err
		},
	}
}
