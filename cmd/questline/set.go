package main

import (
	"fmt"

	"github.com/metalagman/questline/internal/model"
	"github.com/spf13/cobra"
)

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <task> <status>",
		Short: "Change the status of a task (available, in_progress, completed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			change, err := a.engine.SetTaskStatus(cmd.Context(), a.user(), args[0], status)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s -> %s\n", change.TaskID, renderStatus(change.Previous), renderStatus(change.Status))
			printIDs(out, "unlocked", change.Unlocked)
			printIDs(out, "relocked", change.Relocked)
			return nil
		},
	}
}
