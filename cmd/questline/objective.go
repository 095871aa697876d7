package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func objectiveCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "objective <objective>",
		Short: "Mark an objective complete (or incomplete with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			change, err := a.engine.SetObjectiveCompletion(cmd.Context(), a.user(), args[0], !undo)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d/%d objectives, task %s is %s\n",
				change.ObjectiveID, change.ObjectivesDone, change.ObjectivesTotal, change.TaskID, renderStatus(change.TaskStatus))
			printIDs(out, "unlocked", change.Unlocked)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the objective incomplete")
	return cmd
}
