package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func catchUpCmd() *cobra.Command {
	var (
		branches []string
		apply    bool
	)
	cmd := &cobra.Command{
		Use:   "catch-up <task>...",
		Short: "Complete everything required to reach the given tasks",
		Long: "Without --apply, print the prerequisites that would be completed and the side branches " +
			"that can optionally be confirmed with --branch. With --apply, write them in one batch.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()

			if !apply {
				plan, err := a.engine.PlanCatchUp(cmd.Context(), a.user(), args)
				if err != nil {
					return err
				}
				printSelections(out, "Prerequisites to complete", plan.Prerequisites)
				printSelections(out, "Branches that may already be done", plan.CompletedBranches)
				return nil
			}

			result, err := a.engine.CatchUp(cmd.Context(), a.user(), args, branches)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "completed %d prerequisites, %d branches\n", len(result.Completed), len(result.CompletedBranches))
			printIDs(out, "completed", result.Completed)
			printIDs(out, "branches", result.CompletedBranches)
			printIDs(out, "available", result.Available)
			printIDs(out, "unlocked", result.Unlocked)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&branches, "branch", nil, "confirm a side branch as completed (repeatable)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the catch-up instead of printing the plan")
	return cmd
}
