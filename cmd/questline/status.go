package main

import (
	"fmt"
	"slices"
	"sort"

	"github.com/metalagman/questline/internal/model"
	"github.com/metalagman/questline/internal/progress"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var (
		filter progress.Filter
		only   string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "status [task]",
		Short: "Show effective task statuses for the user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				status, err := a.engine.EffectiveStatus(ctx, a.user(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s %s\n", renderStatus(status), args[0])
				return err
			}

			var want model.Status
			if only != "" {
				if want, err = model.ParseStatus(only); err != nil {
					return err
				}
			}
			statuses, err := a.engine.EffectiveStatuses(ctx, a.user(), filter)
			if err != nil {
				return err
			}
			tasks, err := a.store.Tasks(ctx)
			if err != nil {
				return err
			}
			rows := make([]taskRow, 0, len(statuses))
			for _, t := range tasks {
				st, ok := statuses[t.ID]
				if !ok {
					continue
				}
				if want != "" && st != want {
					continue
				}
				if want == "" && !all && slices.Contains(a.cfg.Display.Hide, st) {
					continue
				}
				rows = append(rows, taskRow{task: t, status: st})
			}
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].task.Level < rows[j].task.Level })
			printTaskRows(out, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "only tasks of this type")
	cmd.Flags().BoolVar(&filter.CriticalOnly, "critical", false, "only critical-path tasks")
	cmd.Flags().StringVar(&filter.Location, "location", "", "only tasks at this location")
	cmd.Flags().StringVar(&filter.Search, "search", "", "only tasks whose title contains this text")
	cmd.Flags().IntVar(&filter.MaxLevel, "max-level", 0, "only tasks up to this level")
	cmd.Flags().StringVar(&only, "status", "", "only tasks with this effective status")
	cmd.Flags().BoolVar(&all, "all", false, "ignore display.hide")
	return cmd
}
