package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/questline/internal/model"
	"github.com/metalagman/questline/internal/progress"
)

var (
	colorAvailable = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorProgress  = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorCompleted = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCompleted)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	statusStyle = map[model.Status]lipgloss.Style{
		model.StatusLocked:     lipgloss.NewStyle().Foreground(colorMuted),
		model.StatusAvailable:  lipgloss.NewStyle().Foreground(colorAvailable),
		model.StatusInProgress: lipgloss.NewStyle().Foreground(colorProgress),
		model.StatusCompleted:  lipgloss.NewStyle().Foreground(colorCompleted),
	}
)

func renderStatus(s model.Status) string {
	label := fmt.Sprintf("%-11s", s)
	if style, ok := statusStyle[s]; ok {
		return style.Render(label)
	}
	return label
}

type taskRow struct {
	task   model.Task
	status model.Status
}

func printTaskRows(w io.Writer, rows []taskRow) {
	for _, r := range rows {
		critical := " "
		if r.task.Critical {
			critical = "*"
		}
		fmt.Fprintf(w, "%s %s lvl %-3d %s %s\n",
			renderStatus(r.status), critical, r.task.Level, r.task.Title,
			mutedStyle.Render("("+r.task.ID+", "+r.task.Type+")"))
	}
}

func printIDs(w io.Writer, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render(label+":"), strings.Join(ids, ", "))
}

func printSelections(w io.Writer, title string, selections []progress.Selection) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", title, len(selections))))
	if len(selections) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
		return
	}
	groups := progress.GroupByType(selections)
	seen := make(map[string]bool, len(groups))
	for _, sel := range selections {
		key := sel.Type
		if key == "" {
			key = "unknown"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		fmt.Fprintf(w, "  %s\n", key)
		for _, s := range groups[key] {
			fmt.Fprintf(w, "    lvl %-3d %s %s\n", s.Level, s.Title,
				mutedStyle.Render(fmt.Sprintf("(%s, chain %d)", s.TaskID, s.ChainLength)))
		}
	}
}
