package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tasksync/internal/models"
	"tasksync/internal/prefs"
	"tasksync/internal/tasks"
)

// renderTheme holds the styles derived from display preferences.
type renderTheme struct {
	header  lipgloss.Style
	done    lipgloss.Style
	dim     lipgloss.Style
	overdue lipgloss.Style
}

func defaultRenderTheme() renderTheme {
	return newRenderTheme(prefs.Prefs{Theme: prefs.ThemeLight, BackgroundColor: prefs.DefaultBackground})
}

func newRenderTheme(p prefs.Prefs) renderTheme {
	muted := lipgloss.Color("#6b7280")
	if p.Theme == prefs.ThemeDark {
		muted = lipgloss.Color("#9ca3af")
	}
	border, err := prefs.AdjustBrightness(p.BackgroundColor, -20)
	if err != nil {
		border = p.BackgroundColor
	}

	return renderTheme{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color(p.BackgroundColor)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(border)).
			Padding(0, 1),
		done:    lipgloss.NewStyle().Strikethrough(true).Foreground(muted),
		dim:     lipgloss.NewStyle().Foreground(muted),
		overdue: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(models.PriorityHigh.Color())),
	}
}

func badge(label, color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(label)
}

func renderList(w io.Writer, theme renderTheme, user string, list []models.Task, now time.Time) {
	fmt.Fprintln(w, theme.header.Render(fmt.Sprintf("%s's tasks", user)))
	if len(list) == 0 {
		fmt.Fprintln(w, theme.dim.Render("  nothing here"))
		return
	}
	for _, t := range list {
		fmt.Fprintln(w, renderTask(theme, t, now))
	}
}

func renderTask(theme renderTheme, t models.Task, now time.Time) string {
	box := "[ ]"
	text := t.Text
	if t.Completed {
		box = "[x]"
		text = theme.done.Render(text)
	}

	parts := []string{
		box,
		theme.dim.Render(shortID(t.ID)),
		text,
		badge(t.Priority.Label(), t.Priority.Color()),
		badge(t.Category.Label(), t.Category.Color()),
	}
	if t.DueDate != nil {
		due := tasks.DueLabel(*t.DueDate, now)
		if !t.Completed && tasks.IsOverdue(t.DueDate, now) {
			due = theme.overdue.Render(due + " (overdue)")
		} else {
			due = theme.dim.Render(due)
		}
		parts = append(parts, due)
	}
	line := strings.Join(parts, "  ")
	if t.Notes != "" {
		line += "\n      " + theme.dim.Render(t.Notes)
	}
	return line
}

func renderStats(w io.Writer, s models.Stats) {
	fmt.Fprintf(w, "Total %d  Active %d  Completed %d\n", s.Total, s.Active, s.Completed)
	for _, p := range models.Priorities {
		fmt.Fprintf(w, "  %s %d\n", badge(fmt.Sprintf("%-9s", p.Label()), p.Color()), s.ByPriority[p])
	}
	for _, c := range models.Categories {
		fmt.Fprintf(w, "  %s %d\n", badge(fmt.Sprintf("%-9s", c.Label()), c.Color()), s.ByCategory[c])
	}
}
