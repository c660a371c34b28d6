package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tasksync/internal/engine"
	"tasksync/internal/models"
	"tasksync/internal/tasks"
)

func listCmd(o *options) *cobra.Command {
	var filter, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show tasks in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseFilter(filter)
			if err != nil {
				return err
			}
			theme := loadTheme(cmd.Context(), o)
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				renderList(cmd.OutOrStdout(), theme, o.user, e.View(f, search), time.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or completed")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Category name or text to search for")
	return cmd
}

// fieldFlags are the editable task fields shared by add and edit.
type fieldFlags struct {
	priority string
	category string
	due      string
	notes    string
	text     string
}

func (f *fieldFlags) register(cmd *cobra.Command, withText bool) {
	cmd.Flags().StringVarP(&f.priority, "priority", "p", string(models.PriorityMedium), "low, medium or high")
	cmd.Flags().StringVarP(&f.category, "category", "c", string(models.CategoryOther), "work, personal, shopping, health or other")
	cmd.Flags().StringVarP(&f.due, "due", "d", "", "Due date: YYYY-MM-DD, today or tomorrow; \"none\" clears it")
	cmd.Flags().StringVarP(&f.notes, "notes", "n", "", "Free-form notes")
	if withText {
		cmd.Flags().StringVarP(&f.text, "text", "t", "", "New task text")
	}
}

// apply overlays the flags the user set onto base.
func (f *fieldFlags) apply(cmd *cobra.Command, base models.TaskFields, now time.Time) (models.TaskFields, error) {
	flags := cmd.Flags()
	if flags.Changed("text") {
		base.Text = f.text
	}
	if flags.Changed("priority") || base.Priority == "" {
		p, err := models.ParsePriority(f.priority)
		if err != nil {
			return base, err
		}
		base.Priority = p
	}
	if flags.Changed("category") || base.Category == "" {
		c, err := models.ParseCategory(f.category)
		if err != nil {
			return base, err
		}
		base.Category = c
	}
	if flags.Changed("due") {
		due, err := parseDue(f.due, now)
		if err != nil {
			return base, err
		}
		base.DueDate = due
	}
	if flags.Changed("notes") {
		base.Notes = f.notes
	}
	return base, nil
}

func addCmd(o *options) *cobra.Command {
	fields := &fieldFlags{}
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task at the top of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := fields.apply(cmd, models.TaskFields{Text: strings.Join(args, " ")}, time.Now())
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				task, err := e.Add(tf)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", shortID(task.ID), task.Text)
				return nil
			})
		},
	}
	fields.register(cmd, false)
	return cmd
}

func editCmd(o *options) *cobra.Command {
	fields := &fieldFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the text, priority, category, due date or notes of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				task, err := findTask(e.Tasks(), args[0])
				if err != nil {
					return err
				}
				base := models.TaskFields{
					Text:     task.Text,
					Priority: task.Priority,
					Category: task.Category,
					DueDate:  task.DueDate,
					Notes:    task.Notes,
				}
				tf, err := fields.apply(cmd, base, time.Now())
				if err != nil {
					return err
				}
				if err := e.Update(task.ID, tf); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", shortID(task.ID))
				return nil
			})
		},
	}
	fields.register(cmd, true)
	return cmd
}

// idCommand builds a command that resolves id prefixes and hands the full
// ids to apply.
func idCommand(o *options, use, short, verb string, apply func(e *engine.Engine, ids []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				ids, err := resolveIDs(e.Tasks(), args)
				if err != nil {
					return err
				}
				if err := apply(e, ids); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d task(s)\n", verb, len(ids))
				return nil
			})
		},
	}
}

func toggleCmd(o *options) *cobra.Command {
	return idCommand(o, "toggle <id>...", "Flip the completion state of tasks", "Toggled",
		func(e *engine.Engine, ids []string) error {
			for _, id := range ids {
				if err := e.Toggle(id); err != nil {
					return err
				}
			}
			return nil
		})
}

func removeCmd(o *options) *cobra.Command {
	return idCommand(o, "rm <id>", "Delete a task", "Deleted",
		func(e *engine.Engine, ids []string) error {
			if len(ids) != 1 {
				return fmt.Errorf("rm takes one task; use bulk-rm for several")
			}
			return e.Delete(ids[0])
		})
}

// selectionFlags let bulk commands target the tasks list would show
// instead of naming every id.
type selectionFlags struct {
	visible bool
	filter  string
	search  string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.visible, "visible", false, "Select every task list shows for --filter and --search")
	cmd.Flags().StringVarP(&f.filter, "filter", "f", "all", "all, active or completed (with --visible)")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Category name or text to search for (with --visible)")
}

// selection collects the visible tasks when --visible is set plus every
// task named by an id prefix.
func (f *selectionFlags) selection(e *engine.Engine, prefixes []string) (tasks.Selection, error) {
	if !f.visible && len(prefixes) == 0 {
		return nil, fmt.Errorf("no tasks selected: pass ids or --visible")
	}
	sel := tasks.Selection{}
	if f.visible {
		filter, err := models.ParseFilter(f.filter)
		if err != nil {
			return nil, err
		}
		sel.SelectAll(e.View(filter, f.search))
	}
	ids, err := resolveIDs(e.Tasks(), prefixes)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		sel.Set(id, true)
	}
	return sel, nil
}

// bulkCommand builds a command that applies one bulk operation to a
// selection and clears it afterwards.
func bulkCommand(o *options, use, short, verb string, apply func(e *engine.Engine, ids []string) error) *cobra.Command {
	var sf selectionFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				sel, err := sf.selection(e, args)
				if err != nil {
					return err
				}
				ids := sel.IDs()
				if err := apply(e, ids); err != nil {
					return err
				}
				sel.Clear()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d task(s)\n", verb, len(ids))
				return nil
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func doneCmd(o *options) *cobra.Command {
	return bulkCommand(o, "done [id...]", "Mark tasks as completed", "Completed",
		func(e *engine.Engine, ids []string) error {
			return e.BulkComplete(ids)
		})
}

func bulkRemoveCmd(o *options) *cobra.Command {
	return bulkCommand(o, "bulk-rm [id...]", "Delete several tasks", "Deleted",
		func(e *engine.Engine, ids []string) error {
			return e.BulkDelete(ids)
		})
}

func priorityCmd(o *options) *cobra.Command {
	var sf selectionFlags
	cmd := &cobra.Command{
		Use:   "priority <low|medium|high> [id...]",
		Short: "Set the priority of several tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := models.ParsePriority(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				sel, err := sf.selection(e, args[1:])
				if err != nil {
					return err
				}
				ids := sel.IDs()
				if err := e.BulkSetPriority(ids, p); err != nil {
					return err
				}
				sel.Clear()
				fmt.Fprintf(cmd.OutOrStdout(), "Set %d task(s) to %s\n", len(ids), p.Label())
				return nil
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func clearCompletedCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				before := len(e.Tasks())
				if err := e.ClearCompleted(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d task(s)\n", before-len(e.Tasks()))
				return nil
			})
		},
	}
}

func statsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show counts by state, priority and category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), o, func(e *engine.Engine) error {
				renderStats(cmd.OutOrStdout(), e.Stats())
				return nil
			})
		},
	}
}

func watchCmd(o *options) *cobra.Command {
	var filter, search string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render the list whenever it changes, here or on another device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseFilter(filter)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			theme := loadTheme(ctx, o)
			s, err := openSession(ctx, o)
			if err != nil {
				return err
			}
			defer s.close()
			defer s.engine.EndSession()

			out := cmd.OutOrStdout()
			for {
				changed := s.engine.Changed()
				fmt.Fprint(out, "\033[H\033[2J")
				renderList(out, theme, o.user, s.engine.View(f, search), time.Now())

				select {
				case <-changed:
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or completed")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Category name or text to search for")
	return cmd
}

// loadTheme reads display preferences, falling back to defaults when the
// preference store is unavailable.
func loadTheme(ctx context.Context, o *options) renderTheme {
	store, closeFn, err := openPrefs(ctx, o)
	if err != nil {
		return defaultRenderTheme()
	}
	defer closeFn()
	return newRenderTheme(store.Get())
}
