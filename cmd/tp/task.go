package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskpulse/internal/domain"
	"taskpulse/internal/engine"
	"taskpulse/internal/repo"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskEditCmd())
	task.AddCommand(taskDoneCmd())
	task.AddCommand(taskReopenCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskCategorizeCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var (
		id, category, reminder, recurrence, endDate string
		recurrenceDay                               int
		tiny, person                                bool
		keywords                                    []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Capture a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reminderTime, err := optionalTime(reminder)
			if err != nil {
				return err
			}
			end, err := optionalTime(endDate)
			if err != nil {
				return err
			}
			opts := engine.TaskCreateOptions{
				ID:                id,
				Title:             strings.Join(args, " "),
				Category:          category,
				ReminderTime:      reminderTime,
				Recurrence:        domain.Recurrence(strings.ToLower(recurrence)),
				RecurrenceEndDate: end,
				IsTiny:            tiny,
				Keywords:          keywords,
				HasPersonName:     person,
			}
			if cmd.Flags().Changed("recurrence-day") {
				opts.RecurrenceDay = &recurrenceDay
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AddTask(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("added %s %q\n", t.ID, t.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "task id (default: generated)")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&reminder, "remind", "", "reminder time")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "none, daily, weekly or monthly")
	cmd.Flags().IntVar(&recurrenceDay, "recurrence-day", 0, "weekday (0=Sunday) or day of month")
	cmd.Flags().StringVar(&endDate, "until", "", "last recurrence date")
	cmd.Flags().BoolVar(&tiny, "tiny", false, "task takes a few minutes")
	cmd.Flags().BoolVar(&person, "person", false, "task involves another person")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "keyword (repeatable)")
	return cmd
}

func taskListCmd() *cobra.Command {
	var (
		all, done bool
		category  string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repo.TaskFilters{Category: category, Limit: limit}
			if !all {
				f.Completed = &done
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tasks, err := r.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include completed tasks")
	cmd.Flags().BoolVar(&done, "done", false, "only completed tasks")
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max tasks")
	return cmd
}

func printTasks(tasks []domain.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Category", "Reminder", "Repeats", "Created", "Done"})
	for _, t := range tasks {
		reminder := ""
		if t.ReminderTime != nil {
			reminder = humanize.Time(*t.ReminderTime)
		}
		repeats := ""
		if t.RecurrencePattern.Active() {
			repeats = string(t.RecurrencePattern)
		}
		done := ""
		if t.Completed {
			done = "yes"
		}
		tw.AppendRow(table.Row{t.ID, t.Title, t.Category, reminder, repeats, humanize.Time(t.CreatedAt), done})
	}
	tw.Render()
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				t, err := r.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func taskEditCmd() *cobra.Command {
	var (
		title, category, reminder string
		clearReminder, tiny       bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				ID:            args[0],
				Title:         optionalString(title),
				ClearReminder: clearReminder,
			}
			if cmd.Flags().Changed("category") {
				opts.Category = &category
			}
			if cmd.Flags().Changed("tiny") {
				opts.IsTiny = &tiny
			}
			rt, err := optionalTime(reminder)
			if err != nil {
				return err
			}
			opts.ReminderTime = rt
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&category, "category", "", "new category (empty clears)")
	cmd.Flags().StringVar(&reminder, "remind", "", "new reminder time")
	cmd.Flags().BoolVar(&clearReminder, "clear-reminder", false, "remove the reminder")
	cmd.Flags().BoolVar(&tiny, "tiny", false, "mark as tiny")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	return taskTransitionCmd("done <id>", "Complete a task", "completed", func(ctx context.Context, e engine.Engine, id string) (domain.Task, error) {
		return e.CompleteTask(ctx, id)
	})
}

func taskReopenCmd() *cobra.Command {
	return taskTransitionCmd("reopen <id>", "Reopen a completed task", "reopened", func(ctx context.Context, e engine.Engine, id string) (domain.Task, error) {
		return e.ReopenTask(ctx, id)
	})
}

func taskTransitionCmd(use, short, verb string, fn func(context.Context, engine.Engine, string) (domain.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := fn(ctx, e, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("%s %s %q\n", verb, t.ID, t.Title)
				return nil
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"deleted": args[0]})
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func taskCategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize",
		Short: "Assign categories to uncategorized tasks by keyword",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ApplyCategories(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printCategorize(res)
				return nil
			})
		},
	}
}

func journalCmd() *cobra.Command {
	j := &cobra.Command{Use: "journal", Short: "Write and read journal entries"}
	j.AddCommand(journalAddCmd())
	j.AddCommand(journalListCmd())
	return j
}

func journalAddCmd() *cobra.Command {
	var mood string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a journal entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.AddJournalEntry(ctx, strings.Join(args, " "), mood)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entry)
				}
				fmt.Println("added", entry.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mood, "mood", "", "mood label, e.g. happy or tired")
	return cmd
}

func journalListCmd() *cobra.Command {
	var (
		days  int
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				since := e.Clock().AddDate(0, 0, -days)
				entries, err := e.Repo.ListJournalEntries(ctx, &since, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Written", "Mood", "Entry"})
				for _, entry := range entries {
					tw.AppendRow(table.Row{entry.ID, humanize.Time(entry.CreatedAt), entry.Mood, truncate(entry.Content, 60)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "look back this many days")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries")
	return cmd
}

func personaCmd() *cobra.Command {
	p := &cobra.Command{Use: "persona", Short: "Manage the persona snapshot"}
	p.AddCommand(personaShowCmd())
	p.AddCommand(personaSetCmd())
	return p
}

func personaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetPersona(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func personaSetCmd() *cobra.Command {
	var (
		prefer, avoid      []string
		ambition, momentum float64
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the persona",
		Long:  "Replace the persona. Weights are domain=weight pairs with weights in [0,1], e.g. --prefer work=0.8.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := parseWeights(prefer)
			if err != nil {
				return fmt.Errorf("--prefer: %w", err)
			}
			avoids, err := parseWeights(avoid)
			if err != nil {
				return fmt.Errorf("--avoid: %w", err)
			}
			p := domain.Persona{
				PreferenceDomains: prefs,
				AvoidanceProfile:  avoids,
				Ambition:          ambition,
				Momentum:          momentum,
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				saved, err := e.SetPersona(ctx, p)
				if err != nil {
					return err
				}
				return printJSONOrTable(saved)
			})
		},
	}
	cmd.Flags().StringSliceVar(&prefer, "prefer", nil, "preferred domain=weight (repeatable)")
	cmd.Flags().StringSliceVar(&avoid, "avoid", nil, "avoided domain=weight (repeatable)")
	cmd.Flags().Float64Var(&ambition, "ambition", 0.5, "ambition in [0,1]")
	cmd.Flags().Float64Var(&momentum, "momentum", 0.5, "momentum in [0,1]")
	return cmd
}

func parseWeights(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid weight %q (want domain=weight)", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", pair, err)
		}
		out[key] = w
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
