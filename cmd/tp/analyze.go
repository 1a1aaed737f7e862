package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
	"taskpulse/internal/engine"
	"taskpulse/internal/repo"
)

var kindAliases = map[string]dispatch.Kind{
	"patterns":   dispatch.KindAnalyzePatterns,
	"insights":   dispatch.KindGenerateInsights,
	"journal":    dispatch.KindGenerateInsights,
	"categorize": dispatch.KindCategorizeBatch,
	"priorities": dispatch.KindComputePriorities,
	"burnout":    dispatch.KindDetectBurnout,
	"domino":     dispatch.KindDominoEffect,
	"forecast":   dispatch.KindForecastLoad,
}

func resolveKind(arg string) (dispatch.Kind, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if k, ok := kindAliases[arg]; ok {
		return k, nil
	}
	if k := dispatch.Kind(arg); k.Known() {
		return k, nil
	}
	return "", fmt.Errorf("unknown analysis %q", arg)
}

type analyzeFlags struct {
	focus       string
	save        bool
	now         string
	skipUnlocks bool
}

func (f *analyzeFlags) bind(cmd *cobra.Command, withFocus bool) {
	if withFocus {
		cmd.Flags().StringVar(&f.focus, "focus", "", "focus task id (domino)")
	}
	cmd.Flags().BoolVar(&f.save, "save", false, "keep the result as an analysis run")
	cmd.Flags().StringVar(&f.now, "now", "", "evaluate as of this time")
	cmd.Flags().BoolVar(&f.skipUnlocks, "skip-unlocks", false, "skip domino unlock counting when ranking")
}

func (f analyzeFlags) options() (engine.AnalyzeOptions, error) {
	now, err := optionalTime(f.now)
	if err != nil {
		return engine.AnalyzeOptions{}, err
	}
	return engine.AnalyzeOptions{
		FocusTaskID: f.focus,
		SkipUnlocks: f.skipUnlocks,
		Save:        f.save,
		Now:         now,
	}, nil
}

func analyzeCmd() *cobra.Command {
	var flags analyzeFlags
	names := make([]string, 0, len(kindAliases))
	for alias := range kindAliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	cmd := &cobra.Command{
		Use:       "analyze <kind>",
		Short:     "Run an analysis over the stored tasks, journal and persona",
		Long:      "Run an analysis. kind is a request kind such as compute_priorities or one of: " + strings.Join(names, ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := resolveKind(args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.Analyze(ctx, kind, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				printResult(out.Result)
				printSavedRun(out.Run)
				return nil
			})
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func focusCmd() *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Pick today's one task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.Focus(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				if !out.Selection.Selected {
					fmt.Println(out.Selection.Reason)
					return nil
				}
				t, err := e.Repo.GetTask(ctx, out.Selection.Task.TaskID)
				if err != nil {
					return err
				}
				fmt.Printf("Focus: %s (%s, score %.1f)\n", t.Title, out.Selection.Task.Bucket, out.Selection.Task.Score)
				for _, r := range out.Selection.Task.Reasons {
					fmt.Println("  -", r)
				}
				printSavedRun(out.Run)
				return nil
			})
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func runsCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				runs, err := r.ListRuns(ctx, kind, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Kind", "Saved"})
				for _, run := range runs {
					tw.AppendRow(table.Row{run.ID, run.Kind, savedAgo(run.CreatedAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "kind filter")
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs")
	cmd.AddCommand(runShowCmd())
	return cmd
}

func runShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved analysis run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				run, err := r.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(run)
				}
				fmt.Printf("%s %s saved %s\n", run.ID, run.Kind, savedAgo(run.CreatedAt))
				fmt.Println(run.ResultJSON)
				return nil
			})
		},
	}
}

func savedAgo(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func printSavedRun(run *domain.AnalysisRun) {
	if run != nil {
		fmt.Println("saved as run", run.ID)
	}
}

func printResult(v any) {
	switch res := v.(type) {
	case []domain.PriorityResult:
		printPriorities(res)
	case domain.DominoResult:
		printDomino(res)
	case domain.LoadForecast:
		printForecast(res)
	case domain.BurnoutAssessment:
		printBurnout(res)
	case domain.PatternSummary:
		printPatterns(res)
	case domain.JournalInsight:
		printInsight(res)
	case domain.CategorizeResult:
		printCategorize(res)
	default:
		_ = printJSON(v)
	}
}

func printPriorities(results []domain.PriorityResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Task", "Score", "Bucket", "Reasons"})
	for _, r := range results {
		tw.AppendRow(table.Row{r.TaskID, fmt.Sprintf("%.1f", r.Score), r.Bucket, strings.Join(r.Reasons, "; ")})
	}
	tw.Render()
}

func printDomino(res domain.DominoResult) {
	fmt.Printf("Completing %s unlocks %d task(s)\n", res.FocusTaskID, res.UnlocksCount)
	if len(res.UnlockedTasks) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Task", "Relationship", "Confidence", "Reason"})
		for _, u := range res.UnlockedTasks {
			tw.AppendRow(table.Row{u.TaskID, u.Relationship, fmt.Sprintf("%.2f", u.Confidence), u.Reason})
		}
		tw.Render()
	}
	for _, line := range res.Reasoning {
		fmt.Println("-", line)
	}
}

func printForecast(res domain.LoadForecast) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Date", "Load", "Tasks", "Deadlines", "Recurring", "Clusters", "Focus"})
	for _, d := range res.Days {
		tw.AppendRow(table.Row{d.Date, d.ExpectedLoadScore, d.TaskCount, d.DeadlineCount, d.RecurrenceCount, formatCounts(d.ClusterDensity), d.RecommendedFocus})
	}
	tw.Render()
	for _, w := range res.Warnings {
		fmt.Printf("warning: task %s: %s\n", w.TaskID, w.Message)
	}
}

func printBurnout(res domain.BurnoutAssessment) {
	fmt.Printf("Burnout risk: %s (score %d)\n", res.Risk, res.Score)
	for _, f := range res.Factors {
		fmt.Println("  -", f)
	}
}

func printPatterns(res domain.PatternSummary) {
	fmt.Println("Categories:", formatCounts(res.CategoryCounts))
	hours := make([]string, 0, len(res.PeakHours))
	for _, h := range res.PeakHours {
		hours = append(hours, fmt.Sprintf("%02d:00 (%d)", h.Hour, h.Count))
	}
	fmt.Println("Peak hours:", strings.Join(hours, ", "))
	if len(res.RecurringTitles) > 0 {
		fmt.Println("Recurring:", strings.Join(res.RecurringTitles, ", "))
	}
}

func printInsight(res domain.JournalInsight) {
	fmt.Printf("Sentiment: %d positive, %d negative, %d neutral\n", res.Sentiment.Positive, res.Sentiment.Negative, res.Sentiment.Neutral)
	if len(res.Themes) > 0 {
		fmt.Println("Themes:", strings.Join(res.Themes, ", "))
	}
	if len(res.MoodCounts) > 0 {
		fmt.Println("Moods:", formatCounts(res.MoodCounts))
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
}

func printCategorize(res domain.CategorizeResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Task", "Category", "Matched"})
	for _, a := range res.Assignments {
		tw.AppendRow(table.Row{a.TaskID, a.Category, a.Matched})
	}
	tw.Render()
	fmt.Printf("%d categorized, %d unmatched\n", res.Categorized, res.Unmatched)
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
