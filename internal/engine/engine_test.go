package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/db"
	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
	"taskpulse/internal/engine"
	"taskpulse/internal/migrate"
	"taskpulse/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

var fixedNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	d, err := dispatch.New(dispatch.Options{Location: time.UTC, Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	eng := engine.New(conn, cfg, d)
	eng.Now = func() time.Time { return fixedNow }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{
		Title:    "  Send invoice ",
		Category: " Work ",
		Keywords: []string{"Invoice", "invoice", "client"},
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Title != "Send invoice" || task.Category != "work" {
		t.Fatalf("unexpected normalization: %+v", task)
	}
	if len(task.Keywords) != 2 {
		t.Fatalf("expected deduplicated keywords, got %v", task.Keywords)
	}

	task, err = env.Engine.CompleteTask(env.Ctx, task.ID)
	if err != nil || !task.Completed || task.CompletedAt == nil {
		t.Fatalf("complete: %v %+v", err, task)
	}
	stored, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !stored.Completed || !stored.CompletedAt.Equal(fixedNow) {
		t.Fatalf("completion not persisted: %+v", stored)
	}

	task, err = env.Engine.ReopenTask(env.Ctx, task.ID)
	if err != nil || task.Completed || task.CompletedAt != nil {
		t.Fatalf("reopen: %v %+v", err, task)
	}

	if err := env.Engine.DeleteTask(env.Ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestAddTaskRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{Title: "   "}); err == nil {
		t.Fatalf("expected empty title error")
	}
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{Title: "x", Recurrence: "hourly"}); err == nil {
		t.Fatalf("expected recurrence error")
	}
	day := 40
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{Title: "x", Recurrence: domain.RecurrenceMonthly, RecurrenceDay: &day}); err == nil {
		t.Fatalf("expected recurrence day error")
	}
}

func TestUpdateMissingTask(t *testing.T) {
	env := newTestEnv(t)
	title := "new"
	_, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: "nope", Title: &title})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFocusPicksOverdueTask(t *testing.T) {
	env := newTestEnv(t)
	overdue := fixedNow.Add(-2 * time.Hour)
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "a", Title: "Water plants"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "b", Title: "File taxes", Category: "work", ReminderTime: &overdue}); err != nil {
		t.Fatal(err)
	}
	out, err := env.Engine.Focus(env.Ctx, engine.AnalyzeOptions{Save: true})
	if err != nil {
		t.Fatalf("focus: %v", err)
	}
	if !out.Selection.Selected || out.Selection.Task.TaskID != "b" {
		t.Fatalf("expected b selected, got %+v", out.Selection)
	}
	if len(out.Priorities) != 2 || out.Priorities[0].TaskID != "b" {
		t.Fatalf("unexpected ranking: %+v", out.Priorities)
	}
	if out.Run == nil || out.Run.Kind != "focus" {
		t.Fatalf("expected saved focus run, got %+v", out.Run)
	}
	runs, err := env.Engine.Repo.ListRuns(env.Ctx, "focus", 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one stored run: %v %d", err, len(runs))
	}
}

func TestAnalyzeOnEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.Engine.Analyze(env.Ctx, dispatch.KindComputePriorities, engine.AnalyzeOptions{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	results, ok := out.Result.([]domain.PriorityResult)
	if !ok || len(results) != 0 {
		t.Fatalf("expected empty priorities, got %#v", out.Result)
	}
	if out.Run != nil {
		t.Fatalf("run must not be stored without save")
	}
	runs, err := env.Engine.Repo.ListRuns(env.Ctx, "", 10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected no runs: %v %d", err, len(runs))
	}
}

func TestAnalyzeDominoNeedsFocus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Analyze(env.Ctx, dispatch.KindDominoEffect, engine.AnalyzeOptions{})
	if !errors.Is(err, app.ErrFocusRequired) {
		t.Fatalf("expected focus required, got %v", err)
	}
	_, err = env.Engine.Analyze(env.Ctx, dispatch.KindDominoEffect, engine.AnalyzeOptions{FocusTaskID: "missing"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnalyzeDominoFromStore(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "focus", Title: "Design database schema"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "next", Title: "Once schema is designed, build the API"}); err != nil {
		t.Fatal(err)
	}
	out, err := env.Engine.Analyze(env.Ctx, dispatch.KindDominoEffect, engine.AnalyzeOptions{FocusTaskID: "focus", Save: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	res, ok := out.Result.(domain.DominoResult)
	if !ok {
		t.Fatalf("unexpected result %T", out.Result)
	}
	if res.UnlocksCount != 1 || res.UnlockedTasks[0].TaskID != "next" {
		t.Fatalf("expected next unlocked, got %+v", res)
	}
	if out.Run == nil || out.Run.Kind != string(dispatch.KindDominoEffect) {
		t.Fatalf("expected stored run, got %+v", out.Run)
	}
}

func TestApplyCategoriesWritesMatches(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "m", Title: "Prepare meeting notes"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "u", Title: "Ponder life"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ID: "k", Title: "Clean kitchen", Category: "chores"}); err != nil {
		t.Fatal(err)
	}
	res, err := env.Engine.ApplyCategories(env.Ctx)
	if err != nil {
		t.Fatalf("apply categories: %v", err)
	}
	if res.Categorized != 1 || res.Unmatched != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	m, _ := env.Engine.Repo.GetTask(env.Ctx, "m")
	if m.Category != "work" {
		t.Fatalf("expected work category, got %q", m.Category)
	}
	u, _ := env.Engine.Repo.GetTask(env.Ctx, "u")
	if u.Category != "" {
		t.Fatalf("unmatched task must stay uncategorized, got %q", u.Category)
	}
	k, _ := env.Engine.Repo.GetTask(env.Ctx, "k")
	if k.Category != "chores" {
		t.Fatalf("categorized task must be left alone, got %q", k.Category)
	}
}

func TestJournalAndPersonaFeedAnalyses(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddJournalEntry(env.Ctx, "", ""); err == nil {
		t.Fatalf("expected empty content error")
	}
	if _, err := env.Engine.AddJournalEntry(env.Ctx, "Feeling great and productive today", "happy"); err != nil {
		t.Fatalf("journal: %v", err)
	}
	out, err := env.Engine.Analyze(env.Ctx, dispatch.KindGenerateInsights, engine.AnalyzeOptions{})
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	insight, ok := out.Result.(domain.JournalInsight)
	if !ok || insight.Sentiment.Positive != 1 || insight.MoodCounts["happy"] != 1 {
		t.Fatalf("expected positive insight, got %#v", out.Result)
	}

	if _, err := env.Engine.SetPersona(env.Ctx, domain.Persona{Ambition: 2}); err == nil {
		t.Fatalf("expected persona validation error")
	}
	p := domain.Persona{PreferenceDomains: map[string]float64{"gym": 1}, Ambition: 0.5, Momentum: 0.5}
	if _, err := env.Engine.SetPersona(env.Ctx, p); err != nil {
		t.Fatalf("persona: %v", err)
	}
	snap, err := env.Engine.Snapshot(env.Ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Persona == nil || snap.Persona.PreferenceDomains["gym"] != 1 {
		t.Fatalf("persona not loaded: %+v", snap.Persona)
	}
	if len(snap.Entries) != 1 {
		t.Fatalf("expected one journal entry in window, got %d", len(snap.Entries))
	}
}
