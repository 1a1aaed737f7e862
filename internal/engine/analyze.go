package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskpulse/internal/analysis"
	"taskpulse/internal/app"
	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
)

// AnalyzeOptions controls a store-backed analysis.
type AnalyzeOptions struct {
	FocusTaskID string
	SkipUnlocks bool
	// Save persists the result as an analysis run.
	Save bool
	Now  *time.Time
}

type AnalysisOutcome struct {
	Kind   dispatch.Kind       `json:"kind"`
	Result any                 `json:"result"`
	Run    *domain.AnalysisRun `json:"run,omitempty"`
}

// Analyze builds the request for kind from the store and runs it.
func (e Engine) Analyze(ctx context.Context, kind dispatch.Kind, opts AnalyzeOptions) (AnalysisOutcome, error) {
	if e.Dispatcher == nil {
		return AnalysisOutcome{}, errors.New("dispatcher not configured")
	}
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return AnalysisOutcome{}, err
	}
	now := opts.Now
	if now == nil {
		ts := e.Clock()
		now = &ts
	}
	req, err := app.BuildRequest(kind, snap, app.RequestOptions{
		FocusTaskID: opts.FocusTaskID,
		SkipUnlocks: opts.SkipUnlocks,
		Now:         now,
	})
	if err != nil {
		return AnalysisOutcome{}, err
	}
	result, err := e.Dispatcher.Execute(ctx, req)
	if err != nil {
		return AnalysisOutcome{}, err
	}
	out := AnalysisOutcome{Kind: kind, Result: result}
	if opts.Save {
		run, err := e.saveRun(ctx, string(kind), req, result)
		if err != nil {
			return AnalysisOutcome{}, err
		}
		out.Run = &run
	}
	return out, nil
}

// FocusOutcome is today's focus pick together with the ranking it came from.
type FocusOutcome struct {
	Selection  domain.FocusSelection   `json:"selection"`
	Priorities []domain.PriorityResult `json:"priorities"`
	Run        *domain.AnalysisRun     `json:"run,omitempty"`
}

// Focus ranks open tasks and picks today's one task.
func (e Engine) Focus(ctx context.Context, opts AnalyzeOptions) (FocusOutcome, error) {
	save := opts.Save
	opts.Save = false
	out, err := e.Analyze(ctx, dispatch.KindComputePriorities, opts)
	if err != nil {
		return FocusOutcome{}, err
	}
	results, ok := out.Result.([]domain.PriorityResult)
	if !ok {
		return FocusOutcome{}, fmt.Errorf("unexpected priorities result %T", out.Result)
	}
	fo := FocusOutcome{Selection: analysis.SelectFocus(results), Priorities: results}
	if save {
		run, err := e.saveRun(ctx, "focus", opts, fo.Selection)
		if err != nil {
			return FocusOutcome{}, err
		}
		fo.Run = &run
	}
	return fo, nil
}

// ApplyCategories runs the batch categorizer over open tasks and writes back
// the categories it matched.
func (e Engine) ApplyCategories(ctx context.Context) (domain.CategorizeResult, error) {
	out, err := e.Analyze(ctx, dispatch.KindCategorizeBatch, AnalyzeOptions{})
	if err != nil {
		return domain.CategorizeResult{}, err
	}
	res, ok := out.Result.(domain.CategorizeResult)
	if !ok {
		return domain.CategorizeResult{}, fmt.Errorf("unexpected categorize result %T", out.Result)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()
	now := e.Clock()
	for _, a := range res.Assignments {
		if !a.Matched {
			continue
		}
		t, err := e.Repo.GetTaskTx(ctx, tx, a.TaskID)
		if err != nil {
			return res, err
		}
		t.Category = a.Category
		if err := e.Repo.UpdateTask(ctx, tx, t, now); err != nil {
			return res, err
		}
	}
	return res, tx.Commit()
}

func (e Engine) saveRun(ctx context.Context, kind string, request, result any) (domain.AnalysisRun, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AnalysisRun{}, err
	}
	defer tx.Rollback()
	w := e.Events
	w.Now = e.Clock
	run, err := w.Append(ctx, tx, kind, request, result)
	if err != nil {
		return domain.AnalysisRun{}, err
	}
	return run, tx.Commit()
}
