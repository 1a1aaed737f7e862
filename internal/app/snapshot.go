// Package app assembles analysis requests from the local task store.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
	"taskpulse/internal/repo"
)

// Snapshot is the store state a request is built from.
type Snapshot struct {
	Tasks   []domain.Task
	Entries []domain.JournalEntry
	Persona *domain.Persona
}

// Open returns the tasks that are not completed.
func (s Snapshot) Open() []domain.Task {
	out := make([]domain.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// Task finds a task by id.
func (s Snapshot) Task(id string) (domain.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// LoadSnapshot reads every task, the journal entries created since
// journalSince, and the persona if one was saved.
func LoadSnapshot(ctx context.Context, r repo.Repo, journalSince time.Time) (Snapshot, error) {
	tasks, err := r.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tasks: %w", err)
	}
	entries, err := r.ListJournalEntries(ctx, &journalSince, 0)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list journal entries: %w", err)
	}
	s := Snapshot{Tasks: tasks, Entries: entries}
	p, err := r.GetPersona(ctx)
	switch {
	case err == nil:
		s.Persona = &p
	case errors.Is(err, repo.ErrNotFound):
	default:
		return Snapshot{}, fmt.Errorf("load persona: %w", err)
	}
	return s, nil
}

type RequestOptions struct {
	// FocusTaskID is required for domino_effect.
	FocusTaskID string
	// SkipUnlocks turns off domino unlock counting in compute_priorities.
	SkipUnlocks bool
	Now         *time.Time
}

// ErrFocusRequired is returned when a domino request names no focus task.
var ErrFocusRequired = errors.New("focus task id is required for domino_effect")

// BuildRequest selects the slice of s that kind analyzes.
func BuildRequest(kind dispatch.Kind, s Snapshot, opts RequestOptions) (dispatch.Request, error) {
	var payload any
	switch kind {
	case dispatch.KindAnalyzePatterns:
		payload = dispatch.PatternsPayload{Tasks: s.Tasks}
	case dispatch.KindGenerateInsights:
		payload = dispatch.InsightsPayload{Entries: s.Entries}
	case dispatch.KindCategorizeBatch:
		payload = dispatch.CategorizePayload{Tasks: s.Open()}
	case dispatch.KindComputePriorities:
		payload = dispatch.PrioritiesPayload{
			Tasks:          s.Open(),
			Persona:        s.Persona,
			ComputeUnlocks: !opts.SkipUnlocks,
		}
	case dispatch.KindDetectBurnout:
		payload = dispatch.BurnoutPayload{Tasks: s.Tasks, Entries: s.Entries}
	case dispatch.KindDominoEffect:
		if opts.FocusTaskID == "" {
			return dispatch.Request{}, ErrFocusRequired
		}
		focus, ok := s.Task(opts.FocusTaskID)
		if !ok {
			return dispatch.Request{}, fmt.Errorf("focus task %s: %w", opts.FocusTaskID, repo.ErrNotFound)
		}
		payload = dispatch.DominoPayload{FocusTask: &focus, Candidates: s.Open()}
	case dispatch.KindForecastLoad:
		payload = dispatch.ForecastPayload{Tasks: s.Open()}
	default:
		return dispatch.Request{}, &dispatch.Error{Code: dispatch.CodeUnknownOperation, Kind: kind, Err: fmt.Errorf("kind %q is not supported", kind)}
	}
	req, err := dispatch.NewRequest(kind, payload)
	if err != nil {
		return dispatch.Request{}, err
	}
	req.Now = opts.Now
	return req, nil
}
