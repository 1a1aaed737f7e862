// Package engine runs the store-backed workflows: capturing tasks and journal
// entries, keeping the persona snapshot, and running analyses over the store.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskpulse/internal/analysis"
	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
	"taskpulse/internal/events"
	"taskpulse/internal/repo"
)

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Config     *config.Config
	Dispatcher *dispatch.Dispatcher
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config, d *dispatch.Dispatcher) Engine {
	return Engine{
		DB:         db,
		Repo:       repo.Repo{DB: db},
		Events:     events.Writer{DB: db},
		Config:     cfg,
		Dispatcher: d,
		Now:        time.Now,
	}
}

// Clock returns the engine's current time.
func (e Engine) Clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// TaskCreateOptions are parameters for capturing a task.
type TaskCreateOptions struct {
	ID                string
	Title             string
	Category          string
	ReminderTime      *time.Time
	Recurrence        domain.Recurrence
	RecurrenceDay     *int
	RecurrenceEndDate *time.Time
	IsTiny            bool
	Keywords          []string
	HasPersonName     bool
}

func (e Engine) AddTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if !opts.Recurrence.Known() {
		return domain.Task{}, fmt.Errorf("unknown recurrence %q (use none, daily, weekly or monthly)", opts.Recurrence)
	}
	now := e.Clock()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	t := domain.Task{
		ID:                id,
		Title:             title,
		Category:          analysis.NormalizeCategory(opts.Category),
		CreatedAt:         now.UTC(),
		ReminderTime:      opts.ReminderTime,
		RecurrencePattern: opts.Recurrence,
		RecurrenceDay:     opts.RecurrenceDay,
		RecurrenceEndDate: opts.RecurrenceEndDate,
		IsTiny:            opts.IsTiny,
		Keywords:          analysis.NormalizeKeywords(opts.Keywords),
		HasPersonName:     opts.HasPersonName,
	}
	if err := t.Validate(); err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t, now); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions encapsulates allowed updates. Nil fields are unchanged.
type TaskUpdateOptions struct {
	ID            string
	Title         *string
	Category      *string
	ReminderTime  *time.Time
	ClearReminder bool
	IsTiny        *bool
	Completed     *bool
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, opts.ID)
	if err != nil {
		return t, err
	}
	now := e.Clock()
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return t, errors.New("title must not be empty")
		}
		t.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Category != nil {
		t.Category = analysis.NormalizeCategory(*opts.Category)
	}
	if opts.ClearReminder {
		t.ReminderTime = nil
	} else if opts.ReminderTime != nil {
		t.ReminderTime = opts.ReminderTime
	}
	if opts.IsTiny != nil {
		t.IsTiny = *opts.IsTiny
	}
	if opts.Completed != nil && *opts.Completed != t.Completed {
		t.Completed = *opts.Completed
		if t.Completed {
			ts := now.UTC()
			t.CompletedAt = &ts
		} else {
			t.CompletedAt = nil
		}
	}
	if err := e.Repo.UpdateTask(ctx, tx, t, now); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

func (e Engine) CompleteTask(ctx context.Context, id string) (domain.Task, error) {
	done := true
	return e.UpdateTask(ctx, TaskUpdateOptions{ID: id, Completed: &done})
}

func (e Engine) ReopenTask(ctx context.Context, id string) (domain.Task, error) {
	open := false
	return e.UpdateTask(ctx, TaskUpdateOptions{ID: id, Completed: &open})
}

func (e Engine) DeleteTask(ctx context.Context, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) AddJournalEntry(ctx context.Context, content, mood string) (domain.JournalEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.JournalEntry{}, errors.New("content is required")
	}
	entry := domain.JournalEntry{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: e.Clock().UTC(),
		Mood:      strings.TrimSpace(mood),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertJournalEntry(ctx, tx, entry); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("insert journal entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.JournalEntry{}, err
	}
	return entry, nil
}

func (e Engine) SetPersona(ctx context.Context, p domain.Persona) (domain.Persona, error) {
	if err := p.Validate(); err != nil {
		return domain.Persona{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Persona{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertPersona(ctx, tx, p, e.Clock()); err != nil {
		return domain.Persona{}, fmt.Errorf("save persona: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Persona{}, err
	}
	return p, nil
}

// Snapshot loads the store state analyses run against.
func (e Engine) Snapshot(ctx context.Context) (app.Snapshot, error) {
	days := 30
	if e.Config != nil && e.Config.Engine.JournalWindowDays > 0 {
		days = e.Config.Engine.JournalWindowDays
	}
	return app.LoadSnapshot(ctx, e.Repo, e.Clock().AddDate(0, 0, -days))
}
