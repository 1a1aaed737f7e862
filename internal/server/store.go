package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"taskpulse/internal/domain"
	"taskpulse/internal/engine"
	"taskpulse/internal/repo"
)

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Capture a task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Title) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", map[string]any{"field": "title"})
		}
		opts := engine.TaskCreateOptions{
			Title:             input.Body.Title,
			Category:          input.Body.Category,
			ReminderTime:      input.Body.ReminderTime,
			Recurrence:        domain.Recurrence(input.Body.Recurrence),
			RecurrenceDay:     input.Body.RecurrenceDay,
			RecurrenceEndDate: input.Body.RecurrenceEndDate,
			IsTiny:            input.Body.IsTiny,
			Keywords:          input.Body.Keywords,
			HasPersonName:     input.Body.HasPersonName,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		t, err := e.AddTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Completed string `query:"completed"`
		Category  string `query:"category"`
		Limit     int    `query:"limit" default:"50"`
		Cursor    string `query:"cursor"`
	}) (*struct {
		Body paginatedTasks `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorCreated, cursorID, err := decodeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": "cursor"})
		}
		filters := repo.TaskFilters{
			Category:        input.Category,
			Limit:           limit + 1,
			CursorCreatedAt: cursorCreated,
			CursorID:        cursorID,
		}
		if input.Completed != "" {
			done, err := strconv.ParseBool(input.Completed)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid completed filter", map[string]any{"field": "completed"})
			}
			filters.Completed = &done
		}
		tasks, err := e.Repo.ListTasks(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		var next string
		if len(tasks) > limit {
			last := tasks[limit-1]
			next = encodeCursor(repo.CursorTime(last.CreatedAt), last.ID)
			tasks = tasks[:limit]
		}
		return &struct {
			Body paginatedTasks `json:"body"`
		}{Body: paginatedTasks{Items: tasks, NextCursor: next}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.Repo.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UpdateTask(ctx, engine.TaskUpdateOptions{
			ID:            input.ID,
			Title:         input.Body.Title,
			Category:      input.Body.Category,
			ReminderTime:  input.Body.ReminderTime,
			ClearReminder: input.Body.ClearReminder,
			IsTiny:        input.Body.IsTiny,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	for _, action := range []struct {
		name    string
		summary string
		fn      func(context.Context, string) (domain.Task, error)
	}{
		{"complete", "Mark a task completed", e.CompleteTask},
		{"reopen", "Reopen a completed task", e.ReopenTask},
	} {
		huma.Register(api, huma.Operation{
			OperationID: action.name + "-task",
			Method:      http.MethodPost,
			Path:        "/tasks/{id}/" + action.name,
			Summary:     action.summary,
			Errors:      []int{http.StatusNotFound},
		}, func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*struct {
			Body domain.Task `json:"body"`
		}, error) {
			t, err := action.fn(ctx, input.ID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Task `json:"body"`
			}{Body: t}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "categorize-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/categorize",
		Summary:     "Assign dictionary categories to uncategorized open tasks",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.CategorizeResult `json:"body"`
	}, error) {
		res, err := e.ApplyCategories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CategorizeResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerJournal(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-journal-entry",
		Method:        http.MethodPost,
		Path:          "/journal",
		Summary:       "Write a journal entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateJournalRequest `json:"body"`
	}) (*struct {
		Body domain.JournalEntry `json:"body"`
	}, error) {
		entry, err := e.AddJournalEntry(ctx, input.Body.Content, input.Body.Mood)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.JournalEntry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-journal-entries",
		Method:      http.MethodGet,
		Path:        "/journal",
		Summary:     "List journal entries, newest first",
	}, func(ctx context.Context, input *struct {
		Days  int `query:"days" doc:"Only entries from the trailing window"`
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body journalList `json:"body"`
	}, error) {
		var since *time.Time
		if input.Days > 0 {
			ts := e.Clock().AddDate(0, 0, -input.Days)
			since = &ts
		}
		entries, err := e.Repo.ListJournalEntries(ctx, since, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body journalList `json:"body"`
		}{Body: journalList{Items: entries}}, nil
	})
}

func registerPersona(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-persona",
		Method:      http.MethodGet,
		Path:        "/persona",
		Summary:     "Get the saved persona snapshot",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Persona `json:"body"`
	}, error) {
		p, err := e.Repo.GetPersona(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Persona `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-persona",
		Method:      http.MethodPut,
		Path:        "/persona",
		Summary:     "Replace the persona snapshot",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body PersonaRequest `json:"body"`
	}) (*struct {
		Body domain.Persona `json:"body"`
	}, error) {
		p, err := e.SetPersona(ctx, input.Body.toDomain())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Persona `json:"body"`
		}{Body: p}, nil
	})
}
