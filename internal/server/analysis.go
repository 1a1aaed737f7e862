package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
	"taskpulse/internal/engine"
)

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// registerAnalyze exposes the stateless dispatcher: callers send the full
// collection and nothing is read from or written to the store.
func registerAnalyze(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analyze",
		Method:      http.MethodPost,
		Path:        "/analyze",
		Summary:     "Run one analysis over a caller-supplied payload",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body AnalyzeRequest `json:"body"`
	}) (*struct {
		Body AnalyzeResponse `json:"body"`
	}, error) {
		req, err := input.Body.toDispatch()
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid payload", map[string]any{"error": err.Error()})
		}
		result, err := e.Dispatcher.Execute(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AnalyzeResponse `json:"body"`
		}{Body: AnalyzeResponse{Kind: req.Kind, Result: result}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "analyze-batch",
		Method:      http.MethodPost,
		Path:        "/analyze/batch",
		Summary:     "Run several analyses; failures are reported per item",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body BatchRequest `json:"body"`
	}) (*struct {
		Body BatchResponse `json:"body"`
	}, error) {
		reqs := make([]dispatch.Request, len(input.Body.Requests))
		for i, r := range input.Body.Requests {
			req, err := r.toDispatch()
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid payload", map[string]any{"index": i, "error": err.Error()})
			}
			reqs[i] = req
		}
		return &struct {
			Body BatchResponse `json:"body"`
		}{Body: BatchResponse{Responses: e.Dispatcher.DispatchBatch(ctx, reqs)}}, nil
	})
}

func analyzeOptions(focusTaskID string, skipUnlocks, save bool, now string) (engine.AnalyzeOptions, error) {
	opts := engine.AnalyzeOptions{FocusTaskID: focusTaskID, SkipUnlocks: skipUnlocks, Save: save}
	if now != "" {
		ts, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return opts, newAPIError(http.StatusBadRequest, "bad_request", "invalid now", map[string]any{"field": "now", "reason": "must be RFC 3339"})
		}
		opts.Now = &ts
	}
	return opts, nil
}

// registerInsights runs analyses over the local store.
func registerInsights(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "insights",
		Method:      http.MethodPost,
		Path:        "/insights/{kind}",
		Summary:     "Run one analysis over the stored tasks, journal and persona",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Kind        string `path:"kind" example:"forecast_load"`
		FocusTaskID string `query:"focus_task_id" doc:"Required for domino_effect"`
		SkipUnlocks bool   `query:"skip_unlocks"`
		Save        bool   `query:"save" doc:"Persist the result as an analysis run"`
		Now         string `query:"now" doc:"Pin the analysis clock (RFC 3339)"`
	}) (*struct {
		Body engine.AnalysisOutcome `json:"body"`
	}, error) {
		opts, err := analyzeOptions(input.FocusTaskID, input.SkipUnlocks, input.Save, input.Now)
		if err != nil {
			return nil, err
		}
		out, err := e.Analyze(ctx, dispatch.Kind(input.Kind), opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.AnalysisOutcome `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "focus",
		Method:      http.MethodGet,
		Path:        "/focus",
		Summary:     "Pick today's focus task",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		SkipUnlocks bool   `query:"skip_unlocks"`
		Save        bool   `query:"save"`
		Now         string `query:"now"`
	}) (*struct {
		Body engine.FocusOutcome `json:"body"`
	}, error) {
		opts, err := analyzeOptions("", input.SkipUnlocks, input.Save, input.Now)
		if err != nil {
			return nil, err
		}
		out, err := e.Focus(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.FocusOutcome `json:"body"`
		}{Body: out}, nil
	})
}

func registerRuns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List saved analysis runs",
	}, func(ctx context.Context, input *struct {
		Kind  string `query:"kind"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body runList `json:"body"`
	}, error) {
		runs, err := e.Repo.ListRuns(ctx, input.Kind, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body runList `json:"body"`
		}{Body: runList{Items: runs}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{id}",
		Summary:     "Get a saved analysis run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.AnalysisRun `json:"body"`
	}, error) {
		run, err := e.Repo.GetRun(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AnalysisRun `json:"body"`
		}{Body: run}, nil
	})
}
