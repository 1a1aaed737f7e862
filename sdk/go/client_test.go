package taskpulsesdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(url string) *Client {
	c := New(url)
	c.Backoff = backoff.NewConstantBackOff(time.Millisecond)
	return c
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/analyze", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req AnalyzeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(map[string]any{"kind": req.Kind, "result": []map[string]any{{"task_id": "a", "score": 30, "bucket": "must"}}})
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).Analyze(context.Background(), AnalyzeRequest{
		Kind:    "compute_priorities",
		Payload: map[string]any{"tasks": []any{}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	var priorities []PriorityResult
	require.NoError(t, res.Decode(&priorities))
	require.Len(t, priorities, 1)
	assert.Equal(t, "must", priorities[0].Bucket)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"invalid_input","message":"tasks[0].id is required"}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Analyze(context.Background(), AnalyzeRequest{Kind: "forecast_load", Payload: map[string]any{}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_input", apiErr.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestInsightsAndFocusQuery(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v0/insights/domino_effect":
			assert.Equal(t, "t1", r.URL.Query().Get("focus_task_id"))
			assert.Equal(t, "true", r.URL.Query().Get("save"))
			assert.Equal(t, "2024-03-04T09:00:00Z", r.URL.Query().Get("now"))
			w.Write([]byte(`{"kind":"domino_effect","result":{"unlocks_count":0},"run":{"id":"r1","kind":"domino_effect"}}`))
		case "/v0/focus":
			w.Write([]byte(`{"selection":{"selected":true,"task":{"task_id":"t1","score":25,"bucket":"must"},"reason":"top"},"priorities":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	c.BearerToken = "tok"
	out, err := c.Insights(context.Background(), "domino_effect", InsightsOptions{FocusTaskID: "t1", Save: true, Now: &now})
	require.NoError(t, err)
	require.NotNil(t, out.Run)
	assert.Equal(t, "r1", out.Run.ID)

	focus, err := c.Focus(context.Background(), InsightsOptions{})
	require.NoError(t, err)
	require.True(t, focus.Selection.Selected)
	assert.Equal(t, "t1", focus.Selection.Task.TaskID)
}

func TestAnalyzeBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responses":[{"kind":"forecast_load","result":{"days":[]}},{"kind":"nope","error":"nope: unknown_operation","error_code":"unknown_operation"}]}`))
	}))
	defer srv.Close()

	items, err := newClient(srv.URL).AnalyzeBatch(context.Background(), []AnalyzeRequest{
		{Kind: "forecast_load", Payload: map[string]any{"tasks": []any{}}},
		{Kind: "nope", Payload: map[string]any{}},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Empty(t, items[0].ErrorCode)
	assert.Equal(t, "unknown_operation", items[1].ErrorCode)
}
