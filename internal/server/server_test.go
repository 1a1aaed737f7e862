package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"taskpulse/internal/analysis"
	"taskpulse/internal/auth"
	"taskpulse/internal/config"
	"taskpulse/internal/db"
	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
	"taskpulse/internal/engine"
	"taskpulse/internal/migrate"
)

var fixedNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, authCfg AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	reg := prometheus.NewRegistry()
	d, err := dispatch.New(dispatch.Options{
		Location:  time.UTC,
		CacheSize: 16,
		Registry:  reg,
		Now:       func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	e := engine.New(conn, config.Default(), d)
	e.Now = func() time.Time { return fixedNow }
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: authCfg, Registry: reg})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error apiErrorBody `json:"error"`
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error
}

func TestAnalyzePriorities(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	overdue := fixedNow.Add(-time.Hour)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/analyze", map[string]any{
		"kind": "compute_priorities",
		"now":  fixedNow,
		"payload": map[string]any{
			"tasks": []domain.Task{
				{ID: "a", Title: "Water plants", CreatedAt: fixedNow},
				{ID: "b", Title: "File taxes", CreatedAt: fixedNow, ReminderTime: &overdue},
			},
		},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("analyze status %d: %s", res.StatusCode, string(data))
	}
	var out struct {
		Kind   string                  `json:"kind"`
		Result []domain.PriorityResult `json:"result"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Kind != "compute_priorities" || len(out.Result) != 2 || out.Result[0].TaskID != "b" {
		t.Fatalf("unexpected result: %s", string(data))
	}
}

func TestAnalyzeErrors(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/analyze", map[string]any{
		"kind":    "summon_dragons",
		"payload": map[string]any{},
	}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	if body := decodeError(t, data); body.Code != "unknown_operation" {
		t.Fatalf("expected unknown_operation, got %+v", body)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/analyze", map[string]any{
		"kind":    "forecast_load",
		"payload": map[string]any{"tasks": []map[string]any{{"title": "no id"}}},
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", res.StatusCode, string(data))
	}
	if body := decodeError(t, data); body.Code != "invalid_input" || body.Details["kind"] != "forecast_load" {
		t.Fatalf("expected invalid_input for forecast_load, got %+v", body)
	}
}

func TestAnalyzeBatchKeepsOrder(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/analyze/batch", map[string]any{
		"requests": []map[string]any{
			{"kind": "generate_insights", "payload": map[string]any{"entries": []any{}}},
			{"kind": "nope", "payload": map[string]any{}},
			{"kind": "forecast_load", "payload": map[string]any{"tasks": []any{}}},
		},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("batch status %d: %s", res.StatusCode, string(data))
	}
	var out BatchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(out.Responses))
	}
	if out.Responses[0].Kind != dispatch.KindGenerateInsights || out.Responses[0].ErrorCode != "" {
		t.Fatalf("unexpected first response: %+v", out.Responses[0])
	}
	if out.Responses[1].ErrorCode != dispatch.CodeUnknownOperation {
		t.Fatalf("expected unknown_operation, got %+v", out.Responses[1])
	}
	if out.Responses[2].Kind != dispatch.KindForecastLoad || out.Responses[2].ErrorCode != "" {
		t.Fatalf("unexpected third response: %+v", out.Responses[2])
	}
}

func TestStoreBackedInsights(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":    "Prepare meeting agenda",
		"category": "work",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/insights/forecast_load?save=true", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("insights status %d: %s", res.StatusCode, string(data))
	}
	var outcome struct {
		Kind   string              `json:"kind"`
		Result domain.LoadForecast `json:"result"`
		Run    *domain.AnalysisRun `json:"run"`
	}
	if err := json.Unmarshal(data, &outcome); err != nil {
		t.Fatalf("unmarshal outcome: %v", err)
	}
	if len(outcome.Result.Days) != analysis.ForecastDays || outcome.Run == nil {
		t.Fatalf("unexpected outcome: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/runs/"+outcome.Run.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get run status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/insights/domino_effect", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without focus task, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/complete", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/focus", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("focus status %d: %s", res.StatusCode, string(data))
	}
	var focus engine.FocusOutcome
	if err := json.Unmarshal(data, &focus); err != nil {
		t.Fatalf("unmarshal focus: %v", err)
	}
	if focus.Selection.Selected {
		t.Fatalf("no open tasks should mean no selection: %s", string(data))
	}
}

func TestTaskPagination(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	for _, id := range []string{"t1", "t2", "t3"} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{"id": id, "title": "Task " + id}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: %d %s", id, res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks?limit=2", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedTasks
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %s", string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks?limit=2&cursor="+page.NextCursor, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list page 2 status %d: %s", res.StatusCode, string(data))
	}
	var second paginatedTasks
	if err := json.Unmarshal(data, &second); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(second.Items) != 1 || second.NextCursor != "" || second.Items[0].ID != "t1" {
		t.Fatalf("unexpected second page: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tasks/t1", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/t1", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d %s", res.StatusCode, string(data))
	}
}

func TestPersonaValidation(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/persona", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before persona is set, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/persona", map[string]any{
		"preference_domains": map[string]float64{"gym": 1.5},
		"ambition":           0.5,
		"momentum":           0.5,
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range weight, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/persona", map[string]any{
		"preference_domains": map[string]float64{"gym": 0.8},
		"ambition":           0.5,
		"momentum":           0.2,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("put persona status %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	authCfg := AuthConfig{JWTSecret: "s3cret", JWTIssuer: "taskpulse"}
	srv, cleanup := newTestServer(t, authCfg)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health must stay open, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, map[string]string{"Authorization": "Bearer junk"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for junk token, got %d %s", res.StatusCode, string(data))
	}
	token, err := auth.Issue(authCfg.JWTSecret, authCfg.JWTIssuer, "tester", nil, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d %s", res.StatusCode, string(data))
	}
}

func TestMetricsAndOpenAPI(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/analyze", map[string]any{
		"kind":    "analyze_patterns",
		"payload": map[string]any{"tasks": []any{}},
	}, nil)
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/metrics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", res.StatusCode)
	}
	if !strings.Contains(string(data), `kind="analyze_patterns"`) {
		t.Fatalf("expected analyze_patterns series in metrics:\n%s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d", res.StatusCode)
	}
	if !strings.Contains(string(data), "/v0/analyze/batch") {
		t.Fatalf("openapi document misses batch route")
	}
}
