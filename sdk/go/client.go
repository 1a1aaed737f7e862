package taskpulsesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Client is a minimal taskpulse HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
	// MaxTries bounds attempts for requests that fail with a 5xx status or a
	// transport error. Zero means 3.
	MaxTries uint
	// Backoff paces retries. Nil means exponential backoff.
	Backoff backoff.BackOff
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
		MaxTries: 3,
	}
}

// AnalyzeRequest is one stateless analysis call.
type AnalyzeRequest struct {
	Kind    string     `json:"kind"`
	Payload any        `json:"payload"`
	Now     *time.Time `json:"now,omitempty"`
}

// AnalyzeResult carries the raw result so callers decode it into the shape
// of the kind they asked for.
type AnalyzeResult struct {
	Kind   string          `json:"kind"`
	Result json.RawMessage `json:"result"`
}

func (r AnalyzeResult) Decode(v any) error {
	return json.Unmarshal(r.Result, v)
}

// BatchItem is one entry of a batch reply. Error fields are set when that
// request failed.
type BatchItem struct {
	Kind      string          `json:"kind"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// Outcome is a store-backed analysis result.
type Outcome struct {
	Kind   string          `json:"kind"`
	Result json.RawMessage `json:"result"`
	Run    *Run            `json:"run,omitempty"`
}

type Run struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	CreatedAt  string `json:"created_at"`
	ResultJSON string `json:"result_json"`
}

type PriorityResult struct {
	TaskID  string   `json:"task_id"`
	Score   float64  `json:"score"`
	Bucket  string   `json:"bucket"`
	Reasons []string `json:"reasons"`
}

type FocusSelection struct {
	Selected bool            `json:"selected"`
	Task     *PriorityResult `json:"task,omitempty"`
	Reason   string          `json:"reason"`
}

type FocusOutcome struct {
	Selection  FocusSelection   `json:"selection"`
	Priorities []PriorityResult `json:"priorities"`
	Run        *Run             `json:"run,omitempty"`
}

// InsightsOptions are query options for store-backed analyses.
type InsightsOptions struct {
	FocusTaskID string
	SkipUnlocks bool
	Save        bool
	Now         *time.Time
}

func (o InsightsOptions) query() string {
	q := url.Values{}
	if o.FocusTaskID != "" {
		q.Set("focus_task_id", o.FocusTaskID)
	}
	if o.SkipUnlocks {
		q.Set("skip_unlocks", "true")
	}
	if o.Save {
		q.Set("save", "true")
	}
	if o.Now != nil {
		q.Set("now", o.Now.Format(time.RFC3339))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Analyze runs one analysis over a caller-supplied payload.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	var resp AnalyzeResult
	err := c.do(ctx, http.MethodPost, "analyze", req, &resp)
	return resp, err
}

// AnalyzeBatch runs several analyses. Per-request failures are reported in
// the items, not as an error.
func (c *Client) AnalyzeBatch(ctx context.Context, reqs []AnalyzeRequest) ([]BatchItem, error) {
	var resp struct {
		Responses []BatchItem `json:"responses"`
	}
	err := c.do(ctx, http.MethodPost, "analyze/batch", map[string]any{"requests": reqs}, &resp)
	return resp.Responses, err
}

// Insights runs kind over the server's stored tasks, journal and persona.
func (c *Client) Insights(ctx context.Context, kind string, opts InsightsOptions) (Outcome, error) {
	var resp Outcome
	err := c.do(ctx, http.MethodPost, "insights/"+url.PathEscape(kind)+opts.query(), nil, &resp)
	return resp, err
}

// Focus asks the server for today's focus task.
func (c *Client) Focus(ctx context.Context, opts InsightsOptions) (FocusOutcome, error) {
	opts.FocusTaskID = ""
	var resp FocusOutcome
	err := c.do(ctx, http.MethodGet, "focus"+opts.query(), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}
	tries := c.MaxTries
	if tries == 0 {
		tries = 3
	}
	var pacing backoff.BackOff = backoff.NewExponentialBackOff()
	if c.Backoff != nil {
		pacing = c.Backoff
	}
	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.BearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.BearerToken)
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			apiErr := newAPIError(resp.StatusCode, b)
			if resp.StatusCode >= 500 {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return b, nil
	}, backoff.WithBackOff(pacing), backoff.WithMaxTries(tries))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Unwrap()
		}
		return err
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
	}
	return e
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
