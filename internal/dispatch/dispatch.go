// Package dispatch routes typed analysis requests to the analyzers. Each
// request runs synchronously; many requests may run concurrently because the
// analyzers share no state.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"taskpulse/internal/analysis"
)

type Kind string

const (
	KindAnalyzePatterns   Kind = "analyze_patterns"
	KindGenerateInsights  Kind = "generate_insights"
	KindCategorizeBatch   Kind = "categorize_batch"
	KindComputePriorities Kind = "compute_priorities"
	KindDetectBurnout     Kind = "detect_burnout"
	KindDominoEffect      Kind = "domino_effect"
	KindForecastLoad      Kind = "forecast_load"
)

// Kinds lists every supported request kind.
var Kinds = []Kind{
	KindAnalyzePatterns,
	KindGenerateInsights,
	KindCategorizeBatch,
	KindComputePriorities,
	KindDetectBurnout,
	KindDominoEffect,
	KindForecastLoad,
}

func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

type Request struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	// Now pins the clock for the request. When nil the dispatcher's clock is used.
	Now *time.Time `json:"now,omitempty" format:"date-time"`
}

type Response struct {
	Kind      Kind   `json:"kind"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode Code   `json:"error_code,omitempty"`
}

// Err returns the typed error carried by r, or nil.
func (r Response) Err() error {
	if r.ErrorCode == "" {
		return nil
	}
	return &Error{Code: r.ErrorCode, Kind: r.Kind, Err: fmt.Errorf("%s", r.Error)}
}

type Options struct {
	Location   *time.Location
	Workers    int
	CacheSize  int
	DominoPool int
	Registry   *prometheus.Registry
	Logger     *slog.Logger
	Now        func() time.Time
}

type handler func(d *Dispatcher, payload json.RawMessage, now time.Time) (any, error)

type Dispatcher struct {
	loc        *time.Location
	workers    int
	dominoPool int
	cache      *lru.Cache[string, any]
	metrics    *metricsProvider
	logger     *slog.Logger
	now        func() time.Time
	handlers   map[Kind]handler
}

func New(opts Options) (*Dispatcher, error) {
	d := &Dispatcher{
		loc:        opts.Location,
		workers:    opts.Workers,
		dominoPool: opts.DominoPool,
		metrics:    newMetricsProvider(opts.Registry),
		logger:     opts.Logger,
		now:        opts.Now,
		handlers:   defaultHandlers(),
	}
	if d.loc == nil {
		d.loc = time.Local
	}
	if d.workers <= 0 {
		d.workers = 4
	}
	if d.dominoPool <= 0 {
		d.dominoPool = analysis.DefaultDominoPool
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, any](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
		d.cache = cache
	}
	return d, nil
}

// Location is the zone used for calendar and work-hour decisions.
func (d *Dispatcher) Location() *time.Location { return d.loc }

// Dispatch runs req and always returns a response; failures are reported in
// the response rather than returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	result, err := d.Execute(ctx, req)
	if err != nil {
		resp := Response{Kind: req.Kind, Error: err.Error(), ErrorCode: CodeAnalyzerFailure}
		if de, ok := err.(*Error); ok {
			resp.ErrorCode = de.Code
		}
		return resp
	}
	return Response{Kind: req.Kind, Result: result}
}

// Execute runs req and returns its result. Errors are always *Error.
// Cached results are shared between callers and must not be modified.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (any, error) {
	start := time.Now()
	h, ok := d.handlers[req.Kind]
	if !ok {
		d.metrics.observe(req.Kind, string(CodeUnknownOperation), time.Since(start))
		return nil, &Error{Code: CodeUnknownOperation, Kind: req.Kind, Err: fmt.Errorf("kind %q is not supported", req.Kind)}
	}

	now := d.now()
	if req.Now != nil {
		now = *req.Now
	}
	now = now.In(d.loc)

	key := cacheKey(req.Kind, req.Payload, now)
	if d.cache != nil {
		if v, ok := d.cache.Get(key); ok {
			d.metrics.cacheHit(req.Kind)
			d.metrics.observe(req.Kind, "ok", time.Since(start))
			return v, nil
		}
	}

	result, err := d.run(ctx, req.Kind, h, req.Payload, now)
	if err != nil {
		code := CodeAnalyzerFailure
		if de, ok := err.(*Error); ok {
			code = de.Code
		}
		d.metrics.observe(req.Kind, string(code), time.Since(start))
		return nil, err
	}
	if d.cache != nil {
		d.cache.Add(key, result)
	}
	d.metrics.observe(req.Kind, "ok", time.Since(start))
	return result, nil
}

// DispatchBatch runs reqs on a bounded worker pool. Responses are returned in
// request order; execution order is unspecified.
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []Request) []Response {
	out := make([]Response, len(reqs))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = d.Dispatch(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Dispatcher) run(ctx context.Context, kind Kind, h handler, payload json.RawMessage, now time.Time) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "panic in analyzer",
				"kind", kind,
				"error", r,
				"stack", string(debug.Stack()),
			)
			result = nil
			err = &Error{Code: CodeAnalyzerFailure, Kind: kind, Err: fmt.Errorf("%v", r)}
		}
	}()
	result, err = h(d, payload, now)
	if err != nil {
		if _, ok := err.(*Error); !ok {
			err = &Error{Code: CodeAnalyzerFailure, Kind: kind, Err: err}
		}
		return nil, err
	}
	return result, nil
}

func cacheKey(kind Kind, payload json.RawMessage, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(now.Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write([]byte(analysis.LexiconVersion))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func defaultHandlers() map[Kind]handler {
	return map[Kind]handler{
		KindAnalyzePatterns:   handlePatterns,
		KindGenerateInsights:  handleInsights,
		KindCategorizeBatch:   handleCategorize,
		KindComputePriorities: handlePriorities,
		KindDetectBurnout:     handleBurnout,
		KindDominoEffect:      handleDomino,
		KindForecastLoad:      handleForecast,
	}
}
