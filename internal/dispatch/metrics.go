package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricsProvider struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits *prometheus.CounterVec
}

func newMetricsProvider(registry *prometheus.Registry) *metricsProvider {
	if registry == nil {
		return nil
	}

	provider := &metricsProvider{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpulse_analysis_requests_total",
				Help: "Total number of analysis requests by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskpulse_analysis_duration_seconds",
				Help:    "Analyzer execution time by kind",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"kind"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskpulse_analysis_cache_hits_total",
				Help: "Total number of analysis requests served from the result cache",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		provider.requests,
		provider.duration,
		provider.cacheHits,
	)

	return provider
}

func (p *metricsProvider) observe(kind Kind, outcome string, elapsed time.Duration) {
	if p == nil {
		return
	}
	label := string(kind)
	if !kind.Known() {
		label = "unknown"
	}
	p.requests.WithLabelValues(label, outcome).Inc()
	p.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (p *metricsProvider) cacheHit(kind Kind) {
	if p != nil {
		p.cacheHits.WithLabelValues(string(kind)).Inc()
	}
}
