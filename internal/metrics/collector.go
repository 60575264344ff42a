// Package metrics exposes Prometheus instruments for the generation pipeline
// and the upload gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Collector groups the service's instruments. A nil *Collector is valid and
// records nothing.
type Collector struct {
	pipelineRuns  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	pollAttempts  prometheus.Histogram
	uploads       *prometheus.CounterVec
	downloadBytes prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewCollector registers all instruments on reg under namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of generation pipeline runs by outcome",
			},
			[]string{"outcome", "code"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage", "status"},
		),
		pollAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_poll_attempts",
				Help:      "Number of status queries issued per generation task",
				Buckets:   prometheus.LinearBuckets(1, 5, 12),
			},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of image uploads by result code",
			},
			[]string{"code"},
		),
		downloadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifact_download_bytes_total",
				Help:      "Bytes of generated video downloaded from the generation service",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObservePipeline counts one finished pipeline run.
func (c *Collector) ObservePipeline(outcome, code string) {
	if c == nil {
		return
	}
	c.pipelineRuns.WithLabelValues(outcome, code).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, took time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.stageDuration.WithLabelValues(stage, status).Observe(took.Seconds())
}

// ObservePollAttempts records the number of status queries for one task.
func (c *Collector) ObservePollAttempts(n int) {
	if c == nil {
		return
	}
	c.pollAttempts.Observe(float64(n))
}

// ObserveUpload counts one upload attempt by result code.
func (c *Collector) ObserveUpload(code string) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(code).Inc()
}

// ObserveDownload adds downloaded artifact bytes.
func (c *Collector) ObserveDownload(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.downloadBytes.Add(float64(n))
}

// ObserveHTTPRequest records one served HTTP request.
func (c *Collector) ObserveHTTPRequest(method, route string, status int, took time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
