package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics carries the API service's request and pipeline metrics
// on a private registry so tests can build as many as they like.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineRunsTotal      *prometheus.CounterVec
	pipelineDuration       *prometheus.HistogramVec
	retrievedChunks        *prometheus.HistogramVec
	retrievalDegradedTotal *prometheus.CounterVec
	tokensTotal            *prometheus.CounterVec
	feedbackTotal          *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiwihelp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiwihelp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kiwihelp",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pipelineRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiwihelp",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total completed pipeline runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiwihelp",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiwihelp",
			Subsystem: "pipeline",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	retrievalDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiwihelp",
			Subsystem: "pipeline",
			Name:      "retrieval_degraded_total",
			Help:      "Total retrievals that ran on a single search modality.",
		},
		[]string{"service", "modality"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiwihelp",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage per pipeline run by category.",
		},
		[]string{"service", "category"},
	)
	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiwihelp",
			Subsystem: "feedback",
			Name:      "received_total",
			Help:      "Total feedback events accepted by sentiment.",
		},
		[]string{"service", "sentiment"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineRunsTotal,
		pipelineDuration,
		retrievedChunks,
		retrievalDegradedTotal,
		tokensTotal,
		feedbackTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		pipelineRunsTotal:      pipelineRunsTotal,
		pipelineDuration:       pipelineDuration,
		retrievedChunks:        retrievedChunks,
		retrievalDegradedTotal: retrievalDegradedTotal,
		tokensTotal:            tokensTotal,
		feedbackTotal:          feedbackTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/dialogs/"):
		return "/v1/dialogs/{dialog_id}"
	default:
		return path
	}
}

// RecordPipelineRun records one finished run. Outcomes are "answered",
// "out_of_domain" and "error".
func (m *HTTPServerMetrics) RecordPipelineRun(service, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.pipelineRunsTotal.WithLabelValues(service, outcome).Inc()
	m.pipelineDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRetrievedChunks(service string, count int) {
	m.retrievedChunks.WithLabelValues(service).Observe(float64(count))
}

func (m *HTTPServerMetrics) RecordRetrievalDegraded(service, modality string) {
	if modality == "" {
		modality = "unknown"
	}
	m.retrievalDegradedTotal.WithLabelValues(service, modality).Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(service string, promptTokens, completionTokens, overheadTokens int) {
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(service, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(service, "completion").Add(float64(completionTokens))
	}
	if overheadTokens > 0 {
		m.tokensTotal.WithLabelValues(service, "overhead").Add(float64(overheadTokens))
	}
}

func (m *HTTPServerMetrics) RecordFeedback(service string, positive bool) {
	sentiment := "negative"
	if positive {
		sentiment = "positive"
	}
	m.feedbackTotal.WithLabelValues(service, sentiment).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
