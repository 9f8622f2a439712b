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

// HTTPServerMetrics collects API transport metrics plus the agent pipeline
// telemetry. It implements the pipeline observer hook, so the usecase layer
// reports runs without importing this package.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	agentRunsTotal          *prometheus.CounterVec
	agentRetrievedChunks    *prometheus.HistogramVec
	agentRelevantChunks     *prometheus.HistogramVec
	agentInsufficientTotal  *prometheus.CounterVec
	agentGenerationFailures *prometheus.CounterVec
	agentRunDuration        *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mevzuat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mevzuat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mevzuat",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	agentRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mevzuat",
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Total completed agent runs by query type and evidence outcome.",
		},
		[]string{"service", "query_type", "outcome"},
	)
	agentRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mevzuat",
			Subsystem: "agent",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 12, 20},
		},
		[]string{"service", "query_type"},
	)
	agentRelevantChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mevzuat",
			Subsystem: "agent",
			Name:      "relevant_chunks",
			Help:      "Distribution of graded-relevant chunks per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 12, 20},
		},
		[]string{"service", "query_type"},
	)
	agentInsufficientTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mevzuat",
			Subsystem: "agent",
			Name:      "insufficient_evidence_total",
			Help:      "Total runs ending in the insufficient-evidence answer.",
		},
		[]string{"service", "query_type"},
	)
	agentGenerationFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mevzuat",
			Subsystem: "agent",
			Name:      "generation_failures_total",
			Help:      "Total runs where answer generation failed.",
		},
		[]string{"service", "query_type"},
	)
	agentRunDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mevzuat",
			Subsystem: "agent",
			Name:      "run_duration_seconds",
			Help:      "Agent run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "query_type"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		agentRunsTotal,
		agentRetrievedChunks,
		agentRelevantChunks,
		agentInsufficientTotal,
		agentGenerationFailures,
		agentRunDuration,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		service:                 service,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		agentRunsTotal:          agentRunsTotal,
		agentRetrievedChunks:    agentRetrievedChunks,
		agentRelevantChunks:     agentRelevantChunks,
		agentInsufficientTotal:  agentInsufficientTotal,
		agentGenerationFailures: agentGenerationFailures,
		agentRunDuration:        agentRunDuration,
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
	case strings.HasPrefix(path, "/v1/reg-docs/"):
		return "/v1/reg-docs/{id}"
	default:
		return path
	}
}

// ObservePipelineRun records one completed agent run.
func (m *HTTPServerMetrics) ObservePipelineRun(queryType string, retrieved, relevant int, sufficient, generationFailed bool, duration time.Duration) {
	if queryType == "" {
		queryType = "unknown"
	}

	outcome := "sufficient"
	if !sufficient {
		outcome = "insufficient"
	}
	m.agentRunsTotal.WithLabelValues(m.service, queryType, outcome).Inc()
	m.agentRetrievedChunks.WithLabelValues(m.service, queryType).Observe(float64(retrieved))
	m.agentRelevantChunks.WithLabelValues(m.service, queryType).Observe(float64(relevant))
	m.agentRunDuration.WithLabelValues(m.service, queryType).Observe(duration.Seconds())

	if !sufficient {
		m.agentInsufficientTotal.WithLabelValues(m.service, queryType).Inc()
	}
	if generationFailed {
		m.agentGenerationFailures.WithLabelValues(m.service, queryType).Inc()
	}
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
