package monitoring

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/docextract/internal/resilience"
)

const namespace = "docextract"

// Metrics holds the Prometheus collectors for extraction and HTTP traffic,
// plus running tallies the Collector reads for alerting.
type Metrics struct {
	registry *prometheus.Registry

	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	fallbacksTotal     *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	requestTotal       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestInFlight    prometheus.Gauge

	mu     sync.Mutex
	tally  Tally
	opened map[string]bool
}

// Tally is a cumulative count of extraction outcomes.
type Tally struct {
	Success  int `json:"success"`
	Fallback int `json:"fallback"`
	Manual   int `json:"manual"`
	Rejected int `json:"rejected"`
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		extractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "total",
				Help:      "Extractions by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		extractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "duration_seconds",
				Help:      "Extraction duration in seconds.",
				Buckets:   []float64{0.05, 0.25, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "outcome"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "fallbacks_total",
				Help:      "Provider failures recovered with the manual template, by reason.",
			},
			[]string{"provider", "reason"},
		),
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "rejections_total",
				Help:      "Uploads rejected by the file validator.",
			},
			[]string{"reason"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "circuit_state",
				Help:      "Circuit breaker state per provider (0 closed, 1 open, 2 half-open).",
			},
			[]string{"provider"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Number of in-flight HTTP requests.",
			},
		),
		opened: make(map[string]bool),
	}

	registry.MustRegister(
		m.extractionsTotal,
		m.extractionDuration,
		m.fallbacksTotal,
		m.rejectionsTotal,
		m.breakerState,
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordExtraction counts one finished extraction.
func (m *Metrics) RecordExtraction(provider, outcome string, elapsed time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	m.extractionsTotal.WithLabelValues(provider, outcome).Inc()
	m.extractionDuration.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	switch outcome {
	case "success":
		m.tally.Success++
	case "fallback", "failed":
		m.tally.Fallback++
	case "manual":
		m.tally.Manual++
	}
}

// RecordFallback counts a provider failure by reason.
func (m *Metrics) RecordFallback(provider, reason string) {
	m.fallbacksTotal.WithLabelValues(provider, reason).Inc()
}

// RecordRejection counts an upload rejected before extraction.
func (m *Metrics) RecordRejection(reason string) {
	m.rejectionsTotal.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.tally.Rejected++
	m.mu.Unlock()
}

// BreakerStateChanged tracks circuit transitions. Its signature matches
// resilience.Config.OnStateChange.
func (m *Metrics) BreakerStateChanged(name string, _, to resilience.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))

	m.mu.Lock()
	defer m.mu.Unlock()
	if to == resilience.Open {
		m.opened[name] = true
	}
}

// Tally returns the cumulative outcome counts.
func (m *Metrics) Tally() Tally {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tally
}

// drainOpened returns and clears the providers whose circuit opened since
// the last call.
func (m *Metrics) drainOpened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for name := range m.opened {
		out = append(out, name)
	}
	m.opened = make(map[string]bool)
	return out
}

// Middleware records request counts, durations and in-flight requests.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(rec, r)

		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses session ids so label cardinality stays bounded.
func normalizePath(path string) string {
	const prefix = "/api/sessions/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "{id}" + rest[i:]
	}
	return prefix + "{id}"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
