// Package obs wires ocvd's ambient logging and metrics: a JSON slog handler
// and a private Prometheus registry exposing HTTP and domain
// counters/histograms.
package obs

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupLogging configures the standard library logger to emit structured
// JSON and returns the slog.Logger for the rest of the service to log
// through.
func SetupLogging(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	base := slog.New(handler).With(attrsToArgs(attrs)...)
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return args
}

// Metrics bundles ocvd's HTTP and domain Prometheus instruments on a
// private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	electionRounds  prometheus.Histogram
	archiveDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers ocvd's metric instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocv",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by ocvd.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ocv",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocv",
			Name:      "cache_hits_total",
			Help:      "Result cache hits by cache name.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocv",
			Name:      "cache_misses_total",
			Help:      "Result cache misses by cache name.",
		}, []string{"cache"}),
		electionRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ocv",
			Name:      "election_rounds_total",
			Help:      "Number of ranked-choice rounds run per election spot.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),
		archiveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ocv",
			Name:      "archive_query_duration_seconds",
			Help:      "Duration of archive database queries in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
	}

	registry.MustRegister(
		m.requests, m.durations, m.cacheHits, m.cacheMisses,
		m.electionRounds, m.archiveDuration,
	)
	return m
}

// Handler returns the Prometheus exposition HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCacheHit records a cache hit for the named cache.
func (m *Metrics) ObserveCacheHit(cache string) { m.cacheHits.WithLabelValues(cache).Inc() }

// ObserveCacheMiss records a cache miss for the named cache.
func (m *Metrics) ObserveCacheMiss(cache string) { m.cacheMisses.WithLabelValues(cache).Inc() }

// ObserveElectionRounds records the number of rounds one election spot took.
func (m *Metrics) ObserveElectionRounds(rounds int) {
	m.electionRounds.Observe(float64(rounds))
}

// ObserveArchiveQuery records the wall-clock duration of an archive query.
func (m *Metrics) ObserveArchiveQuery(query string, d time.Duration) {
	m.archiveDuration.WithLabelValues(query).Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware records request count and latency for route. It wraps the
// handler only; it does not emit distributed tracing spans.
func (m *Metrics) HTTPMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			m.requests.WithLabelValues(route, r.Method, http.StatusText(recorder.status)).Inc()
			m.durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
