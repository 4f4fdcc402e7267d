package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civicgov/grievance-service/internal/config"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	ErrorsTotal            *prometheus.CounterVec
	GrievancesSubmitted    *prometheus.CounterVec
	ClassificationsTotal   *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	StatusTransitions      *prometheus.CounterVec
	RateLimitRejections    prometheus.Counter
}

// NewMetrics creates and registers all collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_requests_total",
			Help: "HTTP requests by path, method and status code.",
		}, []string{"path", "method", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grievance_http_request_duration_seconds",
			Help:    "HTTP request latency by path and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_errors_total",
			Help: "Request errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		GrievancesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_submissions_total",
			Help: "Accepted grievance submissions by routed department.",
		}, []string{"department"}),
		ClassificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_classifications_total",
			Help: "Classification attempts by outcome (classified, fallback, retry_ok, retry_failed).",
		}, []string{"outcome"}),
		ClassificationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "grievance_classification_duration_seconds",
			Help:    "Latency of external classification calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_status_transitions_total",
			Help: "Admin status transitions by target status.",
		}, []string{"status"}),
		RateLimitRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grievance_rate_limit_rejections_total",
			Help: "Submissions rejected by the rate limiter.",
		}),
	}
}

// RecordRequest increments request counters and observes latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(path, method, code).Inc()
}

// MetricsServer exposes /metrics on its own listener.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer builds the sidecar listener; returns nil when disabled.
func NewMetricsServer(cfg config.MetricsConfig, logger *zap.Logger) *MetricsServer {
	if !cfg.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &MetricsServer{
		server: &http.Server{Addr: cfg.Addr, Handler: mux},
		logger: logger,
	}
}

// Start serves until the listener closes.
func (s *MetricsServer) Start() {
	if s == nil {
		return
	}
	go func() {
		s.logger.Info("metrics listener started", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the listener.
func (s *MetricsServer) Shutdown(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.server.Shutdown(ctx)
}
