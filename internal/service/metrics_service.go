package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gobreaker "github.com/sony/gobreaker/v2"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway and
// its backend client.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	submissions     *prometheus.CounterVec
	galleryFallback prometheus.Counter
	previewAttempts prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ndvi_backend_request_duration_seconds",
		Help:    "Duration of calls to the NDVI backend",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 180},
	}, []string{"operation", "outcome"})

	backendTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ndvi_backend_requests_total",
		Help: "Total calls to the NDVI backend by outcome",
	}, []string{"operation", "outcome"})

	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ndvi_backend_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
	}, []string{"breaker"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ndvi_submissions_total",
		Help: "Analysis submissions by final status",
	}, []string{"status"})

	galleryFallback := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ndvi_gallery_fallback_total",
		Help: "Gallery requests answered with an empty list because the backend failed",
	})

	previewAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ndvi_preview_poll_attempts",
		Help:    "Probes spent waiting for a preview image",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, backendDuration, backendTotal, breakerState, submissions, galleryFallback, previewAttempts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		backendDuration: backendDuration,
		backendTotal:    backendTotal,
		breakerState:    breakerState,
		submissions:     submissions,
		galleryFallback: galleryFallback,
		previewAttempts: previewAttempts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records gateway request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBackendCall records one NDVI backend round trip.
func (m *MetricsService) ObserveBackendCall(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
	m.backendTotal.WithLabelValues(operation, outcome).Inc()
}

// SetBreakerState mirrors circuit breaker transitions.
func (m *MetricsService) SetBreakerState(name string, state gobreaker.State) {
	if m == nil {
		return
	}
	var value float64
	switch state {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	m.breakerState.WithLabelValues(name).Set(value)
}

// RecordSubmission counts a finished submission by status.
func (m *MetricsService) RecordSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}

// RecordGalleryFallback counts a gallery answered with the empty fallback.
func (m *MetricsService) RecordGalleryFallback() {
	if m == nil {
		return
	}
	m.galleryFallback.Inc()
}

// ObservePreviewAttempts records how many probes a preview wait used.
func (m *MetricsService) ObservePreviewAttempts(attempts int) {
	if m == nil {
		return
	}
	m.previewAttempts.Observe(float64(attempts))
}
