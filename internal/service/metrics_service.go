package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the selection engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	selectionOps    *prometheus.CounterVec
	reconcileRuns   prometheus.Counter
	reconcileRepair prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	selectionOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "selection_mutations_total",
		Help: "Selection mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	reconcileRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_runs_total",
		Help: "Completed credit reconciliation runs",
	})

	reconcileRepair := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_repaired_students_total",
		Help: "Students whose credit totals were repaired",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, selectionOps, reconcileRuns, reconcileRepair, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		selectionOps:    selectionOps,
		reconcileRuns:   reconcileRuns,
		reconcileRepair: reconcileRepair,
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveSelection records one selection mutation outcome.
func (m *MetricsService) ObserveSelection(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.selectionOps.WithLabelValues(operation, outcome).Inc()
}

// ObserveReconcile records one finished reconciliation run.
func (m *MetricsService) ObserveReconcile(studentsRepaired int) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.reconcileRepair.Add(float64(studentsRepaired))
}
