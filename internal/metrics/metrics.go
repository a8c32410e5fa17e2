package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	syncOperationsTotal *prometheus.CounterVec
	remoteCallDuration  *prometheus.HistogramVec
	identityTotal       *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	divergenceTotal     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.syncOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sprint_sync_operations_total",
		Help: "Task sync operations by operation and result.",
	}, []string{"operation", "result"})

	m.remoteCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sprint_remote_call_duration_seconds",
		Help:    "Duration of outbound calls to the calendar and identity services.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"service", "operation", "result"})

	m.identityTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sprint_identity_resolutions_total",
		Help: "Identity resolutions by result.",
	}, []string{"result"})

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sprint_http_requests_total",
		Help: "HTTP requests served by method, route and status.",
	}, []string{"method", "route", "status"})

	m.divergenceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sprint_sync_divergence_total",
		Help: "Remote mutations that succeeded while the matching local write failed.",
	}, []string{"operation"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.syncOperationsTotal,
		m.remoteCallDuration,
		m.identityTotal,
		m.httpRequestsTotal,
		m.divergenceTotal,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordSyncOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.syncOperationsTotal.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) RecordRemoteCall(service, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.remoteCallDuration.WithLabelValues(service, operation, result(err)).Observe(time.Since(started).Seconds())
}

// RecordIdentity counts an identity resolution. outcome is ResultSuccess or a
// short failure kind such as "unauthenticated".
func (m *Metrics) RecordIdentity(outcome string) {
	if m == nil {
		return
	}
	m.identityTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) RecordDivergence(operation string) {
	if m == nil {
		return
	}
	m.divergenceTotal.WithLabelValues(operation).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
