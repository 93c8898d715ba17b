package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated        prometheus.Counter
	ZonesCreated        prometheus.Counter
	CentersCreated      prometheus.Counter
	RecordsCreated      prometheus.Counter
	RecordDecisions     *prometheus.CounterVec
	AuthFailures        prometheus.Counter
	DecideDuration      prometheus.Histogram
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every metric on reg. Pass prometheus.DefaultRegisterer in
// main and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "recensement_users_created_total",
			Help: "Total number of users created",
		}),
		ZonesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "recensement_zones_created_total",
			Help: "Total number of zones created",
		}),
		CentersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "recensement_centers_created_total",
			Help: "Total number of centers created",
		}),
		RecordsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "recensement_records_created_total",
			Help: "Total number of records submitted",
		}),
		RecordDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recensement_record_decisions_total",
			Help: "Record decisions applied, by decision",
		}, []string{"decision"}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "recensement_auth_failures_total",
			Help: "Failed authentication attempts",
		}),
		DecideDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recensement_decide_record_duration_seconds",
			Help:    "Duration of DecideRecord operations",
			Buckets: durationBuckets,
		}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recensement_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern, method and status",
			Buckets: durationBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementZonesCreated() {
	m.ZonesCreated.Inc()
}

func (m *Metrics) IncrementCentersCreated() {
	m.CentersCreated.Inc()
}

func (m *Metrics) IncrementRecordsCreated() {
	m.RecordsCreated.Inc()
}

// IncrementRecordDecision counts one applied decision ("approve" or "reject").
func (m *Metrics) IncrementRecordDecision(decision string) {
	m.RecordDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

// ObserveDecide records the duration of a DecideRecord operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method, status string, start time.Time) {
	m.HTTPRequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
}
