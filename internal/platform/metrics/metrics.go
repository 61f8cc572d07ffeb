package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	ForcedLogouts   prometheus.Counter
	GuardDecisions  *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	Logouts         prometheus.Counter
	ProfileSaves    *prometheus.CounterVec
	UserActions     *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec
	BreakerOpen     prometheus.Gauge
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_backend_requests_total",
			Help: "Backend API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_backend_request_duration_seconds",
			Help:    "Backend API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		// - 401/403 seen from the backend
		ForcedLogouts: f.NewCounter(prometheus.CounterOpts{
			Name: "console_forced_logouts_total",
			Help: "Sessions cleared because the backend rejected the token",
		}),
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_guard_decisions_total",
			Help: "Access guard outcomes",
		}, []string{"decision"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "console_logouts_total",
			Help: "User-initiated logouts",
		}),
		ProfileSaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_profile_saves_total",
			Help: "Profile save submissions by result",
		}, []string{"result"}),
		UserActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_admin_user_actions_total",
			Help: "Admin actions on user accounts",
		}, []string{"action", "result"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_endpoint_latency_seconds",
			Help:    "Latency of console endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_backend_breaker_open",
			Help: "1 while backend calls are failing fast",
		}),
	}
}

func (m *Metrics) ObserveBackendCall(operation, outcome string, durationSeconds float64) {
	m.BackendRequests.WithLabelValues(operation, outcome).Inc()
	m.BackendLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) IncrementForcedLogouts() {
	m.ForcedLogouts.Inc()
}

func (m *Metrics) IncrementGuardDecision(decision string) {
	m.GuardDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementLogins(result string) {
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementLogouts() {
	m.Logouts.Inc()
}

func (m *Metrics) IncrementProfileSaves(result string) {
	m.ProfileSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementUserAction(action, result string) {
	m.UserActions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
