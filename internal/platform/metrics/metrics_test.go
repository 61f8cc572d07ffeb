package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveBackendCall("users.list", "success", 0.05)
	m.ObserveBackendCall("users.list", "success", 0.02)
	m.ObserveBackendCall("auth.login", "unauthorized", 0.01)
	m.IncrementForcedLogouts()
	m.IncrementGuardDecision("role_mismatch")
	m.IncrementLogins("success")
	m.IncrementUserAction("toggle_status", "success")
	m.SetBreakerOpen(true)

	assert.InDelta(t, 2, testutil.ToFloat64(m.BackendRequests.WithLabelValues("users.list", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendRequests.WithLabelValues("auth.login", "unauthorized")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ForcedLogouts), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("role_mismatch")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Logins.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UserActions.WithLabelValues("toggle_status", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BreakerOpen), 0)
}

func TestNewIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
