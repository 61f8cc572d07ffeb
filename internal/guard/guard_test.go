package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"userconsole/internal/models"
	"userconsole/internal/platform/metrics"
	"userconsole/internal/session"
)

func adminSession() *session.Session {
	return &session.Session{Token: "t", User: &models.User{ID: 1, Username: "admin", Role: models.RoleAdmin}}
}

func userSession() *session.Session {
	return &session.Session{Token: "t", User: &models.User{ID: 2, Username: "user1", Role: models.RoleUser}}
}

func TestDecide(t *testing.T) {
	roles := []models.Role{"", models.RoleUser, models.RoleAdmin}

	t.Run("no token always goes to login", func(t *testing.T) {
		for _, role := range roles {
			assert.Equal(t, LoginPath, Decide(nil, role).Redirect(), "role %q", role)
			assert.Equal(t, LoginPath, Decide(&session.Session{User: &models.User{ID: 1, Role: models.RoleAdmin}}, role).Redirect(), "role %q", role)
		}
	})

	t.Run("missing identity is corrupt", func(t *testing.T) {
		for _, role := range roles {
			assert.Equal(t, CorruptSession, Decide(&session.Session{Token: "t", User: &models.User{Username: "ghost"}}, role))
			assert.Equal(t, CorruptSession, Decide(&session.Session{Token: "t"}, role))
		}
	})

	t.Run("USER on ADMIN route goes to default view, never login", func(t *testing.T) {
		outcome := Decide(userSession(), models.RoleAdmin)
		assert.Equal(t, RoleMismatch, outcome)
		assert.Equal(t, DefaultPath, outcome.Redirect())
	})

	t.Run("allow", func(t *testing.T) {
		assert.Equal(t, Allow, Decide(adminSession(), models.RoleAdmin))
		assert.Equal(t, Allow, Decide(userSession(), ""))
		assert.Equal(t, Allow, Decide(adminSession(), ""))
		assert.Empty(t, Allow.Redirect())
	})

	t.Run("identity check runs before role check", func(t *testing.T) {
		sess := &session.Session{Token: "t", User: &models.User{Role: models.RoleUser}}
		assert.Equal(t, CorruptSession, Decide(sess, models.RoleAdmin))
	})
}

type GuardSuite struct {
	suite.Suite
	backend *session.MemoryBackend
	store   *session.Store
	metrics *metrics.Metrics
	guard   *Guard
	ctx     context.Context
}

func (s *GuardSuite) SetupTest() {
	s.backend = session.NewMemoryBackend()
	s.store = session.NewStore(s.backend, "g")
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.guard = New(s.metrics, nil)
	s.ctx = context.Background()
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) TestEvaluateClearsCorruptSession() {
	s.Require().NoError(s.store.Set(s.ctx, session.Session{Token: "t", User: &models.User{Username: "ghost"}}))

	outcome, sess, err := s.guard.Evaluate(s.ctx, s.store, "")
	s.Require().NoError(err)
	s.Equal(CorruptSession, outcome)
	s.Nil(sess)
	s.Zero(s.backend.Len())
	s.InDelta(1, testutil.ToFloat64(s.metrics.GuardDecisions.WithLabelValues("corrupt_session")), 0)
}

func (s *GuardSuite) TestEvaluateRoleMismatchKeepsSession() {
	s.Require().NoError(s.store.Set(s.ctx, *userSession()))

	outcome, _, err := s.guard.Evaluate(s.ctx, s.store, models.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(RoleMismatch, outcome)

	_, err = s.store.Get(s.ctx)
	s.NoError(err)
}

func (s *GuardSuite) TestEvaluateAllow() {
	s.Require().NoError(s.store.Set(s.ctx, *adminSession()))

	outcome, sess, err := s.guard.Evaluate(s.ctx, s.store, models.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(Allow, outcome)
	s.Equal("admin", sess.User.Username)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context) (*session.Session, error) {
	return nil, errors.New("redis down")
}
func (brokenStore) Clear(context.Context) error { return nil }

func (s *GuardSuite) TestEvaluateStoreFailure() {
	_, _, err := s.guard.Evaluate(s.ctx, brokenStore{}, "")
	s.Error(err)
}

func (s *GuardSuite) TestRequire() {
	var seen *session.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	resolver := func(*http.Request) Store { return s.store }
	serve := func(required models.Role) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		s.guard.Require(resolver, required)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
		return w
	}

	s.T().Run("anonymous redirected to login", func(t *testing.T) {
		w := serve(models.RoleAdmin)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, LoginPath, w.Header().Get("Location"))
	})

	s.T().Run("user redirected to dashboard", func(t *testing.T) {
		require.NoError(t, s.store.Set(s.ctx, *userSession()))
		w := serve(models.RoleAdmin)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, DefaultPath, w.Header().Get("Location"))
	})

	s.T().Run("admin admitted with session in context", func(t *testing.T) {
		require.NoError(t, s.store.Set(s.ctx, *adminSession()))
		w := serve(models.RoleAdmin)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(1), seen.User.ID)
	})

	s.T().Run("store failure is a 503", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.guard.Require(func(*http.Request) Store { return brokenStore{} }, "")(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
