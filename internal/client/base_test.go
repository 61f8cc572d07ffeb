package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"userconsole/internal/models"
	"userconsole/internal/platform/metrics"
	"userconsole/internal/session"
	"userconsole/pkg/platform/circuit"
)

type recordingNavigator struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNavigator) ToLogin(_ context.Context, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNavigator) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reasons...)
}

type ClientSuite struct {
	suite.Suite
	server   *httptest.Server
	mu       sync.Mutex
	handler  http.HandlerFunc
	lastAuth string
	store    *session.Store
	nav      *recordingNavigator
	metrics  *metrics.Metrics
	client   *Client
	ctx      context.Context
}

func (s *ClientSuite) SetupTest() {
	s.handler = nil
	s.lastAuth = ""
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastAuth = r.Header.Get("Authorization")
		if s.handler != nil {
			s.handler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	s.store = session.NewStore(session.NewMemoryBackend(), "test")
	s.nav = &recordingNavigator{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.client = New(Config{BaseURL: s.server.URL + "/api", HTTPClient: s.server.Client(), Metrics: s.metrics}, s.store, s.nav)
	s.ctx = context.Background()
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *ClientSuite) auth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

func (s *ClientSuite) login() {
	s.Require().NoError(s.store.Set(s.ctx, session.Session{
		Token: "tok-123",
		User:  &models.User{ID: 1, Username: "admin", Role: models.RoleAdmin},
	}))
}

func (s *ClientSuite) TestBearerToken() {
	s.T().Run("absent without session", func(t *testing.T) {
		_, err := s.client.Users.List(s.ctx)
		require.NoError(t, err)
		assert.Empty(t, s.auth())
	})

	s.T().Run("attached with session", func(t *testing.T) {
		s.login()
		_, err := s.client.Users.List(s.ctx)
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", s.auth())
	})
}

func (s *ClientSuite) TestPaths() {
	var got []string
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"userId": 2, "username": "u", "token": "t"}})
	}
	s.login()

	_, _ = s.client.Auth.Register(s.ctx, RegisterRequest{Username: "new"})
	_, _ = s.client.Auth.Login(s.ctx, LoginRequest{Username: "u", Password: "p"})
	_, _ = s.client.Users.Me(s.ctx)
	_, _ = s.client.Users.UpdateProfile(s.ctx, ProfileUpdate{FullName: "x"})
	_, _ = s.client.Users.Get(s.ctx, 2)
	_, _ = s.client.Users.Update(s.ctx, 2, UserUpdate{Email: "e@x.io"})
	_, _ = s.client.Users.Delete(s.ctx, 2)
	_, _ = s.client.Users.ToggleStatus(s.ctx, 2)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Equal([]string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/users/me",
		"PUT /api/users/profile",
		"GET /api/v1/users/2",
		"PUT /api/v1/users/2",
		"DELETE /api/v1/users/2",
		"PATCH /api/v1/users/2/toggle-status",
	}, got)
}

func (s *ClientSuite) TestLoginDecodesUser() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		s.NoError(json.NewDecoder(r.Body).Decode(&req))
		s.Equal("admin", req.Username)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Login successful",
			"data": map[string]any{
				"token": "jwt", "tokenType": "Bearer", "expiresIn": 86400,
				"user": map[string]any{"userId": 1, "username": "admin", "roles": []string{"ROLE_ADMIN"}},
			},
		})
	}

	result, err := s.client.Auth.Login(s.ctx, LoginRequest{Username: "admin", Password: "admin123"})
	s.Require().NoError(err)
	s.Equal("jwt", result.Token)
	s.Equal(models.RoleAdmin, result.User.Role)
	s.Equal(int64(1), result.User.ID)

	_, err = s.store.Get(s.ctx)
	s.ErrorIs(err, session.ErrNoSession, "login must not write the session itself")
}

func (s *ClientSuite) TestLoginWithoutToken() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user": map[string]any{"userId": 1}}})
	}
	_, err := s.client.Auth.Login(s.ctx, LoginRequest{Username: "a", Password: "b"})
	s.Equal(KindTransport, KindOf(err))
}

func (s *ClientSuite) TestBusinessErrors() {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		message string
		code    string
	}{
		{
			name:    "success false on 200",
			status:  http.StatusOK,
			body:    map[string]any{"success": false, "message": "Username already exists"},
			message: "Username already exists",
		},
		{
			name:    "structured 400 prefers message",
			status:  http.StatusBadRequest,
			body:    map[string]any{"success": false, "error": "VALIDATION_ERROR", "message": "email: must be valid"},
			message: "email: must be valid",
			code:    "VALIDATION_ERROR",
		},
		{
			name:    "falls back to error",
			status:  http.StatusConflict,
			body:    map[string]any{"success": false, "error": "Email already in use"},
			message: "Email already in use",
		},
		{
			name:    "falls back to generic",
			status:  http.StatusBadRequest,
			body:    map[string]any{"success": false},
			message: GenericMessage,
		},
		{
			name:    "structured 500",
			status:  http.StatusInternalServerError,
			body:    map[string]any{"success": false, "error": "INTERNAL_ERROR", "message": "An unexpected error occurred"},
			message: "An unexpected error occurred",
			code:    "INTERNAL_ERROR",
		},
	}
	for _, tt := range tests {
		s.T().Run(tt.name, func(t *testing.T) {
			s.handler = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}
			_, err := s.client.Auth.Register(s.ctx, RegisterRequest{Username: "x"})

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, KindBusiness, ce.Kind)
			assert.Equal(t, tt.message, ce.Message)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.message, Message(err))
			assert.Empty(t, s.nav.calls())
		})
	}
}

func (s *ClientSuite) TestTransportErrors() {
	s.T().Run("html error page", func(t *testing.T) {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		}
		_, err := s.client.Users.List(s.ctx)
		assert.Equal(t, KindTransport, KindOf(err))
		assert.Equal(t, GenericMessage, Message(err))
	})

	s.T().Run("undecodable data", func(t *testing.T) {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": "not-a-list"})
		}
		_, err := s.client.Users.List(s.ctx)
		assert.Equal(t, KindTransport, KindOf(err))
	})

	s.T().Run("connection refused", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		c := New(Config{BaseURL: dead.URL}, s.store, s.nav)

		_, err := c.Users.List(s.ctx)
		assert.Equal(t, KindTransport, KindOf(err))
		assert.Equal(t, GenericMessage, Message(err))
		assert.Empty(t, s.nav.calls())
	})
}

func (s *ClientSuite) TestForcedLogoutMessage() {
	s.T().Run("login rejection carries backend message", func(t *testing.T) {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false, "error": "AUTHENTICATION_FAILED", "message": "Invalid username or password",
			})
		}
		_, err := s.client.Auth.Login(s.ctx, LoginRequest{Username: "admin", Password: "nope"})

		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, "Invalid username or password", Message(err))
		assert.Equal(t, []string{"Invalid username or password"}, s.nav.calls())
	})

	s.T().Run("empty 403 uses session expired text", func(t *testing.T) {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}
		_, err := s.client.Users.List(s.ctx)

		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, SessionExpiredMessage, Message(err))
	})
}

// Any 401/403, from any endpoint, leaves the session absent and navigates to
// login exactly once.
func (s *ClientSuite) TestUnauthorizedFromAnyEndpoint() {
	calls := map[string]func() error{
		"register":      func() error { _, err := s.client.Auth.Register(s.ctx, RegisterRequest{}); return err },
		"login":         func() error { _, err := s.client.Auth.Login(s.ctx, LoginRequest{}); return err },
		"me":            func() error { _, err := s.client.Users.Me(s.ctx); return err },
		"updateProfile": func() error { _, err := s.client.Users.UpdateProfile(s.ctx, ProfileUpdate{}); return err },
		"list":          func() error { _, err := s.client.Users.List(s.ctx); return err },
		"get":           func() error { _, err := s.client.Users.Get(s.ctx, 1); return err },
		"update":        func() error { _, err := s.client.Users.Update(s.ctx, 1, UserUpdate{}); return err },
		"delete":        func() error { _, err := s.client.Users.Delete(s.ctx, 1); return err },
		"toggle":        func() error { _, err := s.client.Users.ToggleStatus(s.ctx, 1); return err },
	}

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		for name, call := range calls {
			s.T().Run(name, func(t *testing.T) {
				s.nav.reasons = nil
				s.login()
				s.handler = func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, status, map[string]any{"success": false})
				}

				err := call()

				require.ErrorIs(t, err, ErrUnauthorized)
				assert.Equal(t, KindUnauthorized, KindOf(err))
				_, getErr := s.store.Get(s.ctx)
				assert.ErrorIs(t, getErr, session.ErrNoSession)
				assert.Len(t, s.nav.calls(), 1)
			})
		}
	}
}

func (s *ClientSuite) TestRejectionWithUnreadableBody() {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		s.T().Run(http.StatusText(status), func(t *testing.T) {
			s.nav.reasons = nil
			s.login()
			s.handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Content-Length", "100")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"success":false`))
			}

			_, err := s.client.Users.List(s.ctx)

			require.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, SessionExpiredMessage, Message(err))
			_, getErr := s.store.Get(s.ctx)
			assert.ErrorIs(t, getErr, session.ErrNoSession)
			assert.Equal(t, []string{SessionExpiredMessage}, s.nav.calls())
		})
	}
}

func (s *ClientSuite) TestMetrics() {
	s.login()
	_, err := s.client.Users.List(s.ctx)
	s.Require().NoError(err)

	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	_, _ = s.client.Users.List(s.ctx)

	s.InDelta(1, testutil.ToFloat64(s.metrics.BackendRequests.WithLabelValues("users.list", OutcomeSuccess)), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.BackendRequests.WithLabelValues("users.list", OutcomeUnauthorized)), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.ForcedLogouts), 0)
}

func (s *ClientSuite) TestLogoutClearsSession() {
	s.login()
	s.Require().NoError(s.client.Auth.Logout(s.ctx))

	_, err := s.store.Get(s.ctx)
	s.ErrorIs(err, session.ErrNoSession)
}

func (s *ClientSuite) TestBreakerFailsFast() {
	var hits int
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	breaker := circuit.New("backend", circuit.WithFailureThreshold(2))
	c := New(Config{BaseURL: s.server.URL, HTTPClient: s.server.Client(), Breaker: breaker, Metrics: s.metrics}, s.store, s.nav)

	for range 2 {
		_, err := c.Users.List(s.ctx)
		s.Equal(KindTransport, KindOf(err))
	}
	_, err := c.Users.List(s.ctx)

	s.True(errors.Is(err, ErrBackendUnavailable))
	s.Equal(GenericMessage, Message(err))
	s.mu.Lock()
	s.Equal(2, hits)
	s.mu.Unlock()
	s.InDelta(1, testutil.ToFloat64(s.metrics.BreakerOpen), 0)
}

func (s *ClientSuite) TestUnbuildableRequestReleasesTrialSlot() {
	now := time.Unix(0, 0)
	breaker := circuit.New("backend",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(time.Second),
		circuit.WithClock(func() time.Time { return now }),
	)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	base := NewBaseClient(Config{BaseURL: s.server.URL, HTTPClient: s.server.Client(), Breaker: breaker}, s.store, s.nav)

	_, err := base.Do(s.ctx, Request{Operation: "users.list", Method: http.MethodGet, Path: "/v1/users"}, nil)
	s.Equal(KindTransport, KindOf(err))
	s.Equal(circuit.StateOpen, breaker.State())

	now = now.Add(time.Second)
	_, err = base.Do(s.ctx, Request{Operation: "users.update", Method: http.MethodPut, Path: "/v1/users/1", Body: make(chan int)}, nil)
	s.Equal(KindTransport, KindOf(err))
	s.False(errors.Is(err, ErrBackendUnavailable))
	s.Equal(circuit.StateOpen, breaker.State(), "the unused trial slot is handed back")

	s.handler = nil
	_, err = base.Do(s.ctx, Request{Operation: "users.list", Method: http.MethodGet, Path: "/v1/users"}, nil)
	s.NoError(err)
	s.Equal(circuit.StateClosed, breaker.State())
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: KindBusiness, Operation: "users.update", Status: 409, Message: "Email already in use"}
	assert.Equal(t, "users.update: business (status 409): Email already in use", err.Error())
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, GenericMessage, Message(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
