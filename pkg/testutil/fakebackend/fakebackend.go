// Package fakebackend is an in-process stand-in for the user-management REST
// backend. It speaks the same envelope and status codes as the real service
// and is seeded with the three accounts the console's tests rely on.
package fakebackend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Seeded credentials.
const (
	AdminPassword = "admin123"
	UserPassword  = "password123"
)

var signingKey = []byte("fakebackend-signing-key")

// Account is a backend user record.
type Account struct {
	ID        int64    `json:"userId"`
	Username  string   `json:"username"`
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Role      string   `json:"role"`
	Roles     []string `json:"roles"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"createdAt"`
	password  string
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Backend is safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	nextID   int64
	epoch    int
	calls    map[string]int
	now      func() time.Time
	tokenTTL time.Duration
	down     bool
	latency  time.Duration
}

type Option func(*Backend)

// WithClock sets the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.tokenTTL = ttl }
}

func New(opts ...Option) *Backend {
	b := &Backend{
		calls:    map[string]int{},
		now:      time.Now,
		tokenTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.Reset()
	return b
}

// Reset restores the seeded accounts, forgets calls and revokes issued
// tokens.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	created := "2024-01-15T10:30:00"
	b.accounts = map[int64]*Account{
		1: {ID: 1, Username: "admin", FullName: "System Administrator", Email: "admin@example.com", Role: "ADMIN", Roles: []string{"ROLE_ADMIN"}, Status: "ACTIVE", CreatedAt: created, password: AdminPassword},
		2: {ID: 2, Username: "user1", FullName: "John Doe", Email: "john@example.com", Role: "USER", Roles: []string{"ROLE_USER"}, Status: "ACTIVE", CreatedAt: created, password: UserPassword},
		3: {ID: 3, Username: "user2", FullName: "Jane Smith", Email: "jane@example.com", Role: "USER", Roles: []string{"ROLE_USER"}, Status: "INACTIVE", CreatedAt: created, password: UserPassword},
	}
	b.nextID = 4
	b.epoch++
	b.calls = map[string]int{}
	b.down = false
	b.latency = 0
}

// Handler serves the REST API under /api.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(b.count, b.outage)
		r.Post("/v1/auth/register", b.handleRegister)
		r.Post("/v1/auth/login", b.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(b.authenticate(""))
			r.Get("/v1/users/me", b.handleMe)
			r.Put("/users/profile", b.handleUpdateProfile)
		})
		r.Group(func(r chi.Router) {
			r.Use(b.authenticate("ADMIN"))
			r.Get("/v1/users", b.handleList)
			r.Get("/v1/users/{id}", b.handleGet)
			r.Put("/v1/users/{id}", b.handleUpdate)
			r.Delete("/v1/users/{id}", b.handleDelete)
			r.Patch("/v1/users/{id}/toggle-status", b.handleToggle)
		})
	})
	return r
}

// Calls returns how many requests hit "METHOD /path" (the path as sent,
// without the /api prefix).
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// TotalCalls counts every request received.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// RevokeAll makes every token issued so far answer 401.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.epoch++
}

// SetDown makes every request fail with 503 until cleared.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// SetLatency delays every request by d before it is handled.
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// SetRole changes an account's role behind the console's back.
func (b *Backend) SetRole(id int64, role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[id]; ok {
		a.Role = role
		a.Roles = []string{"ROLE_" + role}
	}
}

// Account returns a copy of the account, if present.
func (b *Backend) Account(id int64) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// IssueToken returns a valid token for username.
func (b *Backend) IssueToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findByUsername(username)
	if a == nil {
		return ""
	}
	return b.issue(a)
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api")]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) outage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		down, latency := b.down, b.latency
		b.mu.Unlock()
		if latency > 0 {
			time.Sleep(latency)
		}
		if down {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKeyAccount struct{}

func (b *Backend) authenticate(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeEnvelope(w, http.StatusUnauthorized, envelope{Error: "UNAUTHORIZED", Message: "Full authentication is required to access this resource"})
				return
			}
			b.mu.Lock()
			a, err := b.verify(raw)
			b.mu.Unlock()
			if err != nil {
				writeEnvelope(w, http.StatusUnauthorized, envelope{Error: "INVALID_TOKEN", Message: "Your session has expired. Please log in again."})
				return
			}
			if role != "" && a.Role != role {
				writeEnvelope(w, http.StatusForbidden, envelope{Error: "ACCESS_DENIED", Message: "Access denied"})
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithAccount(r, a.ID)))
		})
	}
}

func contextWithAccount(r *http.Request, id int64) context.Context {
	return context.WithValue(r.Context(), ctxKeyAccount{}, id)
}

func (b *Backend) caller(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKeyAccount{}).(int64)
	return id
}

func (b *Backend) issue(a *Account) string {
	now := b.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        strconv.Itoa(b.epoch),
		Subject:   strconv.FormatInt(a.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL)),
	}).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return token
}

var errTokenRejected = errors.New("token rejected")

func (b *Backend) verify(raw string) (*Account, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil || claims.ID != strconv.Itoa(b.epoch) {
		return nil, errTokenRejected
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, errTokenRejected
	}
	a, ok := b.accounts[id]
	if !ok || a.Status != "ACTIVE" {
		return nil, errTokenRejected
	}
	return a, nil
}

func (b *Backend) findByUsername(username string) *Account {
	for _, a := range b.accounts {
		if a.Username == username {
			return a
		}
	}
	return nil
}

func (b *Backend) emailTaken(email string, except int64) bool {
	for _, a := range b.accounts {
		if a.ID != except && strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

func (b *Backend) sorted() []Account {
	out := make([]Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(x, y Account) int { return int(x.ID - y.ID) })
	return out
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	env.Success = status < http.StatusBadRequest
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Error: "BAD_REQUEST", Message: "Malformed request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Error: "BAD_REQUEST", Message: "Invalid user id"})
		return 0, false
	}
	return id, true
}
