// Package session persists the client-side session: a bearer token and the
// cached user record, stored under two keys that are always written and
// removed together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"userconsole/internal/models"
	"userconsole/pkg/platform/privacy"
)

// Key names inside a namespace.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	ErrNoSession         = errors.New("no session")
	ErrIncompleteSession = errors.New("session requires both token and user")
	ErrStaleSession      = errors.New("session changed since the request started")
)

// Session is a snapshot of the stored session.
type Session struct {
	Token string
	User  *models.User
}

// Backend persists string values under string keys.
//
// Error Contract:
//   - Load omits missing keys from the result; it never fails for absence
//   - Save writes every key or none
//   - Delete ignores missing keys
//   - CompareAndSave writes values only if key currently holds expected,
//     atomically with the comparison, and reports whether it wrote
//   - infrastructure failures are returned wrapped
type Backend interface {
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	CompareAndSave(ctx context.Context, key, expected string, values map[string]string) (bool, error)
}

// Store is the session for one browser (web) or one profile (CLI).
type Store struct {
	backend   Backend
	namespace string
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Store)

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore scopes a backend to a namespace. An empty namespace uses the bare
// key names.
func NewStore(backend Backend, namespace string, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		namespace: namespace,
		now:       time.Now,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Namespace returns the key prefix this store writes under.
func (s *Store) Namespace() string {
	return s.namespace
}

func (s *Store) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + ":" + name
}

// Set persists token and user atomically.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if sess.Token == "" || sess.User == nil {
		return ErrIncompleteSession
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.backend.Save(ctx, map[string]string{
		s.key(KeyToken): sess.Token,
		s.key(KeyUser):  string(raw),
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns the stored session or ErrNoSession. A partial session, an
// unreadable user record or an expired JWT is cleared and reported as absent.
func (s *Store) Get(ctx context.Context) (*Session, error) {
	values, err := s.backend.Load(ctx, s.key(KeyToken), s.key(KeyUser))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	token, hasToken := values[s.key(KeyToken)]
	raw, hasUser := values[s.key(KeyUser)]
	if !hasToken && !hasUser {
		return nil, ErrNoSession
	}
	if token == "" || raw == "" {
		s.discard(ctx, "partial session")
		return nil, ErrNoSession
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.discard(ctx, "unreadable user record")
		return nil, ErrNoSession
	}

	if exp, ok := ExpiresAt(token); ok && !s.now().Before(exp) {
		s.discard(ctx, "token expired", "token_fp", privacy.TokenFingerprint(token))
		return nil, ErrNoSession
	}

	return &Session{Token: token, User: &user}, nil
}

// Clear removes both keys.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key(KeyToken), s.key(KeyUser)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// UpdateUser replaces the cached user if the stored token is still token.
// Responses that arrive after a logout or re-login get ErrStaleSession.
func (s *Store) UpdateUser(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return ErrStaleSession
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	swapped, err := s.backend.CompareAndSave(ctx, s.key(KeyToken), token, map[string]string{
		s.key(KeyToken): token,
		s.key(KeyUser):  string(raw),
	})
	if err != nil {
		return fmt.Errorf("update session user: %w", err)
	}
	if !swapped {
		return ErrStaleSession
	}
	return nil
}

func (s *Store) discard(ctx context.Context, reason string, attrs ...any) {
	attrs = append([]any{"reason", reason, "namespace", s.namespace}, attrs...)
	if err := s.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to discard invalid session", append(attrs, "error", err)...)
		return
	}
	s.logger.InfoContext(ctx, "invalid session discarded", attrs...)
}
