// Package console holds the page loaders and actions behind the web console
// and the CLI. Each loader reads the injected session store, calls the user
// backend through the API client, and returns a view model or an error.
package console

//go:generate mockgen -source=../client/auth.go -destination=mocks/auth_mock.go -package=mocks Auth
//go:generate mockgen -source=../client/users.go -destination=mocks/users_mock.go -package=mocks Users

import (
	"context"
	"errors"
	"log/slog"

	"userconsole/internal/client"
	"userconsole/internal/models"
	"userconsole/internal/session"
)

// SessionStore is the per-browser or per-profile session.
type SessionStore interface {
	Namespace() string
	Set(ctx context.Context, sess session.Session) error
	Get(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
	UpdateUser(ctx context.Context, token string, user models.User) error
}

// Metrics counts user-visible actions.
type Metrics interface {
	IncrementLogins(result string)
	IncrementLogouts()
	IncrementProfileSaves(result string)
	IncrementUserAction(action, result string)
}

type noopMetrics struct{}

func (noopMetrics) IncrementLogins(string)              {}
func (noopMetrics) IncrementLogouts()                   {}
func (noopMetrics) IncrementProfileSaves(string)        {}
func (noopMetrics) IncrementUserAction(string, string) {}

// Deps are the collaborators of a Console. Auth and Users must be bound to
// the same store as Store.
type Deps struct {
	Auth    client.Auth
	Users   client.Users
	Store   SessionStore
	Flights *Flights
	Metrics Metrics
	Logger  *slog.Logger
}

// Console serves one session. The web transport builds one per request.
type Console struct {
	auth    client.Auth
	users   client.Users
	store   SessionStore
	flights *Flights
	metrics Metrics
	logger  *slog.Logger
}

func New(d Deps) *Console {
	c := &Console{
		auth:    d.Auth,
		users:   d.Users,
		store:   d.Store,
		flights: d.Flights,
		metrics: d.Metrics,
		logger:  d.Logger,
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// current returns the stored session or session.ErrNoSession.
func (c *Console) current(ctx context.Context) (*session.Session, error) {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// refreshSelf stores user as the cached record when it belongs to the
// session's own account.
func (c *Console) refreshSelf(ctx context.Context, sess *session.Session, user models.User) error {
	if sess == nil || sess.User == nil || sess.User.ID != user.ID {
		return nil
	}
	if err := c.store.UpdateUser(ctx, sess.Token, user); err != nil {
		if errors.Is(err, session.ErrStaleSession) {
			c.logger.InfoContext(ctx, "discarded response for replaced session", "user_id", user.ID)
		}
		return err
	}
	return nil
}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch client.KindOf(err) {
	case client.KindBusiness:
		return "rejected"
	case client.KindUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// Recoverable reports whether err should be shown inline on the current page
// rather than ending the interaction.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrStaleSession) {
		return false
	}
	kind := client.KindOf(err)
	return kind == client.KindBusiness || kind == client.KindTransport
}
