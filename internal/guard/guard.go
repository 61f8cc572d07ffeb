// Package guard decides whether a protected view may render for the current
// session. The checks run in a fixed order:
//
//  1. no token: go to login
//  2. token but the cached user has no identity: clear the session, go to login
//  3. the route needs a role the user does not have: go to the default view
//  4. otherwise allow
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"userconsole/internal/models"
	"userconsole/internal/session"
	"userconsole/pkg/requestcontext"
)

// Redirect targets.
const (
	LoginPath   = "/login"
	DefaultPath = "/dashboard"
)

// Outcome of a guard check.
type Outcome int

const (
	Allow Outcome = iota
	NoSession
	CorruptSession
	RoleMismatch
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case NoSession:
		return "no_session"
	case CorruptSession:
		return "corrupt_session"
	case RoleMismatch:
		return "role_mismatch"
	default:
		return "unknown"
	}
}

// Redirect returns where the user is sent, or "" for Allow.
func (o Outcome) Redirect() string {
	switch o {
	case NoSession, CorruptSession:
		return LoginPath
	case RoleMismatch:
		return DefaultPath
	default:
		return ""
	}
}

// Decide applies the checks to a session snapshot. A required role of ""
// admits any authenticated user.
func Decide(sess *session.Session, required models.Role) Outcome {
	if sess == nil || sess.Token == "" {
		return NoSession
	}
	if sess.User == nil || sess.User.ID == 0 {
		return CorruptSession
	}
	if required != "" && sess.User.Role != required {
		return RoleMismatch
	}
	return Allow
}

// Store is the session access the guard needs.
type Store interface {
	Get(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
}

// Metrics counts guard outcomes.
type Metrics interface {
	IncrementGuardDecision(decision string)
}

// Guard evaluates outcomes against a live store.
type Guard struct {
	metrics Metrics
	logger  *slog.Logger
}

func New(metrics Metrics, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{metrics: metrics, logger: logger}
}

// Evaluate reads the session, decides, and clears the session when its user
// record lacks an identity. The session is returned only on Allow.
func (g *Guard) Evaluate(ctx context.Context, store Store, required models.Role) (Outcome, *session.Session, error) {
	sess, err := store.Get(ctx)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return NoSession, nil, fmt.Errorf("read session: %w", err)
	}

	outcome := Decide(sess, required)
	if outcome == CorruptSession {
		if err := store.Clear(ctx); err != nil {
			return outcome, nil, fmt.Errorf("clear corrupt session: %w", err)
		}
		g.logger.WarnContext(ctx, "session without user identity cleared",
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if outcome == RoleMismatch {
		g.logger.InfoContext(ctx, "role check failed",
			"required_role", string(required),
			"user_role", string(sess.User.Role),
			"user_id", sess.User.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if g.metrics != nil {
		g.metrics.IncrementGuardDecision(outcome.String())
	}

	if outcome != Allow {
		return outcome, nil, nil
	}
	return outcome, sess, nil
}
