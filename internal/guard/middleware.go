package guard

import (
	"context"
	"net/http"

	"userconsole/internal/models"
	"userconsole/internal/session"
	"userconsole/pkg/requestcontext"
)

type contextKeySession struct{}

// SessionFrom returns the session admitted by Require, or nil.
func SessionFrom(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(contextKeySession{}).(*session.Session); ok {
		return sess
	}
	return nil
}

// WithSession stores an admitted session in the context.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, contextKeySession{}, sess)
}

// StoreResolver returns the session store for the request's browser.
type StoreResolver func(r *http.Request) Store

// Require guards a route. Denied requests are redirected with 303 See Other
// (to login or the default view); admitted requests carry the session in
// their context.
func (g *Guard) Require(storeFor StoreResolver, required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			outcome, sess, err := g.Evaluate(ctx, storeFor(r), required)
			if err != nil {
				g.logger.ErrorContext(ctx, "access guard failed",
					"error", err,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
			if target := outcome.Redirect(); target != "" {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}
