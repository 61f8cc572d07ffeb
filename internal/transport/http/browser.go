package httptransport

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/guard"
	"userconsole/internal/session"
)

// SessionCookie names the browser: its value namespaces the session keys.
const SessionCookie = "console_session"

const sessionNamespacePrefix = "console:"

type ctxKeyBrowser struct{}

// browserSession makes sure the request carries a browser ID, issuing a new
// cookie when the current one is missing or malformed.
func (h *Handler) browserSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := readBrowserID(r)
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, h.sessionCookie(id))
		}
		ctx := context.WithValue(r.Context(), ctxKeyBrowser{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func readBrowserID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

func (h *Handler) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// rotateBrowser gives the browser a fresh ID, so a session established by
// login never reuses an ID that existed before authentication.
func (h *Handler) rotateBrowser(w http.ResponseWriter, r *http.Request) *http.Request {
	id := uuid.NewString()
	http.SetCookie(w, h.sessionCookie(id))
	return r.WithContext(context.WithValue(r.Context(), ctxKeyBrowser{}, id))
}

func browserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyBrowser{}).(string)
	return id
}

// storeFor is the session store of the request's browser.
func (h *Handler) storeFor(r *http.Request) *session.Store {
	return session.NewStore(h.sessions, sessionNamespacePrefix+browserID(r.Context()), session.WithLogger(h.logger))
}

func (h *Handler) guardStore(r *http.Request) guard.Store {
	return h.storeFor(r)
}

// consoleFor builds the console for one request. The returned recorder
// notes any forced login the API client asks for.
func (h *Handler) consoleFor(r *http.Request) (*console.Console, *navRecorder) {
	store := h.storeFor(r)
	nav := &navRecorder{}
	api := client.New(h.clientCfg, store, nav)
	return console.New(console.Deps{
		Auth:    api.Auth,
		Users:   api.Users,
		Store:   store,
		Flights: h.flights,
		Metrics: h.metrics,
		Logger:  h.logger,
	}), nav
}
