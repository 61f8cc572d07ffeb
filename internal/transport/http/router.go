// Package httptransport serves the console as server-rendered HTML. Each
// browser is identified by a session cookie; its session store, API client
// and console are built per request.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/guard"
	"userconsole/internal/models"
	"userconsole/internal/platform/health"
	"userconsole/internal/session"
	"userconsole/pkg/platform/middleware/metadata"
	"userconsole/pkg/platform/middleware/request"
)

const maxFormBytes = 64 << 10

// Metrics is everything the web layer records.
type Metrics interface {
	console.Metrics
	request.LatencyObserver
}

// Deps are the collaborators shared by every request.
type Deps struct {
	Sessions     session.Backend
	Client       client.Config
	Guard        *guard.Guard
	Flights      *console.Flights
	Metrics      Metrics
	Health       *health.Handler
	Metadata     *metadata.Middleware
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	CookieSecure bool
	Timeout      time.Duration
}

// Handler is the thin HTTP layer over the console.
type Handler struct {
	sessions     session.Backend
	clientCfg    client.Config
	guard        *guard.Guard
	flights      *console.Flights
	metrics      Metrics
	logger       *slog.Logger
	cookieSecure bool
	pages        *pages
}

func NewHandler(d Deps) (*Handler, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:     d.Sessions,
		clientCfg:    d.Client,
		guard:        d.Guard,
		flights:      d.Flights,
		metrics:      d.Metrics,
		logger:       logger,
		cookieSecure: d.CookieSecure,
		pages:        p,
	}, nil
}

// NewRouter wires the console routes and health endpoints.
func NewRouter(h *Handler, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(h.logger))
	r.Use(request.RequestID)
	if d.Metadata != nil {
		r.Use(d.Metadata.Handler)
	}
	r.Use(request.Logger(h.logger))
	if d.Timeout > 0 {
		r.Use(request.Timeout(d.Timeout))
	}
	r.Use(request.FormLimit(maxFormBytes))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if h.metrics != nil {
			r.Use(request.Latency(h.metrics))
		}
		r.Use(h.browserSession)

		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(h.guardStore, ""))
			r.Get("/", h.handleRoot)
			r.Get("/dashboard", h.handleDashboard)
			r.Get("/profile", h.handleProfile)
			r.Get("/profile/edit", h.handleProfileEdit)
			r.Post("/profile", h.handleProfileSave)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(h.guardStore, models.RoleAdmin))
			r.Get("/users", h.handleUsers)
			r.Get("/users/{id}/edit", h.handleUserEdit)
			r.Post("/users/{id}", h.handleUserSave)
			r.Post("/users/{id}/toggle-status", h.handleUserToggle)
			r.Post("/users/{id}/delete", h.handleUserDelete)
		})

		r.NotFound(h.handleNotFound)
	})

	return r
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.DefaultPath, http.StatusSeeOther)
}
