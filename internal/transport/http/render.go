package httptransport

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/device"
	"userconsole/internal/guard"
	"userconsole/internal/models"
	"userconsole/internal/session"
	"userconsole/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "dashboard", "profile", "users", "user_edit", "error"}

type pages struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"lower": strings.ToLower,
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// pageData is what every template receives.
type pageData struct {
	Title string
	Shell *console.Shell
	Flash *Flash
	Page  any
}

// render executes a page into a buffer first so a template failure becomes
// a clean 500. user, when set, drives the navigation shell.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, user *models.User, page any) {
	ctx := r.Context()
	t, ok := h.pages.byName[name]
	if !ok {
		h.logger.ErrorContext(ctx, "unknown page", "page", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := pageData{Title: title, Flash: h.takeFlash(w, r), Page: page}
	if user != nil {
		shell := console.BuildShell(*user, r.URL.Path, device.Describe(requestcontext.UserAgent(ctx)))
		data.Shell = &shell
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(ctx, "render failed",
			"page", name,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// sessionUser is the user admitted by the guard, if any.
func sessionUser(r *http.Request) *models.User {
	if sess := guard.SessionFrom(r.Context()); sess != nil {
		return sess.User
	}
	return nil
}

type errorPage struct {
	Status  int
	Message string
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", http.StatusText(status), sessionUser(r), errorPage{Status: status, Message: message})
}

// forcedLogin turns a forced login recorded during the request into a 303
// to the login view carrying the reason. It reports whether it did.
func (h *Handler) forcedLogin(w http.ResponseWriter, r *http.Request, nav *navRecorder) bool {
	reason, ok := nav.forced()
	if !ok {
		return false
	}
	h.setFlash(w, FlashError, reason)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
	return true
}

// fail is the central page-error handler for console calls.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, nav *navRecorder, err error) {
	if h.forcedLogin(w, r, nav) {
		return
	}
	ctx := r.Context()
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		// Collapsed duplicates share the rejection but not the recorder.
		h.setFlash(w, FlashError, client.Message(err))
		http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
	case errors.Is(err, session.ErrNoSession):
		http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
	case errors.Is(err, session.ErrStaleSession):
		h.setFlash(w, FlashInfo, staleSessionNotice)
		http.Redirect(w, r, guard.DefaultPath, http.StatusSeeOther)
	case client.KindOf(err) == client.KindBusiness:
		h.renderError(w, r, businessStatus(err), client.Message(err))
	case client.KindOf(err) == client.KindTransport:
		h.logger.WarnContext(ctx, "backend call failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		h.renderError(w, r, http.StatusBadGateway, client.GenericMessage)
	default:
		h.logger.ErrorContext(ctx, "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
		h.renderError(w, r, http.StatusInternalServerError, client.GenericMessage)
	}
}

const staleSessionNotice = "Your session changed while the request was running; the change was not applied."

// businessStatus mirrors the backend's 4xx, defaulting to 422.
func businessStatus(err error) int {
	var ce *client.Error
	if errors.As(err, &ce) && ce.Status >= 400 && ce.Status < 500 {
		return ce.Status
	}
	return http.StatusUnprocessableEntity
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)
	if user == nil {
		if sess, err := h.storeFor(r).Get(r.Context()); err == nil {
			user = sess.User
		}
	}
	h.render(w, r, http.StatusNotFound, "error", "Not Found", user, errorPage{Status: http.StatusNotFound, Message: "The page you requested does not exist."})
}
