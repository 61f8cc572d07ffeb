package httptransport

import (
	"net/http"

	"userconsole/internal/console"
	"userconsole/internal/guard"
	"userconsole/pkg/platform/httputil"
)

const loggedOutNotice = "You have been logged out."

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := h.storeFor(r).Get(r.Context()); err == nil {
		http.Redirect(w, r, guard.DefaultPath, http.StatusSeeOther)
		return
	}
	view := console.LoginPage(r.URL.Query().Get("mode") == "register")
	h.render(w, r, http.StatusOK, "login", loginTitle(view), nil, view)
}

func loginTitle(view *console.AuthView) string {
	if view.Register {
		return "Register"
	}
	return "Login"
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, ok := httputil.DecodeForm[console.LoginForm](w, r, h.logger)
	if !ok {
		return
	}
	ctx := r.Context()
	c, nav := h.consoleFor(r)
	sess, view, err := c.Login(ctx, *form)
	if h.forcedLogin(w, r, nav) {
		return
	}
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	if view != nil {
		h.render(w, r, http.StatusUnprocessableEntity, "login", "Login", nil, view)
		return
	}

	// Move the new session to a fresh browser ID.
	old := h.storeFor(r)
	r = h.rotateBrowser(w, r)
	if err := h.storeFor(r).Set(ctx, *sess); err != nil {
		h.fail(w, r, nav, err)
		return
	}
	if err := old.Clear(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to clear pre-login session", "error", err)
	}
	http.Redirect(w, r, guard.DefaultPath, http.StatusSeeOther)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	form, ok := httputil.DecodeForm[console.RegisterForm](w, r, h.logger)
	if !ok {
		return
	}
	c, nav := h.consoleFor(r)
	view, err := c.Register(r.Context(), *form)
	if h.forcedLogin(w, r, nav) {
		return
	}
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	if view.Register {
		h.render(w, r, http.StatusUnprocessableEntity, "login", "Register", nil, view)
		return
	}
	h.setFlash(w, FlashSuccess, view.Notice)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, nav := h.consoleFor(r)
	if err := c.Logout(r.Context()); err != nil {
		h.fail(w, r, nav, err)
		return
	}
	h.setFlash(w, FlashInfo, loggedOutNotice)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}
