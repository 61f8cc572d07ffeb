package httptransport

import (
	"net/http"

	"userconsole/internal/console"
	"userconsole/pkg/platform/httputil"
)

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, nav := h.consoleFor(r)
	view, err := c.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", &view.User, view)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	h.showProfile(w, r, false)
}

func (h *Handler) handleProfileEdit(w http.ResponseWriter, r *http.Request) {
	h.showProfile(w, r, true)
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request, editing bool) {
	c, nav := h.consoleFor(r)
	view, err := c.Profile(r.Context(), editing)
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	h.render(w, r, http.StatusOK, "profile", "Profile", &view.User, view)
}

func (h *Handler) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	form, ok := httputil.DecodeForm[console.ProfileForm](w, r, h.logger)
	if !ok {
		return
	}
	c, nav := h.consoleFor(r)
	view, err := c.SaveProfile(r.Context(), *form)
	if h.forcedLogin(w, r, nav) {
		return
	}
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	if view.Editing {
		h.render(w, r, http.StatusUnprocessableEntity, "profile", "Edit Profile", &view.User, view)
		return
	}

	kind := FlashSuccess
	if view.Notice == console.ProfileUnchangedNotice {
		kind = FlashInfo
	}
	h.setFlash(w, kind, view.Notice)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
