package httptransport

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/models"
	"userconsole/pkg/platform/httputil"
)

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, nav := h.consoleFor(r)
	view, err := c.Users(r.Context(), console.Filter{Search: q.Get("q"), Role: q.Get("role")})
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	h.render(w, r, http.StatusOK, "users", "Users", sessionUser(r), view)
}

// userID parses the {id} path segment, answering 404 when it is not one.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(w, r, http.StatusNotFound, "User not found")
		return 0, false
	}
	return id, true
}

// listURL points back at the user list with the filters the action was
// submitted from.
func listURL(r *http.Request) string {
	v := url.Values{}
	if q := r.PostFormValue("q"); q != "" {
		v.Set("q", q)
	}
	if role := r.PostFormValue("role"); role != "" && role != console.RoleAll {
		v.Set("role", role)
	}
	if len(v) == 0 {
		return "/users"
	}
	return "/users?" + v.Encode()
}

func (h *Handler) handleUserToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	c, nav := h.consoleFor(r)
	user, err := c.ToggleStatus(r.Context(), id)
	if !h.actionDone(w, r, nav, err) {
		return
	}
	h.setFlash(w, FlashSuccess, toggledNotice(*user))
	http.Redirect(w, r, listURL(r), http.StatusSeeOther)
}

func toggledNotice(u models.User) string {
	state := "inactive"
	if u.Active() {
		state = "active"
	}
	return "User " + u.Username + " is now " + state + "."
}

func (h *Handler) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	c, nav := h.consoleFor(r)
	msg, err := c.DeleteUser(r.Context(), id)
	if !h.actionDone(w, r, nav, err) {
		return
	}
	h.setFlash(w, FlashSuccess, msg)
	http.Redirect(w, r, listURL(r), http.StatusSeeOther)
}

// actionDone handles the error of a list action. Backend refusals go back
// to the list as an error notice. It reports whether the action succeeded.
func (h *Handler) actionDone(w http.ResponseWriter, r *http.Request, nav *navRecorder, err error) bool {
	if h.forcedLogin(w, r, nav) {
		return false
	}
	if err == nil {
		return true
	}
	if console.Recoverable(err) {
		h.setFlash(w, FlashError, client.Message(err))
		http.Redirect(w, r, listURL(r), http.StatusSeeOther)
		return false
	}
	h.fail(w, r, nav, err)
	return false
}

func (h *Handler) handleUserEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	c, nav := h.consoleFor(r)
	view, err := c.EditUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	h.render(w, r, http.StatusOK, "user_edit", "Edit User", sessionUser(r), view)
}

func (h *Handler) handleUserSave(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	form, ok := httputil.DecodeForm[console.UserEditForm](w, r, h.logger)
	if !ok {
		return
	}
	var original console.UserEditForm
	if err := httputil.BindPrefixed(r, "orig", &original); err != nil {
		h.fail(w, r, &navRecorder{}, err)
		return
	}

	c, nav := h.consoleFor(r)
	view, err := c.SaveUser(r.Context(), id, original, *form)
	if h.forcedLogin(w, r, nav) {
		return
	}
	if err != nil {
		h.fail(w, r, nav, err)
		return
	}
	if len(view.Errors) > 0 || view.Error != "" {
		h.render(w, r, http.StatusUnprocessableEntity, "user_edit", "Edit User", sessionUser(r), view)
		return
	}

	kind := FlashSuccess
	if view.Notice == console.ProfileUnchangedNotice {
		kind = FlashInfo
	}
	h.setFlash(w, kind, view.Notice)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}
