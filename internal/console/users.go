package console

import (
	"context"
	"strconv"
	"strings"

	"userconsole/internal/client"
	"userconsole/internal/models"
	strutil "userconsole/pkg/string"
	"userconsole/pkg/validation"
)

// RoleAll disables the role filter.
const RoleAll = "ALL"

const UserSavedNotice = "User updated successfully."

// Filter narrows the user list.
type Filter struct {
	Search string
	Role   string
}

func (f Filter) normalized() Filter {
	f.Role = strings.ToUpper(strings.TrimSpace(f.Role))
	if f.Role == "" {
		f.Role = RoleAll
	}
	return f
}

// Matches reports whether u passes the search and role filters. Search is a
// case-insensitive substring over username, full name and email, matched as
// entered, surrounding whitespace included.
func (f Filter) Matches(u models.User) bool {
	f = f.normalized()
	if f.Role != RoleAll && string(u.Role) != f.Role {
		return false
	}
	if f.Search == "" {
		return true
	}
	return strutil.ContainsFold(u.Username, f.Search) ||
		strutil.ContainsFold(u.FullName, f.Search) ||
		strutil.ContainsFold(u.Email, f.Search)
}

// FilterUsers keeps the users matching f, in order.
func FilterUsers(users []models.User, f Filter) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	return out
}

// Stats are aggregate counts over the unfiltered list.
type Stats struct {
	Total    int
	Active   int
	Inactive int
}

func ComputeStats(users []models.User) Stats {
	s := Stats{Total: len(users)}
	for _, u := range users {
		if u.Active() {
			s.Active++
		} else {
			s.Inactive++
		}
	}
	return s
}

// RoleOption is one entry of the role filter select.
type RoleOption struct {
	Value    string
	Label    string
	Selected bool
}

func roleOptions(selected string) []RoleOption {
	opts := []RoleOption{
		{Value: RoleAll, Label: "All roles"},
		{Value: string(models.RoleAdmin), Label: "Admin"},
		{Value: string(models.RoleUser), Label: "User"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == selected
	}
	return opts
}

// UsersView is the admin user list.
type UsersView struct {
	Users         []models.User
	Filter        Filter
	Stats         Stats
	RoleOptions   []RoleOption
	CurrentUserID int64
}

// Users loads every account and applies f. Stats cover the whole list.
func (c *Console) Users(ctx context.Context, f Filter) (*UsersView, error) {
	sess, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	all, err := c.users.List(ctx)
	if err != nil {
		return nil, err
	}
	f = f.normalized()
	return &UsersView{
		Users:         FilterUsers(all, f),
		Filter:        f,
		Stats:         ComputeStats(all),
		RoleOptions:   roleOptions(f.Role),
		CurrentUserID: sess.User.ID,
	}, nil
}

// ToggleStatus flips an account between active and inactive and returns
// the updated record.
func (c *Console) ToggleStatus(ctx context.Context, id int64) (*models.User, error) {
	sess, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	key := submissionKey(c.store.Namespace(), "toggle", id)
	user, err := collapse(ctx, c.flights, key, func() (*models.User, error) {
		return c.users.ToggleStatus(ctx, id)
	})
	c.metrics.IncrementUserAction("toggle_status", outcome(err))
	if err != nil {
		return nil, err
	}
	if user.ID == sess.User.ID {
		if err := c.refreshSelf(ctx, sess, mergeUser(*sess.User, *user)); err != nil {
			return nil, err
		}
	}
	c.logger.InfoContext(ctx, "user status toggled", "target_user_id", id, "status", user.Status)
	return user, nil
}

// DeleteUser removes an account and returns the backend's confirmation.
func (c *Console) DeleteUser(ctx context.Context, id int64) (string, error) {
	if _, err := c.current(ctx); err != nil {
		return "", err
	}
	key := submissionKey(c.store.Namespace(), "delete", id)
	msg, err := collapse(ctx, c.flights, key, func() (string, error) {
		return c.users.Delete(ctx, id)
	})
	c.metrics.IncrementUserAction("delete", outcome(err))
	if err != nil {
		return "", err
	}
	if msg == "" {
		msg = "User " + strconv.FormatInt(id, 10) + " deleted."
	}
	c.logger.InfoContext(ctx, "user deleted", "target_user_id", id)
	return msg, nil
}

// UserEditView is the admin edit page for one account.
type UserEditView struct {
	User   models.User
	Form   UserEditForm
	Errors validation.FieldErrors
	Error  string
	Notice string
}

// EditUser loads the account into the edit form.
func (c *Console) EditUser(ctx context.Context, id int64) (*UserEditView, error) {
	if _, err := c.current(ctx); err != nil {
		return nil, err
	}
	user, err := c.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserEditView{User: *user, Form: UserEditFormFrom(*user)}, nil
}

// SaveUser submits an admin edit. original is the form as it was rendered;
// unchanged values make no backend call. Validation and backend refusals
// come back as the edit view with nil error.
func (c *Console) SaveUser(ctx context.Context, id int64, original, form UserEditForm) (*UserEditView, error) {
	form.normalize()
	original.normalize()
	sess, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	current := original.apply(models.User{ID: id})
	editing := &UserEditView{User: current, Form: form}

	fe, err := fieldErrors(form)
	if err != nil {
		return nil, err
	}
	if fe != nil {
		editing.Errors = fe
		return editing, nil
	}
	if form == original {
		c.metrics.IncrementUserAction("update", "unchanged")
		return &UserEditView{User: current, Form: form, Notice: ProfileUnchangedNotice}, nil
	}

	key := submissionKey(c.store.Namespace(), "update:"+strconv.FormatInt(id, 10), form)
	saved, err := collapse(ctx, c.flights, key, func() (*models.User, error) {
		return c.users.Update(ctx, id, form.request())
	})
	c.metrics.IncrementUserAction("update", outcome(err))
	if err != nil {
		if Recoverable(err) {
			editing.Error = client.Message(err)
			return editing, nil
		}
		return nil, err
	}

	next := mergeUser(form.apply(current), *saved)
	if sess.User.ID == id {
		self := mergeUser(*sess.User, next)
		self.Role = next.Role
		if err := c.refreshSelf(ctx, sess, self); err != nil {
			return nil, err
		}
	}
	c.logger.InfoContext(ctx, "user updated", "target_user_id", id)
	return &UserEditView{User: next, Form: UserEditFormFrom(next), Notice: UserSavedNotice}, nil
}
