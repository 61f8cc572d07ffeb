package console

import (
	"context"
	"encoding/json"
	"errors"

	"userconsole/internal/client"
	"userconsole/internal/models"
	"userconsole/pkg/validation"
)

const (
	ProfileSavedNotice     = "Profile updated successfully."
	ProfileUnchangedNotice = "No changes to save."
	profileStaleWarning    = "Showing saved details; the latest profile could not be loaded."
)

// ProfileView is the profile page in view or edit mode.
type ProfileView struct {
	User    models.User
	Form    ProfileForm
	Editing bool
	Errors  validation.FieldErrors
	Error   string
	Notice  string
	Warning string
}

// Profile loads the cached record and refreshes it from the backend when
// reachable. A failed refresh keeps the cached record and sets Warning.
func (c *Console) Profile(ctx context.Context, editing bool) (*ProfileView, error) {
	sess, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	user := *sess.User

	fresh, err := c.users.Me(ctx)
	switch {
	case err == nil:
		merged := mergeUser(user, *fresh)
		if !sameRecord(merged, user) {
			if err := c.refreshSelf(ctx, sess, merged); err != nil {
				return nil, err
			}
		}
		user = merged
	case errors.Is(err, client.ErrUnauthorized):
		return nil, err
	default:
		c.logger.WarnContext(ctx, "profile refresh failed", "user_id", user.ID, "error", err)
		return &ProfileView{User: user, Form: ProfileFormFrom(user), Editing: editing, Warning: profileStaleWarning}, nil
	}

	return &ProfileView{User: user, Form: ProfileFormFrom(user), Editing: editing}, nil
}

// SaveProfile validates and submits the edit. Unchanged values make no
// backend call and no store write. Validation and backend refusals come
// back as an editing view with nil error.
func (c *Console) SaveProfile(ctx context.Context, form ProfileForm) (*ProfileView, error) {
	form.normalize()
	sess, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	cached := *sess.User
	editing := &ProfileView{User: cached, Form: form, Editing: true}

	fe, err := fieldErrors(form)
	if err != nil {
		return nil, err
	}
	if fe != nil {
		c.metrics.IncrementProfileSaves("invalid")
		editing.Errors = fe
		return editing, nil
	}

	if form == ProfileFormFrom(cached) {
		c.metrics.IncrementProfileSaves("unchanged")
		return &ProfileView{User: cached, Form: form, Notice: ProfileUnchangedNotice}, nil
	}

	key := submissionKey(c.store.Namespace(), "profile", form)
	saved, err := collapse(ctx, c.flights, key, func() (models.User, error) {
		echoed, err := c.users.UpdateProfile(ctx, form.request())
		if err != nil {
			return models.User{}, err
		}
		next := form.apply(cached)
		if echoed != nil {
			next = mergeUser(next, *echoed)
		}
		if err := c.store.UpdateUser(ctx, sess.Token, next); err != nil {
			return models.User{}, err
		}
		return next, nil
	})
	c.metrics.IncrementProfileSaves(outcome(err))
	if err != nil {
		if Recoverable(err) {
			editing.Error = client.Message(err)
			return editing, nil
		}
		return nil, err
	}

	c.logger.InfoContext(ctx, "profile updated", "user_id", saved.ID)
	return &ProfileView{User: saved, Form: ProfileFormFrom(saved), Notice: ProfileSavedNotice}, nil
}

// mergeUser overlays the non-empty fields of fresh onto cached. A record for
// another account leaves cached untouched. The role only changes when the
// backend sent role information.
func mergeUser(cached, fresh models.User) models.User {
	if fresh.ID != 0 && fresh.ID != cached.ID {
		return cached
	}
	out := cached
	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overlay(&out.Username, fresh.Username)
	overlay(&out.FullName, fresh.FullName)
	overlay(&out.Email, fresh.Email)
	overlay(&out.Phone, fresh.Phone)
	overlay(&out.CreatedAt, fresh.CreatedAt)
	overlay(&out.UpdatedAt, fresh.UpdatedAt)
	if fresh.Status != "" {
		out.Status = fresh.Status
	}
	if len(fresh.Roles) > 0 {
		out.Roles = fresh.Roles
		out.Role = fresh.Role
	}
	return out
}

// sameRecord compares the persisted JSON forms.
func sameRecord(a, b models.User) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ra) == string(rb)
}
