package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"userconsole/internal/client"
	"userconsole/internal/models"
	"userconsole/internal/session"
)

func (s *ConsoleSuite) TestProfileLoad() {
	s.T().Run("requires a session", func(t *testing.T) {
		_, err := s.console.Profile(s.ctx, false)
		assert.ErrorIs(t, err, session.ErrNoSession)
	})

	s.T().Run("unchanged backend record causes no write", func(t *testing.T) {
		s.signIn(johnUser())
		fresh := johnUser()
		s.mockUsers.EXPECT().Me(gomock.Any()).Return(&fresh, nil)

		view, err := s.console.Profile(s.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, johnUser(), view.User)
		assert.Equal(t, ProfileFormFrom(johnUser()), view.Form)
		assert.Zero(t, s.backend.writes.Load())
	})

	s.T().Run("newer backend record refreshes the cache", func(t *testing.T) {
		s.signIn(johnUser())
		fresh := johnUser()
		fresh.Phone = "+15550100"
		s.mockUsers.EXPECT().Me(gomock.Any()).Return(&fresh, nil)

		view, err := s.console.Profile(s.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, "+15550100", view.User.Phone)

		stored, err := s.store.Get(s.ctx)
		require.NoError(t, err)
		assert.Equal(t, "+15550100", stored.User.Phone)
	})

	s.T().Run("unreachable backend falls back to the cache", func(t *testing.T) {
		s.signIn(johnUser())
		s.mockUsers.EXPECT().Me(gomock.Any()).Return(nil, transportError("users.me"))

		view, err := s.console.Profile(s.ctx, true)
		require.NoError(t, err)
		assert.True(t, view.Editing)
		assert.Equal(t, johnUser(), view.User)
		assert.NotEmpty(t, view.Warning)
	})

	s.T().Run("unauthorized ends the page", func(t *testing.T) {
		s.signIn(johnUser())
		s.mockUsers.EXPECT().Me(gomock.Any()).Return(nil, unauthorizedError("users.me"))

		_, err := s.console.Profile(s.ctx, false)
		assert.ErrorIs(t, err, client.ErrUnauthorized)
	})
}

func (s *ConsoleSuite) TestProfileEditCancelLeavesRecordIdentical() {
	s.signIn(johnUser())
	before := s.snapshot()
	fresh := johnUser()
	s.mockUsers.EXPECT().Me(gomock.Any()).Return(&fresh, nil).Times(2)

	edit, err := s.console.Profile(s.ctx, true)
	s.Require().NoError(err)
	s.True(edit.Editing)

	// Cancel is a plain reload of the view.
	view, err := s.console.Profile(s.ctx, false)
	s.Require().NoError(err)
	s.False(view.Editing)

	s.Equal(before, s.snapshot())
	s.Zero(s.backend.writes.Load())
}

func (s *ConsoleSuite) TestSaveProfile() {
	s.T().Run("unchanged values make no call and no write", func(t *testing.T) {
		s.signIn(johnUser())
		before := s.snapshot()

		view, err := s.console.SaveProfile(s.ctx, ProfileForm{FullName: " John Doe ", Email: "john@example.com"})
		require.NoError(t, err)
		assert.False(t, view.Editing)
		assert.Equal(t, ProfileUnchangedNotice, view.Notice)
		assert.Equal(t, before, s.snapshot())
		assert.Zero(t, s.backend.writes.Load())
	})

	s.T().Run("invalid email stays in edit mode", func(t *testing.T) {
		s.signIn(johnUser())

		view, err := s.console.SaveProfile(s.ctx, ProfileForm{FullName: "John Doe", Email: "john-at-example"})
		require.NoError(t, err)
		assert.True(t, view.Editing)
		assert.True(t, view.Errors.Has("email"))
		assert.Zero(t, s.backend.writes.Load())
	})

	s.T().Run("changed values are saved and cached", func(t *testing.T) {
		s.signIn(johnUser())
		s.mockUsers.EXPECT().
			UpdateProfile(gomock.Any(), client.ProfileUpdate{FullName: "Johnny Doe", Email: "johnny@example.com", Phone: "+15550100"}).
			Return(nil, nil)

		view, err := s.console.SaveProfile(s.ctx, ProfileForm{FullName: "Johnny Doe", Email: "johnny@example.com", Phone: "+15550100"})
		require.NoError(t, err)
		assert.Equal(t, ProfileSavedNotice, view.Notice)
		assert.Equal(t, "Johnny Doe", view.User.FullName)

		stored, err := s.store.Get(s.ctx)
		require.NoError(t, err)
		assert.Equal(t, "Johnny Doe", stored.User.FullName)
		assert.Equal(t, "johnny@example.com", stored.User.Email)
		assert.Equal(t, "+15550100", stored.User.Phone)
		assert.Equal(t, models.RoleUser, stored.User.Role)
		assert.Equal(t, "user1", stored.User.Username)
	})

	s.T().Run("clearing the phone sticks even when the backend echoes the record", func(t *testing.T) {
		user := johnUser()
		user.Phone = "+15550100"
		s.signIn(user)
		echoed := johnUser()
		s.mockUsers.EXPECT().UpdateProfile(gomock.Any(), gomock.Any()).Return(&echoed, nil)

		_, err := s.console.SaveProfile(s.ctx, ProfileForm{FullName: "John Doe", Email: "john@example.com"})
		require.NoError(t, err)

		stored, err := s.store.Get(s.ctx)
		require.NoError(t, err)
		assert.Empty(t, stored.User.Phone)
	})

	s.T().Run("backend refusal is shown inline", func(t *testing.T) {
		s.signIn(johnUser())
		s.mockUsers.EXPECT().UpdateProfile(gomock.Any(), gomock.Any()).Return(nil, businessError("users.update_profile", "Email already in use"))

		view, err := s.console.SaveProfile(s.ctx, ProfileForm{FullName: "John Doe", Email: "admin@example.com"})
		require.NoError(t, err)
		assert.True(t, view.Editing)
		assert.Equal(t, "Email already in use", view.Error)

		stored, err := s.store.Get(s.ctx)
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", stored.User.Email)
	})

	s.T().Run("a response for a logged out session is discarded", func(t *testing.T) {
		s.signIn(johnUser())
		s.mockUsers.EXPECT().UpdateProfile(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ client.ProfileUpdate) (*models.User, error) {
				assert.NoError(t, s.store.Clear(ctx))
				return nil, nil
			})

		_, err := s.console.SaveProfile(s.ctx, ProfileForm{FullName: "Late Name", Email: "john@example.com"})
		assert.ErrorIs(t, err, session.ErrStaleSession)
		assert.Empty(t, s.snapshot(), "the logged out session must not come back")
	})
}

func (s *ConsoleSuite) TestMergeUser() {
	cached := adminUser()
	cached.Phone = "+15550199"

	s.Run("keeps cached fields the backend omitted", func() {
		got := mergeUser(cached, models.User{ID: 1, Username: "admin", Role: models.RoleUser})
		s.Equal("+15550199", got.Phone)
		s.Equal(models.RoleAdmin, got.Role, "role without role data is not taken")
	})

	s.Run("takes role when roles were sent", func() {
		got := mergeUser(cached, models.User{ID: 1, Role: models.RoleUser, Roles: []string{"ROLE_USER"}})
		s.Equal(models.RoleUser, got.Role)
	})

	s.Run("ignores another account", func() {
		s.Equal(cached, mergeUser(cached, johnUser()))
	})
}
