package console

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"userconsole/internal/client"
	"userconsole/internal/console/mocks"
	"userconsole/internal/models"
	"userconsole/internal/session"
)

const testNamespace = "console:test"

// countingBackend records writes so tests can assert that none happened.
type countingBackend struct {
	*session.MemoryBackend
	writes atomic.Int32
}

func (b *countingBackend) Save(ctx context.Context, values map[string]string) error {
	b.writes.Add(1)
	return b.MemoryBackend.Save(ctx, values)
}

func (b *countingBackend) CompareAndSave(ctx context.Context, key, expected string, values map[string]string) (bool, error) {
	b.writes.Add(1)
	return b.MemoryBackend.CompareAndSave(ctx, key, expected, values)
}

type ConsoleSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockAuth  *mocks.MockAuth
	mockUsers *mocks.MockUsers
	backend   *countingBackend
	store     *session.Store
	console   *Console
	ctx       context.Context
}

func (s *ConsoleSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockAuth = mocks.NewMockAuth(s.ctrl)
	s.mockUsers = mocks.NewMockUsers(s.ctrl)
	s.backend = &countingBackend{MemoryBackend: session.NewMemoryBackend()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = session.NewStore(s.backend, testNamespace, session.WithLogger(logger))
	s.console = New(Deps{
		Auth:    s.mockAuth,
		Users:   s.mockUsers,
		Store:   s.store,
		Flights: NewFlights(),
		Logger:  logger,
	})
	s.ctx = context.Background()
}

func (s *ConsoleSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

// Fixtures mirror the mock backend's seeded accounts.

func adminUser() models.User {
	return models.User{ID: 1, Username: "admin", FullName: "System Administrator", Email: "admin@example.com", Role: models.RoleAdmin, Status: models.StatusActive}
}

func johnUser() models.User {
	return models.User{ID: 2, Username: "user1", FullName: "John Doe", Email: "john@example.com", Role: models.RoleUser, Status: models.StatusActive}
}

func janeUser() models.User {
	return models.User{ID: 3, Username: "user2", FullName: "Jane Smith", Email: "jane@example.com", Role: models.RoleUser, Status: models.StatusInactive}
}

func (s *ConsoleSuite) signIn(user models.User) {
	s.Require().NoError(s.store.Set(s.ctx, session.Session{Token: "token-" + user.Username, User: &user}))
	s.backend.writes.Store(0)
}

func (s *ConsoleSuite) snapshot() map[string]string {
	values, err := s.backend.Load(s.ctx, testNamespace+":token", testNamespace+":user")
	s.Require().NoError(err)
	return values
}

func businessError(op, msg string) error {
	return &client.Error{Kind: client.KindBusiness, Operation: op, Status: 400, Message: msg}
}

func transportError(op string) error {
	return &client.Error{Kind: client.KindTransport, Operation: op, Message: client.GenericMessage}
}

func unauthorizedError(op string) error {
	return &client.Error{Kind: client.KindUnauthorized, Operation: op, Status: 401, Message: client.SessionExpiredMessage}
}

func (s *ConsoleSuite) TestLogin() {
	s.T().Run("invalid form never reaches the backend", func(t *testing.T) {
		sess, view, err := s.console.Login(s.ctx, LoginForm{Username: "ab", Password: "123"})
		require.NoError(t, err)
		assert.Nil(t, sess)
		require.NotNil(t, view)
		assert.True(t, view.Errors.Has("username"))
		assert.True(t, view.Errors.Has("password"))
		assert.Equal(t, "ab", view.Login.Username)
		assert.Empty(t, view.Login.Password)
	})

	s.T().Run("success stores token and user together", func(t *testing.T) {
		user := adminUser()
		s.mockAuth.EXPECT().
			Login(gomock.Any(), client.LoginRequest{Username: "admin", Password: "admin123"}).
			Return(&client.LoginResult{Token: "jwt-admin", TokenType: "Bearer", User: user}, nil)

		sess, view, err := s.console.Login(s.ctx, LoginForm{Username: "  admin ", Password: "admin123"})
		require.NoError(t, err)
		assert.Nil(t, view)
		require.NotNil(t, sess)
		assert.Equal(t, "jwt-admin", sess.Token)

		stored, err := s.store.Get(s.ctx)
		require.NoError(t, err)
		assert.Equal(t, "jwt-admin", stored.Token)
		assert.Equal(t, user, *stored.User)
	})

	s.T().Run("rejected credentials are shown inline", func(t *testing.T) {
		require.NoError(t, s.store.Clear(s.ctx))
		s.mockAuth.EXPECT().
			Login(gomock.Any(), gomock.Any()).
			Return(nil, businessError("auth.login", "Invalid username or password"))

		sess, view, err := s.console.Login(s.ctx, LoginForm{Username: "admin", Password: "wrong-pass"})
		require.NoError(t, err)
		assert.Nil(t, sess)
		require.NotNil(t, view)
		assert.Equal(t, "Invalid username or password", view.Error)

		_, err = s.store.Get(s.ctx)
		assert.ErrorIs(t, err, session.ErrNoSession)
	})

	s.T().Run("transport failure shows the generic message", func(t *testing.T) {
		s.mockAuth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, transportError("auth.login"))

		_, view, err := s.console.Login(s.ctx, LoginForm{Username: "admin", Password: "admin123"})
		require.NoError(t, err)
		assert.Equal(t, client.GenericMessage, view.Error)
	})
}

func (s *ConsoleSuite) TestRegister() {
	valid := RegisterForm{Username: "newbie", Password: "secret1", FullName: "New Person", Email: "new@example.com"}

	s.T().Run("success switches to login mode with a notice", func(t *testing.T) {
		s.mockAuth.EXPECT().
			Register(gomock.Any(), client.RegisterRequest{Username: "newbie", Password: "secret1", FullName: "New Person", Email: "new@example.com"}).
			Return("User registered successfully", nil)

		view, err := s.console.Register(s.ctx, valid)
		require.NoError(t, err)
		assert.False(t, view.Register)
		assert.Equal(t, RegisteredNotice, view.Notice)
		assert.Equal(t, "newbie", view.Login.Username)

		_, err = s.store.Get(s.ctx)
		assert.ErrorIs(t, err, session.ErrNoSession, "registration does not log in")
	})

	s.T().Run("invalid email and blank name stay local", func(t *testing.T) {
		form := valid
		form.Email = "not-an-email"
		form.FullName = "   "

		view, err := s.console.Register(s.ctx, form)
		require.NoError(t, err)
		assert.True(t, view.Register)
		assert.True(t, view.Errors.Has("email"))
		assert.True(t, view.Errors.Has("fullName"))
	})

	s.T().Run("backend refusal keeps the form", func(t *testing.T) {
		s.mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return("", businessError("auth.register", "Username already exists"))

		view, err := s.console.Register(s.ctx, valid)
		require.NoError(t, err)
		assert.True(t, view.Register)
		assert.Equal(t, "Username already exists", view.Error)
		assert.Equal(t, "newbie", view.Signup.Username)
		assert.Empty(t, view.Signup.Password)
	})
}

func (s *ConsoleSuite) TestLogout() {
	s.signIn(adminUser())
	s.mockAuth.EXPECT().Logout(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		return s.store.Clear(ctx)
	})

	s.Require().NoError(s.console.Logout(s.ctx))
	s.Empty(s.snapshot())
}

func (s *ConsoleSuite) TestRecoverable() {
	s.True(Recoverable(businessError("op", "nope")))
	s.True(Recoverable(transportError("op")))
	s.False(Recoverable(unauthorizedError("op")))
	s.False(Recoverable(session.ErrNoSession))
	s.False(Recoverable(session.ErrStaleSession))
	s.False(Recoverable(nil))
}
