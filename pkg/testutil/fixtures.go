package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"userconsole/internal/models"
)

// TestUsers mirrors the accounts the fake backend seeds.
var TestUsers = struct {
	Admin    models.User
	Active   models.User
	Inactive models.User
}{
	Admin:    *NewUserBuilder().WithID(1).WithUsername("admin").WithFullName("System Administrator").WithRole(models.RoleAdmin).Build(),
	Active:   *NewUserBuilder().WithID(2).WithUsername("user1").WithFullName("John Doe").WithEmail("john@example.com").Build(),
	Inactive: *NewUserBuilder().WithID(3).WithUsername("user2").WithFullName("Jane Smith").WithEmail("jane@example.com").WithStatus(models.StatusInactive).Build(),
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *models.User
}

// NewUserBuilder creates a new UserBuilder with sensible defaults.
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		user: &models.User{
			ID:        100,
			Username:  "tester",
			FullName:  "Test User",
			Email:     "test@example.com",
			Role:      models.RoleUser,
			Roles:     []string{"ROLE_USER"},
			Status:    models.StatusActive,
			CreatedAt: "2026-01-15T09:30:00",
		},
	}
}

func (b *UserBuilder) WithID(id int64) *UserBuilder {
	b.user.ID = id
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	b.user.Email = username + "@example.com"
	return b
}

func (b *UserBuilder) WithFullName(name string) *UserBuilder {
	b.user.FullName = name
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

// WithRole sets the canonical role and the matching authority list.
func (b *UserBuilder) WithRole(role models.Role) *UserBuilder {
	b.user.Role = role
	b.user.Roles = []string{"ROLE_" + string(role)}
	return b
}

func (b *UserBuilder) WithStatus(status models.Status) *UserBuilder {
	b.user.Status = status
	return b
}

func (b *UserBuilder) Build() *models.User {
	u := *b.user
	u.Roles = append([]string(nil), b.user.Roles...)
	return &u
}

// SignedToken returns an HS256 JWT for subject that expires at exp. The
// console never verifies signatures, so the key is arbitrary.
func SignedToken(t testing.TB, subject string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}
