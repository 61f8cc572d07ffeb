package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyRole(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		roles    []string
		want     Role
	}{
		{name: "explicit role wins", explicit: "USER", roles: []string{"ROLE_ADMIN"}, want: RoleUser},
		{name: "explicit role normalised", explicit: "role_admin", want: RoleAdmin},
		{name: "admin wins among roles", roles: []string{"ROLE_USER", "ROLE_ADMIN"}, want: RoleAdmin},
		{name: "first entry otherwise", roles: []string{"ROLE_AUDITOR", "ROLE_USER"}, want: Role("AUDITOR")},
		{name: "defaults to USER", want: RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnifyRole(tt.explicit, tt.roles))
		})
	}
}

func TestUserUnmarshal(t *testing.T) {
	t.Run("login payload with roles array", func(t *testing.T) {
		var u User
		require.NoError(t, json.Unmarshal([]byte(`{
			"userId": 1, "username": "admin", "email": "admin@example.com",
			"fullName": "Admin User", "roles": ["ROLE_ADMIN"], "createdAt": "2024-01-01T10:00:00"
		}`), &u))

		assert.Equal(t, int64(1), u.ID)
		assert.Equal(t, RoleAdmin, u.Role)
		assert.Equal(t, []string{"ROLE_ADMIN"}, u.Roles)
		assert.True(t, u.IsAdmin())
		assert.Equal(t, "2024-01-01", u.CreatedDate())
	})

	t.Run("authorities objects from /me", func(t *testing.T) {
		var u User
		require.NoError(t, json.Unmarshal([]byte(`{
			"userId": 4, "username": "ops", "roles": [{"authority": "ROLE_USER"}]
		}`), &u))

		assert.Equal(t, RoleUser, u.Role)
		assert.Equal(t, []string{"ROLE_USER"}, u.Roles)
	})

	t.Run("legacy id and isActive", func(t *testing.T) {
		var u User
		require.NoError(t, json.Unmarshal([]byte(`{"id": 3, "username": "user2", "role": "USER", "isActive": false}`), &u))

		assert.Equal(t, int64(3), u.ID)
		assert.Equal(t, StatusInactive, u.Status)
		assert.False(t, u.Active())
	})

	t.Run("jackson array timestamps", func(t *testing.T) {
		var u User
		require.NoError(t, json.Unmarshal([]byte(`{"userId": 2, "username": "u", "createdAt": [2024,1,15,10,30]}`), &u))

		assert.Equal(t, "2024-01-15T10:30:00", u.CreatedAt)
	})

	t.Run("rejects malformed roles", func(t *testing.T) {
		var u User
		require.Error(t, json.Unmarshal([]byte(`{"userId": 2, "roles": [42]}`), &u))
	})
}

func TestUserJSONStable(t *testing.T) {
	original := User{
		ID:        7,
		Username:  "jane",
		FullName:  "Jane Doe",
		Email:     "jane@example.com",
		Role:      RoleAdmin,
		Roles:     []string{"ROLE_ADMIN"},
		Status:    StatusActive,
		CreatedAt: "2024-01-01T10:00:00",
	}

	first, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded User
	require.NoError(t, json.Unmarshal(first, &decoded))
	second, err := json.Marshal(decoded)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
	assert.Equal(t, string(first), string(second))
}

func TestDisplayHelpers(t *testing.T) {
	assert.Equal(t, "Jane", User{Username: "jd", FullName: "Jane"}.DisplayName())
	assert.Equal(t, "jd", User{Username: "jd", FullName: "  "}.DisplayName())
	assert.Equal(t, "J", User{Username: "jd", FullName: "jane"}.Initial())
	assert.Equal(t, "?", User{}.Initial())
	assert.Equal(t, "-", User{}.CreatedDate())
	assert.True(t, User{}.Active())
}
