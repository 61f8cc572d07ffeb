package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiresAt(t *testing.T) {
	t.Run("reads exp without verifying", func(t *testing.T) {
		exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		token := signedToken(t, exp)

		got, ok := ExpiresAt(token)
		require.True(t, ok)
		assert.True(t, exp.Equal(got))
	})

	t.Run("JWT without exp", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte("k"))
		require.NoError(t, err)

		_, ok := ExpiresAt(token)
		assert.False(t, ok)
	})

	t.Run("opaque token", func(t *testing.T) {
		_, ok := ExpiresAt("b3f1c2d4-opaque")
		assert.False(t, ok)
	})
}
