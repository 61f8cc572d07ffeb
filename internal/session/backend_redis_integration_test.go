package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against REDIS_URL when set, e.g. REDIS_URL=redis://localhost:6379/15.
func TestRedisBackendIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	namespace := "test:" + uuid.NewString()
	store := NewStore(NewRedisBackend(client, time.Minute), namespace)

	require.NoError(t, store.Set(ctx, Session{Token: "t", User: testUser()}))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Token)

	ttl, err := client.TTL(ctx, namespace+":user").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	t.Run("reads slide the expiry of both keys", func(t *testing.T) {
		keys := []string{namespace + ":" + KeyToken, namespace + ":" + KeyUser}
		for _, k := range keys {
			require.NoError(t, client.Expire(ctx, k, 5*time.Second).Err())
		}

		_, err := store.Get(ctx)
		require.NoError(t, err)

		for _, k := range keys {
			ttl, err := client.TTL(ctx, k).Result()
			require.NoError(t, err)
			assert.Greater(t, ttl, 50*time.Second, k)
		}
	})

	t.Run("reading a missing session creates nothing", func(t *testing.T) {
		other := NewStore(NewRedisBackend(client, time.Minute), "test:"+uuid.NewString())
		_, err := other.Get(ctx)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}
