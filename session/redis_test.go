//go:build integration

package session_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/kanboard/session"
)

func TestRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(t.Context()).Err())

	store := session.NewRedis(client, time.Minute)
	ctx := t.Context()

	token, err := store.Create(ctx, "u-1")
	require.NoError(t, err)

	user, ok, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u-1", user)

	ttl, err := client.TTL(ctx, "kanboard:session:"+token).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, token))
	_, ok, err = store.Get(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}
