package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/entity-store/internal/core/cache"
	rediscache "github.com/unifiedui/entity-store/internal/infrastructure/cache/redis"
)

var _ cache.Client = (*rediscache.Client)(nil)

func setupMiniredis(t *testing.T, cfg rediscache.Config) (*miniredis.Miniredis, *rediscache.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg.Host = mr.Host()
	cfg.Port = mr.Port()

	client, err := rediscache.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	client, err := rediscache.NewClient(context.Background(), rediscache.Config{Host: host, Port: port})

	assert.Nil(t, client)
	assert.Error(t, err)
}

func TestClient_SetAndGet(t *testing.T) {
	mr, client := setupMiniredis(t, rediscache.Config{})
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "entity:sys_user:1", []byte("payload"), time.Minute))

	result, err := client.Get(ctx, "entity:sys_user:1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), result)
	assert.True(t, mr.Exists("entitystore:entity:sys_user:1"))
}

func TestClient_CustomPrefix(t *testing.T) {
	mr, client := setupMiniredis(t, rediscache.Config{KeyPrefix: "svc:"})

	require.NoError(t, client.Set(context.Background(), "k", []byte("v"), time.Minute))

	assert.Equal(t, []string{"svc:k"}, mr.Keys())
}

func TestClient_GetMissing(t *testing.T) {
	_, client := setupMiniredis(t, rediscache.Config{})

	result, err := client.Get(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestClient_Delete(t *testing.T) {
	_, client := setupMiniredis(t, rediscache.Config{})
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))

	deleted, err := client.Delete(ctx, "k")
	assert.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = client.Delete(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestClient_DeletePattern(t *testing.T) {
	mr, client := setupMiniredis(t, rediscache.Config{})
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "entity:sys_user:1", []byte("a"), time.Minute))
	require.NoError(t, client.Set(ctx, "entity:sys_user:2", []byte("b"), time.Minute))
	require.NoError(t, client.Set(ctx, "entity:sys_role:1", []byte("c"), time.Minute))
	mr.Set("foreign:entity:sys_user:3", "untouched")

	deleted, err := client.DeletePattern(ctx, "entity:sys_user:*")

	assert.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	keys := mr.Keys()
	assert.Contains(t, keys, "entitystore:entity:sys_role:1")
	assert.Contains(t, keys, "foreign:entity:sys_user:3")
	assert.NotContains(t, keys, "entitystore:entity:sys_user:1")
}

func TestClient_DefaultTTL(t *testing.T) {
	mr, client := setupMiniredis(t, rediscache.Config{DefaultTTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, time.Minute, mr.TTL("entitystore:k"))

	mr.FastForward(2 * time.Minute)

	result, err := client.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestClient_Ping(t *testing.T) {
	_, client := setupMiniredis(t, rediscache.Config{})

	assert.NoError(t, client.Ping(context.Background()))
}
