package revocation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func TestRedisLedger_ReadsFreshOnEveryCall(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	ctx := context.Background()

	l, err := NewRedisLedgerFromURL(ctx, &RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	ids, err := l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Written by another component directly into Redis.
	_, err = mr.SAdd(DefaultRedisKey, "J1")
	require.NoError(t, err)

	ids, err = l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ids.Contains("J1"))
}

func TestRedisLedger_Revoke(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLedger(client, "custom:key", 0)
	require.NoError(t, l.Revoke(ctx, "J2"))
	require.NoError(t, l.Revoke(ctx, "J2"))

	members, err := mr.Members("custom:key")
	require.NoError(t, err)
	assert.Equal(t, []string{"J2"}, members)

	// Close must not close a client it does not own.
	require.NoError(t, l.Close())
	assert.NoError(t, client.Ping(ctx).Err())
}

func TestRedisLedger_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLedger(client, "", 0)

	mr.SetError("LOADING")
	_, err := l.CurrentRevokedIDs(ctx)
	assert.Error(t, err)
	assert.Error(t, l.Revoke(ctx, "J3"))
}

func TestNewRedisLedgerFromURL_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewRedisLedgerFromURL(ctx, &RedisConfig{URL: "://bad"})
	assert.Error(t, err)

	mr := setupMiniRedis(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisLedgerFromURL(ctx, &RedisConfig{URL: "redis://" + addr})
	assert.Error(t, err)
}
