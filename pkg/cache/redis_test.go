package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twitterlite/twitterlite/pkg/cache"
)

func newTestClient(t *testing.T) *cache.RedisClient {
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(mr.Addr(), "", 0, 10, 0)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHashOperations(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.HSet(ctx, "users:1", map[string]interface{}{"uid": 1, "email": "a@example.com"}))

	email, err := client.HGet(ctx, "users:1", "email")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	_, err = client.HGet(ctx, "users:1", "missing")
	assert.True(t, cache.IsNil(err))

	var dest struct {
		UID   int64  `redis:"uid"`
		Email string `redis:"email"`
	}
	require.NoError(t, client.HScan(ctx, "users:1", &dest))
	assert.Equal(t, int64(1), dest.UID)
	assert.Equal(t, "a@example.com", dest.Email)

	require.NoError(t, client.HDel(ctx, "users:1", "uid", "email"))
	all, err := client.HGetAll(ctx, "users:1")
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := client.Exists(ctx, "users:1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSetAndCounterOperations(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	require.NoError(t, client.SAdd(ctx, "uids", 1, 2))
	ok, err := client.SIsMember(ctx, "uids", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.SRem(ctx, "uids", 2))
	members, err := client.SMembers(ctx, "uids")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)

	first, err := client.Incr(ctx, "tid")
	require.NoError(t, err)
	second, err := client.Incr(ctx, "tid")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	require.NoError(t, client.FlushAll(ctx))
	members, err = client.SMembers(ctx, "uids")
	require.NoError(t, err)
	assert.Empty(t, members)
}
