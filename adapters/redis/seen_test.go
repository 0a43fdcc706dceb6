package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSeenTxCache(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis is not available: %v", err)
	}

	cache := NewSeenTxCache(client, 200*time.Millisecond, "seen-test-")
	hash := common.HexToHash("0x0102030405060708091011121314151617181920212223242526272829303132")
	require.NoError(t, client.Del(ctx, "seen-test-"+hash.Hex()).Err())

	seen, err := cache.IsSeen(ctx, hash)
	require.NoError(t, err)
	require.False(t, seen)

	first, err := cache.MarkSeen(ctx, hash)
	require.NoError(t, err)
	require.True(t, first)

	first, err = cache.MarkSeen(ctx, hash)
	require.NoError(t, err)
	require.False(t, first)

	seen, err = cache.IsSeen(ctx, hash)
	require.NoError(t, err)
	require.True(t, seen)

	require.Eventually(t, func() bool {
		first, err := cache.MarkSeen(ctx, hash)
		return err == nil && first
	}, 2*time.Second, 50*time.Millisecond)
}
