package management

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCacheInvalidateStartsNewGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	ctx := context.Background()
	from, to := MonthRange(may)

	_, ok, err := cache.Lookup(ctx, from, to)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Put(ctx, Summary{From: from, To: to, SalesCount: 3, Revenue: decimal.NewFromInt(90)}))
	got, ok, err := cache.Lookup(ctx, from, to)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, got.SalesCount)
	require.True(t, got.Revenue.Equal(decimal.NewFromInt(90)))

	sub := client.Subscribe(ctx, invalidateChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx))
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "2", msg.Payload)

	_, ok, err = cache.Lookup(ctx, from, to)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNilCacheIsDisabled(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, ok, err := cache.Lookup(ctx, may, may)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.Put(ctx, Summary{}))
	require.NoError(t, cache.Invalidate(ctx))
}
