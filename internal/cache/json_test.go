package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTripAndDelete(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewJSON(client, "test:", time.Minute)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}))
	require.True(t, mr.Exists("test:k"))

	var got payload
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", got.Name)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetNXKeepsExistingValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewJSON(client, "test:", time.Minute)
	ctx := context.Background()

	written, err := c.SetNX(ctx, "k", "first")
	require.NoError(t, err)
	require.True(t, written)

	written, err = c.SetNX(ctx, "k", "second")
	require.NoError(t, err)
	require.False(t, written)

	var got string
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", got)
	require.Equal(t, time.Minute, mr.TTL("test:k"))
}

func TestNilCacheIsEmpty(t *testing.T) {
	var c *JSON
	ok, err := c.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, c.Set(context.Background(), "k", 1))
	require.NoError(t, c.Delete(context.Background(), "k"))
	written, err := c.SetNX(context.Background(), "k", 1)
	require.NoError(t, err)
	require.False(t, written)
}
