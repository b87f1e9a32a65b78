package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int `json:"value"`
}

func newTestCache(t *testing.T) *Versioned {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "catalog", time.Minute)
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Value: calls}, nil
	}

	key, err := c.BuildKey(ctx, "list", "all")
	require.NoError(t, err)
	assert.Equal(t, "catalog:list:all:v1", key)

	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 1, got.Value)

	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 1, got.Value)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "list", "all")
	require.NoError(t, err)
	assert.Equal(t, "catalog:list:all:v2", key)

	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, got.Value)
	assert.Equal(t, 2, calls)
}

func TestFetchJSONWithoutClientCallsLoader(t *testing.T) {
	var c *Versioned
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "list", "all")
	require.NoError(t, err)
	assert.Equal(t, "list:all", key)

	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (any, error) {
		return payload{Value: 7}, nil
	}))
	assert.Equal(t, 7, got.Value)
	assert.NoError(t, c.Bump(ctx))
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c := newTestCache(t)
	boom := errors.New("boom")

	var got payload
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
