package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	c := New(s.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))
	return c, s
}

type item struct {
	Name string `json:"name"`
}

func TestGetOrLoadJSON_CachesValue(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	var calls int
	load := func(context.Context) (*item, error) {
		calls++
		return &item{Name: "ann"}, nil
	}

	got, err := GetOrLoadJSON(c, ctx, "user:1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)

	got, err = GetOrLoadJSON(c, ctx, "user:1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)
	assert.Equal(t, 1, calls)

	raw, err := s.Get("user:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ann"}`, raw)
	assert.Equal(t, time.Minute, s.TTL("user:1"))
}

func TestGetOrLoadJSON_ErrorsNotCached(t *testing.T) {
	c, s := newTestCache(t)
	boom := errors.New("boom")

	_, err := GetOrLoadJSON(c, context.Background(), "user:2", time.Minute, func(context.Context) (*item, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Exists("user:2"))
}

func TestDelete_Invalidates(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, s.Set("user:1", `{"name":"old"}`))
	require.NoError(t, s.Set("user:2", `{"name":"old"}`))

	require.NoError(t, c.Delete(ctx, "user:1", "user:2"))
	require.NoError(t, c.Delete(ctx))

	got, err := GetOrLoadJSON(c, ctx, "user:1", time.Minute, func(context.Context) (*item, error) {
		return &item{Name: "new"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.False(t, s.Exists("user:2"))
}

func TestGetOrLoad_RedisDownFallsBackToLoad(t *testing.T) {
	c, s := newTestCache(t)
	s.Close()

	b, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", string(b))
}

func TestNoop(t *testing.T) {
	var calls int
	for i := 0; i < 2; i++ {
		b, err := Noop{}.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
			calls++
			return []byte("v"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "v", string(b))
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, Noop{}.Delete(context.Background(), "k"))
}
