package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"ckg-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) *QueryCache {
	t.Helper()
	c := NewQueryCache(ttl, observability.NewMetrics("test_cache"), zap.NewNop())
	t.Cleanup(c.Stop)
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "search|42|user", "42", "result", 0)

	value, ok := c.Get(ctx, "search|42|user")
	require.True(t, ok)
	assert.Equal(t, "result", value)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", "42", "v", 10*time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCache_InvalidateProject(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "search|42|user", "42", "a", 0)
	c.Set(ctx, "stats|42", "42", "b", 0)
	c.Set(ctx, "stats|7", "7", "c", 0)

	removed := c.InvalidateProject(ctx, "42")
	assert.Equal(t, 2, removed)

	_, ok := c.Get(ctx, "search|42|user")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "stats|42")
	assert.False(t, ok)

	// other projects keep their entries
	value, ok := c.Get(ctx, "stats|7")
	require.True(t, ok)
	assert.Equal(t, "c", value)

	assert.Zero(t, c.InvalidateProject(ctx, "42"))
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "a", "1", "x", 0)
	c.Set(ctx, "b", "2", "y", 0)
	c.Clear(ctx)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
}

func TestCache_OverwriteKeepsSingleProjectIndexEntry(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", "42", "old", 0)
	c.Set(ctx, "k", "42", "new", 0)

	value, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "new", value)

	assert.Equal(t, 1, c.InvalidateProject(ctx, "42"))
}
