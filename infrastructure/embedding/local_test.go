package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_Deterministic(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	a, err := p.Embed(ctx, "func getUserProfile() {}")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "func getUserProfile() {}")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, p.Dimensions())
}

func TestLocalProvider_Normalized(t *testing.T) {
	p := NewLocalProvider()

	vector, err := p.Embed(context.Background(), "cache invalidation strategy for query results")
	require.NoError(t, err)

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalProvider_DistinguishesTexts(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	a, err := p.Embed(ctx, "parse json payload")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "render html template")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocalProvider_EmptyText(t *testing.T) {
	p := NewLocalProvider()

	vector, err := p.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vector, p.Dimensions())
	for _, v := range vector {
		assert.Zero(t, v)
	}
}
