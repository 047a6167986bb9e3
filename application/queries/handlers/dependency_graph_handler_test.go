package handlers

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/queries"
	"ckg-backend/application/services"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/infrastructure/cache"
	"ckg-backend/infrastructure/persistence/memory"
	"ckg-backend/infrastructure/resolver"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEmbedder struct{}

func (staticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

type queryFixture struct {
	handler *DependencyGraphHandler
	store   *memory.Store
	cache   *cache.QueryCache
	ref     valueobjects.ProjectRef
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.DefaultEngineConfig()
	metrics := observability.NewMetrics("test_query")

	store := memory.NewStore(logger)
	backend := services.NewStoreBackend("memory", nil, store, store, staticEmbedder{}, cfg, logger)
	res := resolver.NewBackendResolver(logger)
	res.Register(backend)

	executor := services.NewQueryExecutor(res, time.Second, metrics, logger)
	queryCache := cache.NewQueryCache(time.Minute, metrics, logger)
	t.Cleanup(queryCache.Stop)

	ref, err := valueobjects.ParseProjectRef("42")
	require.NoError(t, err)

	return &queryFixture{
		handler: NewDependencyGraphHandler(executor, queryCache, time.Minute, cfg, metrics, logger),
		store:   store,
		cache:   queryCache,
		ref:     ref,
	}
}

func (f *queryFixture) seedEdge(t *testing.T) *entities.Node {
	t.Helper()
	ctx := context.Background()

	from, err := entities.NewNode("42", entities.NodeTypeSymbol, "caller", "a.go", "go")
	require.NoError(t, err)
	to, err := entities.NewNode("42", entities.NodeTypeSymbol, "callee", "b.go", "go")
	require.NoError(t, err)
	for _, n := range []*entities.Node{from, to} {
		_, err := f.store.UpsertNode(ctx, n)
		require.NoError(t, err)
	}

	edge, err := entities.NewEdge("42", from.ID(), to.ID(), entities.RelationshipCalls, 1, 1)
	require.NoError(t, err)
	_, err = f.store.UpsertEdge(ctx, edge)
	require.NoError(t, err)
	return from
}

func TestDependencyGraphHandler_ServesAndCaches(t *testing.T) {
	f := newQueryFixture(t)
	root := f.seedEdge(t)
	ctx := context.Background()

	query := queries.DependencyGraphQuery{ProjectRef: f.ref, Roots: []string{root.ID().String()}, MaxDepth: 3}

	result, err := f.handler.Handle(ctx, query)
	require.NoError(t, err)
	out, ok := result.(*queries.DependencyGraphResult)
	require.True(t, ok)
	assert.Equal(t, "memory", out.Backend)
	assert.Equal(t, "42", out.ProjectKey)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, "callee", out.Edges[0].ToName)

	// second ask is served from cache: identical pointer comes back
	again, err := f.handler.Handle(ctx, query)
	require.NoError(t, err)
	assert.Same(t, out, again.(*queries.DependencyGraphResult))
}

func TestDependencyGraphHandler_NoDataIsNilNil(t *testing.T) {
	f := newQueryFixture(t)

	result, err := f.handler.Handle(context.Background(), queries.DependencyGraphQuery{
		ProjectRef: f.ref,
		MaxDepth:   3,
	})

	require.NoError(t, err)
	assert.Nil(t, result)

	// empty answers are never cached
	_, cached := f.cache.Get(context.Background(), services.CacheKey("dependency_graph", f.ref, "", "3"))
	assert.False(t, cached)
}

func TestDependencyGraphHandler_InvalidationDropsCachedResult(t *testing.T) {
	f := newQueryFixture(t)
	root := f.seedEdge(t)
	ctx := context.Background()

	query := queries.DependencyGraphQuery{ProjectRef: f.ref, Roots: []string{root.ID().String()}, MaxDepth: 3}
	first, err := f.handler.Handle(ctx, query)
	require.NoError(t, err)

	f.cache.InvalidateProject(ctx, "42")

	second, err := f.handler.Handle(ctx, query)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestDependencyGraphHandler_DepthOverLimit(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.handler.Handle(context.Background(), queries.DependencyGraphQuery{
		ProjectRef: f.ref,
		MaxDepth:   config.DefaultEngineConfig().MaxDepthLimit + 1,
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}
