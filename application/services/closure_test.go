package services

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	"ckg-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const closureProject = "100"

func seedNode(t *testing.T, store *memory.Store, name string) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(closureProject, entities.NodeTypeSymbol, name, name+".go", "go")
	require.NoError(t, err)
	_, err = store.UpsertNode(context.Background(), node)
	require.NoError(t, err)
	return node
}

func seedEdge(t *testing.T, store *memory.Store, from, to *entities.Node, weight float64) {
	t.Helper()
	edge, err := entities.NewEdge(closureProject, from.ID(), to.ID(), entities.RelationshipCalls, weight, 1.0)
	require.NoError(t, err)
	_, err = store.UpsertEdge(context.Background(), edge)
	require.NoError(t, err)
}

func TestClosure_TerminatesOnCycle(t *testing.T) {
	store := memory.NewStore(zap.NewNop())
	a := seedNode(t, store, "a")
	b := seedNode(t, store, "b")
	c := seedNode(t, store, "c")
	seedEdge(t, store, a, b, 1.0)
	seedEdge(t, store, b, c, 1.0)
	seedEdge(t, store, c, a, 1.0)

	svc := NewClosureService(config.DefaultEngineConfig(), zap.NewNop())
	edges, err := svc.Compute(context.Background(), store, closureProject, []string{a.ID().String()}, 10)
	require.NoError(t, err)

	// each dependency appears once despite the cycle
	assert.Len(t, edges, 3)
}

func TestClosure_DepthBound(t *testing.T) {
	store := memory.NewStore(zap.NewNop())
	a := seedNode(t, store, "a")
	b := seedNode(t, store, "b")
	c := seedNode(t, store, "c")
	d := seedNode(t, store, "d")
	seedEdge(t, store, a, b, 1.0)
	seedEdge(t, store, b, c, 1.0)
	seedEdge(t, store, c, d, 1.0)

	svc := NewClosureService(config.DefaultEngineConfig(), zap.NewNop())
	edges, err := svc.Compute(context.Background(), store, closureProject, []string{a.ID().String()}, 2)
	require.NoError(t, err)

	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.LessOrEqual(t, e.Depth, 2)
	}
}

func TestClosure_DecayedPathWeights(t *testing.T) {
	store := memory.NewStore(zap.NewNop())
	a := seedNode(t, store, "a")
	b := seedNode(t, store, "b")
	c := seedNode(t, store, "c")
	seedEdge(t, store, a, b, 2.0)
	seedEdge(t, store, b, c, 3.0)

	cfg := config.DefaultEngineConfig()
	svc := NewClosureService(cfg, zap.NewNop())
	edges, err := svc.Compute(context.Background(), store, closureProject, []string{a.ID().String()}, 3)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	// first hop carries its raw edge weight; the second hop is the path
	// product attenuated by one decay factor
	assert.Equal(t, 1, edges[0].Depth)
	assert.InDelta(t, 2.0, edges[0].Weight, 1e-9)
	assert.Equal(t, 2, edges[1].Depth)
	assert.InDelta(t, 2.0*3.0*cfg.HopDecay, edges[1].Weight, 1e-9)
}

func TestClosure_OrderedByDepthThenWeight(t *testing.T) {
	store := memory.NewStore(zap.NewNop())
	a := seedNode(t, store, "a")
	light := seedNode(t, store, "light")
	heavy := seedNode(t, store, "heavy")
	seedEdge(t, store, a, light, 1.0)
	seedEdge(t, store, a, heavy, 5.0)

	svc := NewClosureService(config.DefaultEngineConfig(), zap.NewNop())
	edges, err := svc.Compute(context.Background(), store, closureProject, []string{a.ID().String()}, 1)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	assert.Equal(t, "heavy", edges[0].ToName)
	assert.Equal(t, "light", edges[1].ToName)
}

func TestClosure_EmptyRootsWalkEverything(t *testing.T) {
	store := memory.NewStore(zap.NewNop())
	a := seedNode(t, store, "a")
	b := seedNode(t, store, "b")
	c := seedNode(t, store, "c")
	seedEdge(t, store, a, b, 1.0)
	seedEdge(t, store, b, c, 1.0)

	svc := NewClosureService(config.DefaultEngineConfig(), zap.NewNop())
	edges, err := svc.Compute(context.Background(), store, closureProject, nil, 1)
	require.NoError(t, err)

	assert.Len(t, edges, 2)
}

func TestClosure_RejectsNonPositiveDepth(t *testing.T) {
	store := memory.NewStore(zap.NewNop())
	svc := NewClosureService(config.DefaultEngineConfig(), zap.NewNop())

	_, err := svc.Compute(context.Background(), store, closureProject, nil, 0)
	assert.Error(t, err)
}
