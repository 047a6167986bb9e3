package memory

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = "42"

func newNode(t *testing.T, name, path string) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(project, entities.NodeTypeSymbol, name, path, "go")
	require.NoError(t, err)
	return node
}

func TestUpsertNode_CreateThenUpdate(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	outcome, err := store.UpsertNode(ctx, newNode(t, "handler", "a.go"))
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertCreated, outcome)

	// same identity tuple converges onto the existing row
	outcome, err = store.UpsertNode(ctx, newNode(t, "handler", "a.go"))
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertUpdated, outcome)

	nodes, err := store.ListNodes(ctx, project)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestUpsertNode_CreatedAtSurvivesReingestion(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	first := newNode(t, "handler", "a.go")
	_, err := store.UpsertNode(ctx, first)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	second := newNode(t, "handler", "a.go")
	second.SetMetadata("kind", "function")
	_, err = store.UpsertNode(ctx, second)
	require.NoError(t, err)

	stored, err := store.GetNode(ctx, project, first.ID().String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.CreatedAt().Equal(first.CreatedAt()))
	assert.True(t, stored.UpdatedAt().After(stored.CreatedAt()))
	assert.Equal(t, "function", stored.Metadata()["kind"])
}

func TestUpsertEdge_AccumulatesWeight(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	from := newNode(t, "caller", "a.go")
	to := newNode(t, "callee", "b.go")
	_, err := store.UpsertNode(ctx, from)
	require.NoError(t, err)
	_, err = store.UpsertNode(ctx, to)
	require.NoError(t, err)

	edge, err := entities.NewEdge(project, from.ID(), to.ID(), entities.RelationshipCalls, 1.0, 0.5)
	require.NoError(t, err)
	outcome, err := store.UpsertEdge(ctx, edge)
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertCreated, outcome)

	again, err := entities.NewEdge(project, from.ID(), to.ID(), entities.RelationshipCalls, 2.0, 0.9)
	require.NoError(t, err)
	outcome, err = store.UpsertEdge(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertUpdated, outcome)

	edges, err := store.ListEdges(ctx, project, from.ID().String(), ports.DirectionOut)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.InDelta(t, 3.0, edges[0].Weight(), 1e-9)
	assert.InDelta(t, 0.9, edges[0].Confidence(), 1e-9)
}

func TestListEdges_Directions(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	a := newNode(t, "a", "a.go")
	b := newNode(t, "b", "b.go")
	c := newNode(t, "c", "c.go")
	for _, n := range []*entities.Node{a, b, c} {
		_, err := store.UpsertNode(ctx, n)
		require.NoError(t, err)
	}

	ab, err := entities.NewEdge(project, a.ID(), b.ID(), entities.RelationshipCalls, 1, 1)
	require.NoError(t, err)
	cb, err := entities.NewEdge(project, c.ID(), b.ID(), entities.RelationshipCalls, 1, 1)
	require.NoError(t, err)
	for _, e := range []*entities.Edge{ab, cb} {
		_, err := store.UpsertEdge(ctx, e)
		require.NoError(t, err)
	}

	out, err := store.ListEdges(ctx, project, a.ID().String(), ports.DirectionOut)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	in, err := store.ListEdges(ctx, project, b.ID().String(), ports.DirectionIn)
	require.NoError(t, err)
	assert.Len(t, in, 2)

	both, err := store.ListEdges(ctx, project, b.ID().String(), ports.DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func seedReference(t *testing.T, store *Store, line int, createdAt time.Time) {
	t.Helper()
	ref := entities.ReconstructSymbolReference(
		valueobjects.NewNodeID(), project, "formatDate", valueobjects.NodeID{},
		"src/app.js", entities.ReferenceTypeCall,
		valueobjects.Position{Line: line, Column: 1}, "", createdAt)
	require.NoError(t, store.AddReference(context.Background(), ref))
}

func TestListReferences_MostRecentFirstBeforeLimit(t *testing.T) {
	store := NewStore(zap.NewNop())
	base := time.Now().Add(-time.Hour)

	seedReference(t, store, 1, base)
	seedReference(t, store, 2, base.Add(time.Minute))
	seedReference(t, store, 3, base.Add(2*time.Minute))

	hits, err := store.ListReferences(context.Background(), project, "formatDate", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 3, hits[0].Reference.Position().Line)
	assert.Equal(t, 2, hits[1].Reference.Position().Line)
}

func TestFindNodesByName_Filters(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	symbol, err := entities.NewNode(project, entities.NodeTypeSymbol, "Parse", "a.go", "go")
	require.NoError(t, err)
	typed, err := entities.NewNode(project, entities.NodeTypeType, "Parse", "b.py", "python")
	require.NoError(t, err)
	for _, n := range []*entities.Node{symbol, typed} {
		_, err := store.UpsertNode(ctx, n)
		require.NoError(t, err)
	}

	all, err := store.FindNodesByName(ctx, project, "Parse", ports.NodeFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyTypes, err := store.FindNodesByName(ctx, project, "Parse", ports.NodeFilters{
		Types: []entities.NodeType{entities.NodeTypeType},
	})
	require.NoError(t, err)
	require.Len(t, onlyTypes, 1)
	assert.Equal(t, entities.NodeTypeType, onlyTypes[0].Type())

	// language filter is case-insensitive
	onlyGo, err := store.FindNodesByName(ctx, project, "Parse", ports.NodeFilters{Language: "GO"})
	require.NoError(t, err)
	assert.Len(t, onlyGo, 1)

	none, err := store.FindNodesByName(ctx, project, "Missing", ports.NodeFilters{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChunks_SupersedeAndSearch(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	node := newNode(t, "getUserProfile", "user.go")
	_, err := store.UpsertNode(ctx, node)
	require.NoError(t, err)

	old, err := entities.NewChunk(project, node.ID(), "func getUserProfile() old body", entities.ChunkTypeImplementation, "go")
	require.NoError(t, err)
	require.NoError(t, store.AddChunk(ctx, old))

	hits, err := store.SearchChunks(ctx, project, "getUserProfile", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "getUserProfile", hits[0].NodeName)
	assert.Equal(t, "user.go", hits[0].NodePath)

	// re-ingesting the node supersedes the old chunk
	require.NoError(t, store.SupersedeChunks(ctx, project, node.ID().String()))
	fresh, err := entities.NewChunk(project, node.ID(), "func getUserProfile() new body", entities.ChunkTypeImplementation, "go")
	require.NoError(t, err)
	require.NoError(t, store.AddChunk(ctx, fresh))

	hits, err = store.SearchChunks(ctx, project, "getUserProfile", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, fresh.ID(), hits[0].Chunk.ID())
}

func TestSearchChunks_FiltersAndRanking(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	node := newNode(t, "cache", "cache.go")
	_, err := store.UpsertNode(ctx, node)
	require.NoError(t, err)

	strong, err := entities.NewChunk(project, node.ID(), "query cache invalidate eviction", entities.ChunkTypeImplementation, "go")
	require.NoError(t, err)
	weak, err := entities.NewChunk(project, node.ID(), "cache something unrelated", entities.ChunkTypeDocumentation, "go")
	require.NoError(t, err)
	require.NoError(t, store.AddChunk(ctx, strong))
	require.NoError(t, store.AddChunk(ctx, weak))

	hits, err := store.SearchChunks(ctx, project, "cache invalidate", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, strong.ID(), hits[0].Chunk.ID())
	assert.Greater(t, hits[0].LexicalRank, hits[1].LexicalRank)

	docsOnly, err := store.SearchChunks(ctx, project, "cache", ports.ChunkFilters{
		ChunkTypes: []entities.ChunkType{entities.ChunkTypeDocumentation},
	}, 10)
	require.NoError(t, err)
	require.Len(t, docsOnly, 1)
	assert.Equal(t, weak.ID(), docsOnly[0].Chunk.ID())
}

func TestEmbeddings(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	node := newNode(t, "x", "x.go")
	_, err := store.UpsertNode(ctx, node)
	require.NoError(t, err)

	chunk, err := entities.NewChunk(project, node.ID(), "content here", entities.ChunkTypeImplementation, "go")
	require.NoError(t, err)
	require.NoError(t, store.AddChunk(ctx, chunk))

	// missing embedding is (nil, nil)
	emb, err := store.GetEmbedding(ctx, chunk.ID().String())
	require.NoError(t, err)
	assert.Nil(t, emb)

	created, err := entities.NewEmbedding(chunk.ID(), []float32{0.1, 0.2}, "m")
	require.NoError(t, err)
	require.NoError(t, store.SetEmbedding(ctx, created))

	emb, err = store.GetEmbedding(ctx, chunk.ID().String())
	require.NoError(t, err)
	require.NotNil(t, emb)
	assert.Equal(t, "m", emb.Model())

	// embeddings must reference a stored chunk
	orphan, err := entities.NewEmbedding(chunk.ID(), []float32{1}, "m")
	require.NoError(t, err)
	require.NoError(t, store.DeleteProject(ctx, project))
	assert.Error(t, store.SetEmbedding(ctx, orphan))
}

func TestDeleteProject_Cascades(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	node := newNode(t, "handler", "a.go")
	_, err := store.UpsertNode(ctx, node)
	require.NoError(t, err)

	chunk, err := entities.NewChunk(project, node.ID(), "handler body", entities.ChunkTypeImplementation, "go")
	require.NoError(t, err)
	require.NoError(t, store.AddChunk(ctx, chunk))

	emb, err := entities.NewEmbedding(chunk.ID(), []float32{1}, "m")
	require.NoError(t, err)
	require.NoError(t, store.SetEmbedding(ctx, emb))

	require.NoError(t, store.DeleteProject(ctx, project))

	nodes, err := store.ListNodes(ctx, project)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	hits, err := store.SearchChunks(ctx, project, "handler", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	got, err := store.GetEmbedding(ctx, chunk.ID().String())
	require.NoError(t, err)
	assert.Nil(t, got)

	stats, err := store.ProjectStats(ctx, project)
	require.NoError(t, err)
	if stats != nil {
		assert.Zero(t, stats.NodeCount)
		assert.Zero(t, stats.ChunkCount)
	}
}

func TestProjectStats(t *testing.T) {
	store := NewStore(zap.NewNop())
	ctx := context.Background()

	a := newNode(t, "a", "a.go")
	b := newNode(t, "b", "b.go")
	_, err := store.UpsertNode(ctx, a)
	require.NoError(t, err)
	_, err = store.UpsertNode(ctx, b)
	require.NoError(t, err)

	edge, err := entities.NewEdge(project, a.ID(), b.ID(), entities.RelationshipCalls, 1, 1)
	require.NoError(t, err)
	_, err = store.UpsertEdge(ctx, edge)
	require.NoError(t, err)

	stats, err := store.ProjectStats(ctx, project)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, 2, stats.NodesByType[string(entities.NodeTypeSymbol)])
	assert.Equal(t, 1, stats.EdgesByRelationship[string(entities.RelationshipCalls)])
	assert.False(t, stats.LastIngestedAt.IsZero())
}
