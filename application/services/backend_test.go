package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchProject = "7"

type fixedEmbedder struct {
	vec []float32
	err error
}

func (e fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

func newSearchBackend(t *testing.T, embedder QueryEmbedder) (*StoreBackend, *memory.Store) {
	t.Helper()
	store := memory.NewStore(zap.NewNop())
	backend := NewStoreBackend("memory", nil, store, store, embedder, config.DefaultEngineConfig(), zap.NewNop())
	return backend, store
}

func seedChunk(t *testing.T, store *memory.Store, name, content string) *entities.Chunk {
	t.Helper()
	ctx := context.Background()

	node, err := entities.NewNode(searchProject, entities.NodeTypeSymbol, name, name+".go", "go")
	require.NoError(t, err)
	_, err = store.UpsertNode(ctx, node)
	require.NoError(t, err)

	chunk, err := entities.NewChunk(searchProject, node.ID(), content, entities.ChunkTypeImplementation, "go")
	require.NoError(t, err)
	require.NoError(t, store.AddChunk(ctx, chunk))
	return chunk
}

func seedEmbedding(t *testing.T, store *memory.Store, chunk *entities.Chunk, vec []float32) {
	t.Helper()
	emb, err := entities.NewEmbedding(chunk.ID(), vec, "test-model")
	require.NoError(t, err)
	require.NoError(t, store.SetEmbedding(context.Background(), emb))
}

func searchRef(t *testing.T) valueobjects.ProjectRef {
	t.Helper()
	ref, err := valueobjects.ParseProjectRef(searchProject)
	require.NoError(t, err)
	return ref
}

func TestSearch_LexicalOnlyWithoutEmbeddings(t *testing.T) {
	backend, store := newSearchBackend(t, fixedEmbedder{vec: []float32{1, 0}})
	full := seedChunk(t, store, "parseToken", "token parser")
	partial := seedChunk(t, store, "readStream", "token stream")

	hits, err := backend.Search(context.Background(), searchRef(t), "token parser", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, full.ID().String(), hits[0].ChunkID)
	assert.Equal(t, partial.ID().String(), hits[1].ChunkID)
	for _, hit := range hits {
		assert.Zero(t, hit.SemanticRank)
		assert.Equal(t, hit.LexicalRank, hit.Rank)
	}
}

func TestSearch_EmbedderFailureDegradesToLexical(t *testing.T) {
	backend, store := newSearchBackend(t, fixedEmbedder{err: errors.New("model down")})
	chunk := seedChunk(t, store, "parseToken", "token parser")
	seedEmbedding(t, store, chunk, []float32{1, 0})

	hits, err := backend.Search(context.Background(), searchRef(t), "token parser", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].SemanticRank)
	assert.Equal(t, hits[0].LexicalRank, hits[0].Rank)
}

func TestSearch_BlendsEmbeddingsAboveThreshold(t *testing.T) {
	backend, store := newSearchBackend(t, fixedEmbedder{vec: []float32{1, 0}})
	cfg := config.DefaultEngineConfig()

	exact := seedChunk(t, store, "parseToken", "token parser")
	aligned := seedChunk(t, store, "readStream", "token stream")
	orthogonal := seedChunk(t, store, "flushBuffer", "token buffer")

	seedEmbedding(t, store, aligned, []float32{1, 0})
	seedEmbedding(t, store, orthogonal, []float32{0, 1})

	hits, err := backend.Search(context.Background(), searchRef(t), "token parser", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// exact lexical match stays on top, the blended hit beats the plain one
	assert.Equal(t, exact.ID().String(), hits[0].ChunkID)
	assert.Equal(t, aligned.ID().String(), hits[1].ChunkID)
	assert.Equal(t, orthogonal.ID().String(), hits[2].ChunkID)

	assert.InDelta(t, 1.0, hits[1].SemanticRank, 1e-9)
	blended := (cfg.LexicalWeight*hits[1].LexicalRank + cfg.SemanticWeight*1.0) /
		(cfg.LexicalWeight + cfg.SemanticWeight)
	assert.InDelta(t, blended, hits[1].Rank, 1e-9)

	// similarity 0 stays under the threshold, no semantic contribution
	assert.Zero(t, hits[2].SemanticRank)
	assert.Equal(t, hits[2].LexicalRank, hits[2].Rank)
}

func TestSearch_RankTiesBreakByRecency(t *testing.T) {
	backend, store := newSearchBackend(t, nil)
	older := seedChunk(t, store, "parseToken", "token parser")
	time.Sleep(2 * time.Millisecond)
	newer := seedChunk(t, store, "scanToken", "token parser")

	hits, err := backend.Search(context.Background(), searchRef(t), "token parser", ports.ChunkFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, newer.ID().String(), hits[0].ChunkID)
	assert.Equal(t, older.ID().String(), hits[1].ChunkID)
}

func TestFindDefinitions_NewestFirst(t *testing.T) {
	backend, store := newSearchBackend(t, nil)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	older, err := entities.ReconstructNode(
		valueobjects.NewDeterministicNodeID(searchProject, string(entities.NodeTypeSymbol), "a.js", "main"),
		searchProject, entities.NodeTypeSymbol, "main", "a.js", "javascript",
		nil, "", base, base)
	require.NoError(t, err)
	newer, err := entities.ReconstructNode(
		valueobjects.NewDeterministicNodeID(searchProject, string(entities.NodeTypeSymbol), "z.js", "main"),
		searchProject, entities.NodeTypeSymbol, "main", "z.js", "javascript",
		nil, "", base.Add(time.Minute), base.Add(time.Minute))
	require.NoError(t, err)

	_, err = store.UpsertNode(ctx, older)
	require.NoError(t, err)
	_, err = store.UpsertNode(ctx, newer)
	require.NoError(t, err)

	defs, err := backend.FindDefinitions(ctx, searchRef(t), "main", ports.NodeFilters{})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "z.js", defs[0].Path())
	assert.Equal(t, "a.js", defs[1].Path())
}
