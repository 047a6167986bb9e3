package entities

import (
	"testing"

	"ckg-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunk(t *testing.T) {
	nodeID := valueobjects.NewDeterministicNodeID("proj-1", "symbol", "a.go", "handler")

	chunk, err := NewChunk("proj-1", nodeID, "func getUserProfile() {}", ChunkTypeImplementation, "go")
	require.NoError(t, err)

	assert.False(t, chunk.ID().IsZero())
	assert.False(t, chunk.Superseded())
	assert.NotEmpty(t, chunk.Tokens())

	chunk.Supersede()
	assert.True(t, chunk.Superseded())
}

func TestNewChunk_Validation(t *testing.T) {
	nodeID := valueobjects.NewDeterministicNodeID("proj-1", "symbol", "a.go", "handler")

	_, err := NewChunk("", nodeID, "content", ChunkTypeImplementation, "go")
	assert.Error(t, err)

	_, err = NewChunk("proj-1", valueobjects.NodeID{}, "content", ChunkTypeImplementation, "go")
	assert.Error(t, err)

	_, err = NewChunk("proj-1", nodeID, "   ", ChunkTypeImplementation, "go")
	assert.Error(t, err)

	_, err = NewChunk("proj-1", nodeID, "content", ChunkType("blob"), "go")
	assert.Error(t, err)
}

func TestIndexTokens_SplitsIdentifiers(t *testing.T) {
	tokens := IndexTokens("func getUserProfile(user_id string)")

	assert.Contains(t, tokens, "getuserprofile")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "profile")
	assert.Contains(t, tokens, "get")
	assert.Contains(t, tokens, "id")
	assert.Contains(t, tokens, "string")
}

func TestIndexTokens_DropsStopWordsAndShortTokens(t *testing.T) {
	tokens := IndexTokens("the cache is a map")

	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "is")
	assert.NotContains(t, tokens, "a")
	assert.Contains(t, tokens, "cache")
	assert.Contains(t, tokens, "map")
}

func TestIndexTokens_Dedupes(t *testing.T) {
	tokens := IndexTokens("cache cache CACHE")
	assert.Equal(t, []string{"cache"}, tokens)
}

func TestNewEmbedding(t *testing.T) {
	chunkID := valueobjects.NewChunkID()

	emb, err := NewEmbedding(chunkID, []float32{0.1, 0.2}, "local-feature-hash-v1")
	require.NoError(t, err)
	assert.Equal(t, chunkID, emb.ChunkID())

	// the stored vector is a copy
	src := []float32{1, 2}
	emb, err = NewEmbedding(chunkID, src, "m")
	require.NoError(t, err)
	src[0] = 99
	assert.Equal(t, float32(1), emb.Vector()[0])

	_, err = NewEmbedding(valueobjects.ChunkID{}, []float32{1}, "m")
	assert.Error(t, err)
	_, err = NewEmbedding(chunkID, nil, "m")
	assert.Error(t, err)
	_, err = NewEmbedding(chunkID, []float32{1}, "")
	assert.Error(t, err)
}
