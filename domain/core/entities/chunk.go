package entities

import (
	"strings"
	"time"
	"unicode"

	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// ChunkType classifies what part of a code element a chunk captures
type ChunkType string

const (
	ChunkTypeSignature      ChunkType = "signature"
	ChunkTypeImplementation ChunkType = "implementation"
	ChunkTypeDocumentation  ChunkType = "documentation"
	ChunkTypeUsage          ChunkType = "usage"
)

// ParseChunkType validates a raw chunk type string
func ParseChunkType(raw string) (ChunkType, error) {
	switch ChunkType(strings.ToLower(strings.TrimSpace(raw))) {
	case ChunkTypeSignature:
		return ChunkTypeSignature, nil
	case ChunkTypeImplementation:
		return ChunkTypeImplementation, nil
	case ChunkTypeDocumentation:
		return ChunkTypeDocumentation, nil
	case ChunkTypeUsage:
		return ChunkTypeUsage, nil
	default:
		return "", pkgerrors.NewValidationError("unknown chunk type: " + raw)
	}
}

// Chunk is a searchable fragment of text attached to a graph node. Chunks
// are append-only: re-ingesting a node supersedes its old chunks instead of
// mutating them.
type Chunk struct {
	id         valueobjects.ChunkID
	projectID  string
	nodeID     valueobjects.NodeID
	content    string
	chunkType  ChunkType
	language   string
	tokens     []string
	superseded bool
	createdAt  time.Time
}

// NewChunk creates a chunk with validation and a precomputed token index
func NewChunk(projectID string, nodeID valueobjects.NodeID, content string, chunkType ChunkType, language string) (*Chunk, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if nodeID.IsZero() {
		return nil, pkgerrors.NewValidationError("chunk must reference a node")
	}
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidationError("chunk content cannot be empty")
	}
	if _, err := ParseChunkType(string(chunkType)); err != nil {
		return nil, err
	}

	return &Chunk{
		id:        valueobjects.NewChunkID(),
		projectID: projectID,
		nodeID:    nodeID,
		content:   content,
		chunkType: chunkType,
		language:  language,
		tokens:    IndexTokens(content),
		createdAt: time.Now(),
	}, nil
}

// ReconstructChunk reconstructs a chunk from repository data
func ReconstructChunk(
	id valueobjects.ChunkID,
	projectID string,
	nodeID valueobjects.NodeID,
	content string,
	chunkType ChunkType,
	language string,
	superseded bool,
	createdAt time.Time,
) *Chunk {
	return &Chunk{
		id:         id,
		projectID:  projectID,
		nodeID:     nodeID,
		content:    content,
		chunkType:  chunkType,
		language:   language,
		tokens:     IndexTokens(content),
		superseded: superseded,
		createdAt:  createdAt,
	}
}

// ID returns the chunk's unique identifier
func (c *Chunk) ID() valueobjects.ChunkID {
	return c.id
}

// ProjectID returns the owning project's identifier
func (c *Chunk) ProjectID() string {
	return c.projectID
}

// NodeID returns the graph node this chunk belongs to
func (c *Chunk) NodeID() valueobjects.NodeID {
	return c.nodeID
}

// Content returns the chunk text
func (c *Chunk) Content() string {
	return c.content
}

// Type returns the chunk type
func (c *Chunk) Type() ChunkType {
	return c.chunkType
}

// Language returns the source language of the chunk
func (c *Chunk) Language() string {
	return c.language
}

// Tokens returns the lexical index tokens of the chunk content
func (c *Chunk) Tokens() []string {
	out := make([]string, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Superseded reports whether a newer ingestion replaced this chunk
func (c *Chunk) Superseded() bool {
	return c.superseded
}

// Supersede marks the chunk as replaced by a newer ingestion
func (c *Chunk) Supersede() {
	c.superseded = true
}

// CreatedAt returns when the chunk was stored
func (c *Chunk) CreatedAt() time.Time {
	return c.createdAt
}

// Embedding is a vector representation of one chunk, produced by a named
// model. At most one embedding exists per chunk.
type Embedding struct {
	chunkID   valueobjects.ChunkID
	vector    []float32
	model     string
	createdAt time.Time
}

// NewEmbedding creates an embedding with validation
func NewEmbedding(chunkID valueobjects.ChunkID, vector []float32, model string) (*Embedding, error) {
	if chunkID.IsZero() {
		return nil, pkgerrors.NewValidationError("embedding must reference a chunk")
	}
	if len(vector) == 0 {
		return nil, pkgerrors.NewValidationError("embedding vector cannot be empty")
	}
	if model == "" {
		return nil, pkgerrors.NewValidationError("embedding model cannot be empty")
	}

	v := make([]float32, len(vector))
	copy(v, vector)
	return &Embedding{
		chunkID:   chunkID,
		vector:    v,
		model:     model,
		createdAt: time.Now(),
	}, nil
}

// ReconstructEmbedding reconstructs an embedding from repository data
func ReconstructEmbedding(chunkID valueobjects.ChunkID, vector []float32, model string, createdAt time.Time) *Embedding {
	return &Embedding{chunkID: chunkID, vector: vector, model: model, createdAt: createdAt}
}

// ChunkID returns the chunk this embedding covers
func (e *Embedding) ChunkID() valueobjects.ChunkID {
	return e.chunkID
}

// Vector returns the embedding vector
func (e *Embedding) Vector() []float32 {
	return e.vector
}

// Model returns the producing model name
func (e *Embedding) Model() string {
	return e.model
}

// CreatedAt returns when the embedding was computed
func (e *Embedding) CreatedAt() time.Time {
	return e.createdAt
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"this": true, "that": true, "return": true, "returns": true,
}

// IndexTokens extracts lowercase index tokens from code or documentation
// text. Identifiers are split on camelCase and snake_case boundaries so a
// query for "user" matches getUserProfile and user_profile alike.
func IndexTokens(text string) []string {
	words := splitIdentifiers(text)

	tokens := []string{}
	seen := make(map[string]bool)
	for _, word := range words {
		word = strings.ToLower(strings.Trim(word, ".,!?;:\"'()[]{}<>"))
		if len(word) < 2 || stopWords[word] || seen[word] {
			continue
		}
		tokens = append(tokens, word)
		seen[word] = true
	}

	return tokens
}

// splitIdentifiers breaks text into words, splitting identifier-style
// names into their constituent parts while keeping the original word too.
func splitIdentifiers(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	out := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f)

		parts := splitCamelSnake(f)
		if len(parts) > 1 {
			out = append(out, parts...)
		}
	}
	return out
}

func splitCamelSnake(word string) []string {
	var parts []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			parts = append(parts, string(current))
			current = nil
		}
	}

	runes := []rune(word)
	for i, r := range runes {
		switch {
		case r == '_':
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	return parts
}
