package ports

import (
	"context"
	"time"

	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/domain/events"
)

// Direction selects which edges of a node to list
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// UpsertOutcome reports what an upsert did
type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
)

// ProjectStats summarizes the stored graph of one project
type ProjectStats struct {
	ProjectKey          string         `json:"project_key"`
	NodeCount           int            `json:"node_count"`
	EdgeCount           int            `json:"edge_count"`
	ChunkCount          int            `json:"chunk_count"`
	EmbeddingCount      int            `json:"embedding_count"`
	DiagnosticCount     int            `json:"diagnostic_count"`
	NodesByType         map[string]int `json:"nodes_by_type"`
	EdgesByRelationship map[string]int `json:"edges_by_relationship"`
	LastIngestedAt      time.Time      `json:"last_ingested_at"`
}

// NodeFilters narrows node lookups by name
type NodeFilters struct {
	Types    []entities.NodeType
	Language string
}

// ChunkFilters narrows chunk search
type ChunkFilters struct {
	ChunkTypes []entities.ChunkType
	Language   string
}

// ChunkHit is a chunk matched by lexical search, with its lexical rank
// normalized to [0, 1].
type ChunkHit struct {
	Chunk       *entities.Chunk
	NodeName    string
	NodePath    string
	LexicalRank float64
}

// ReferenceHit is one symbol occurrence returned by a reference lookup
type ReferenceHit struct {
	Reference *entities.SymbolReference
}

// GraphStore is the port every graph backend implements for nodes, edges,
// references, and diagnostics of one keying scheme.
type GraphStore interface {
	Name() string
	Ping(ctx context.Context) error

	UpsertNode(ctx context.Context, node *entities.Node) (UpsertOutcome, error)
	GetNode(ctx context.Context, projectID, nodeID string) (*entities.Node, error)
	ListNodes(ctx context.Context, projectID string) ([]*entities.Node, error)
	FindNodesByName(ctx context.Context, projectID, name string, filters NodeFilters) ([]*entities.Node, error)

	UpsertEdge(ctx context.Context, edge *entities.Edge) (UpsertOutcome, error)
	ListEdges(ctx context.Context, projectID, nodeID string, direction Direction) ([]*entities.Edge, error)

	AddReference(ctx context.Context, ref *entities.SymbolReference) error
	ListReferences(ctx context.Context, projectID, symbolName string, limit int) ([]ReferenceHit, error)

	AddDiagnostic(ctx context.Context, diag *entities.Diagnostic) error
	ListDiagnostics(ctx context.Context, projectID, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error)

	ProjectStats(ctx context.Context, projectID string) (*ProjectStats, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// ChunkStore is the port for chunk and embedding persistence
type ChunkStore interface {
	AddChunk(ctx context.Context, chunk *entities.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*entities.Chunk, error)
	SupersedeChunks(ctx context.Context, projectID, nodeID string) error
	SearchChunks(ctx context.Context, projectID, query string, filters ChunkFilters, limit int) ([]ChunkHit, error)

	// GetEmbedding returns (nil, nil) when no embedding exists for the chunk
	GetEmbedding(ctx context.Context, chunkID string) (*entities.Embedding, error)
	SetEmbedding(ctx context.Context, embedding *entities.Embedding) error
}

// DependencyEdge is one edge of a computed dependency closure, annotated
// with its hop depth and decayed path weight.
type DependencyEdge struct {
	FromNodeID   string                `json:"from_node_id"`
	ToNodeID     string                `json:"to_node_id"`
	FromName     string                `json:"from_name"`
	ToName       string                `json:"to_name"`
	FromType     entities.NodeType     `json:"from_type"`
	ToType       entities.NodeType     `json:"to_type"`
	Relationship entities.Relationship `json:"relationship"`
	Depth        int                   `json:"depth"`
	Weight       float64               `json:"weight"`
}

// SearchHit is one ranked result of a hybrid search
type SearchHit struct {
	ChunkID      string             `json:"chunk_id"`
	NodeID       string             `json:"node_id"`
	NodeName     string             `json:"node_name"`
	NodePath     string             `json:"node_path"`
	ChunkType    entities.ChunkType `json:"chunk_type"`
	Language     string             `json:"language,omitempty"`
	Content      string             `json:"content"`
	LexicalRank  float64            `json:"lexical_rank"`
	SemanticRank float64            `json:"semantic_rank"`
	Rank         float64            `json:"rank"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Backend is the resolver-facing surface of one storage backend. A backend
// accepts project references of its keying scheme and answers the read
// operations of the query engine.
type Backend interface {
	Name() string
	Accepts(ref valueobjects.ProjectRef) bool
	Ping(ctx context.Context) error

	DependencyGraph(ctx context.Context, ref valueobjects.ProjectRef, roots []string, maxDepth int) ([]DependencyEdge, error)
	Search(ctx context.Context, ref valueobjects.ProjectRef, query string, filters ChunkFilters, limit int) ([]SearchHit, error)
	FindDefinitions(ctx context.Context, ref valueobjects.ProjectRef, name string, filters NodeFilters) ([]*entities.Node, error)
	FindReferences(ctx context.Context, ref valueobjects.ProjectRef, name string, limit int) ([]ReferenceHit, error)
	ListDiagnostics(ctx context.Context, ref valueobjects.ProjectRef, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error)
	Stats(ctx context.Context, ref valueobjects.ProjectRef) (*ProjectStats, error)

	// Stores exposes the underlying ports for the ingestion path
	Stores() (GraphStore, ChunkStore)
}

// BackendResolver orders live backends for a project reference and routes
// writes to the preferred one.
type BackendResolver interface {
	Candidates(ctx context.Context, ref valueobjects.ProjectRef) []Backend
	IngestTarget(ctx context.Context, ref valueobjects.ProjectRef) (Backend, error)
	AcceptingBackends(ref valueobjects.ProjectRef) []Backend
}

// Cache is the port for the query result cache
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key, projectKey string, value interface{}, ttl time.Duration)
	InvalidateProject(ctx context.Context, projectKey string) int
	Clear(ctx context.Context)
}

// EventBus is the port for in-process domain event distribution.
// Publishing is synchronous: all subscribers run before Publish returns.
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	Subscribe(eventType string, handler func(ctx context.Context, event events.DomainEvent) error)
}

// EmbeddingQueue is the port for handing chunks to the background
// embedding worker. Enqueue never blocks the ingestion path.
type EmbeddingQueue interface {
	Enqueue(projectKey string, chunks ChunkStore, chunkID string) bool
}

// ProjectLocker serializes ingestion per project key
type ProjectLocker interface {
	Acquire(ctx context.Context, projectKey string) (release func(), err error)
}
