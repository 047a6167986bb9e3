package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	pkgerrors "ckg-backend/pkg/errors"
)

// Store is an in-memory graph and chunk store. It accepts every project
// reference kind, which makes it the catch-all fallback backend and the
// store of choice for tests.
type Store struct {
	mu sync.RWMutex

	// projectID -> nodeID -> node
	nodes map[string]map[string]*entities.Node
	// projectID -> edgeID -> edge
	edges map[string]map[string]*entities.Edge
	// projectID -> identity key -> edgeID, for upsert convergence
	edgeIdentities map[string]map[string]string
	// projectID -> references in insertion order
	references map[string][]*entities.SymbolReference
	// projectID -> diagnostics in insertion order
	diagnostics map[string][]*entities.Diagnostic
	// chunkID -> chunk
	chunks map[string]*entities.Chunk
	// projectID -> chunkIDs in insertion order
	chunksByProject map[string][]string
	// chunkID -> embedding
	embeddings map[string]*entities.Embedding
	// projectID -> last ingestion touch
	lastIngested map[string]time.Time

	logger *zap.Logger
}

// NewStore creates an empty in-memory store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		nodes:           make(map[string]map[string]*entities.Node),
		edges:           make(map[string]map[string]*entities.Edge),
		edgeIdentities:  make(map[string]map[string]string),
		references:      make(map[string][]*entities.SymbolReference),
		diagnostics:     make(map[string][]*entities.Diagnostic),
		chunks:          make(map[string]*entities.Chunk),
		chunksByProject: make(map[string][]string),
		embeddings:      make(map[string]*entities.Embedding),
		lastIngested:    make(map[string]time.Time),
		logger:          logger,
	}
}

// Name implements ports.GraphStore
func (s *Store) Name() string {
	return "memory"
}

// Ping implements ports.GraphStore
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// UpsertNode implements ports.GraphStore
func (s *Store) UpsertNode(ctx context.Context, node *entities.Node) (ports.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectNodes, ok := s.nodes[node.ProjectID()]
	if !ok {
		projectNodes = make(map[string]*entities.Node)
		s.nodes[node.ProjectID()] = projectNodes
	}

	// Re-ingesting an existing identity refreshes the stored node so its
	// createdAt survives, mirroring the edge Accumulate path.
	if existing, exists := projectNodes[node.ID().String()]; exists {
		existing.Refresh(node.Language(), node.CommitHash(), node.Metadata())
		s.lastIngested[node.ProjectID()] = time.Now()
		return ports.UpsertUpdated, nil
	}

	projectNodes[node.ID().String()] = node
	s.lastIngested[node.ProjectID()] = time.Now()

	return ports.UpsertCreated, nil
}

// GetNode implements ports.GraphStore
func (s *Store) GetNode(ctx context.Context, projectID, nodeID string) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[projectID][nodeID]
	if !ok {
		return nil, nil
	}
	return node, nil
}

// ListNodes implements ports.GraphStore
func (s *Store) ListNodes(ctx context.Context, projectID string) ([]*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projectNodes := s.nodes[projectID]
	nodes := make([]*entities.Node, 0, len(projectNodes))
	for _, node := range projectNodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID().String() < nodes[j].ID().String()
	})
	return nodes, nil
}

// FindNodesByName implements ports.GraphStore
func (s *Store) FindNodesByName(ctx context.Context, projectID, name string, filters ports.NodeFilters) ([]*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*entities.Node
	for _, node := range s.nodes[projectID] {
		if node.Name() != name {
			continue
		}
		if !matchesNodeFilters(node, filters) {
			continue
		}
		matches = append(matches, node)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Path() < matches[j].Path()
	})
	return matches, nil
}

func matchesNodeFilters(node *entities.Node, filters ports.NodeFilters) bool {
	if filters.Language != "" && !strings.EqualFold(node.Language(), filters.Language) {
		return false
	}
	if len(filters.Types) > 0 {
		found := false
		for _, t := range filters.Types {
			if node.Type() == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// UpsertEdge implements ports.GraphStore. Re-upserting an existing edge
// identity accumulates weight on the stored edge instead of duplicating it.
func (s *Store) UpsertEdge(ctx context.Context, edge *entities.Edge) (ports.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectEdges, ok := s.edges[edge.ProjectID()]
	if !ok {
		projectEdges = make(map[string]*entities.Edge)
		s.edges[edge.ProjectID()] = projectEdges
	}
	identities, ok := s.edgeIdentities[edge.ProjectID()]
	if !ok {
		identities = make(map[string]string)
		s.edgeIdentities[edge.ProjectID()] = identities
	}

	if existingID, exists := identities[edge.IdentityKey()]; exists {
		existing := projectEdges[existingID]
		if err := existing.Accumulate(edge.Weight(), edge.Confidence()); err != nil {
			return "", err
		}
		return ports.UpsertUpdated, nil
	}

	projectEdges[edge.ID().String()] = edge
	identities[edge.IdentityKey()] = edge.ID().String()
	s.lastIngested[edge.ProjectID()] = time.Now()

	return ports.UpsertCreated, nil
}

// ListEdges implements ports.GraphStore
func (s *Store) ListEdges(ctx context.Context, projectID, nodeID string, direction ports.Direction) ([]*entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*entities.Edge
	for _, edge := range s.edges[projectID] {
		out := edge.FromNodeID().String() == nodeID
		in := edge.ToNodeID().String() == nodeID
		switch direction {
		case ports.DirectionOut:
			if out {
				matches = append(matches, edge)
			}
		case ports.DirectionIn:
			if in {
				matches = append(matches, edge)
			}
		default:
			if out || in {
				matches = append(matches, edge)
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID().String() < matches[j].ID().String()
	})
	return matches, nil
}

// AddReference implements ports.GraphStore
func (s *Store) AddReference(ctx context.Context, ref *entities.SymbolReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.references[ref.ProjectID()] = append(s.references[ref.ProjectID()], ref)
	return nil
}

// ListReferences implements ports.GraphStore
func (s *Store) ListReferences(ctx context.Context, projectID, symbolName string, limit int) ([]ports.ReferenceHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []ports.ReferenceHit
	for _, ref := range s.references[projectID] {
		if ref.SymbolName() != symbolName {
			continue
		}
		hits = append(hits, ports.ReferenceHit{Reference: ref})
	}

	// most recent first, the limit caps only after ordering
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Reference.CreatedAt().After(hits[j].Reference.CreatedAt())
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// AddDiagnostic implements ports.GraphStore
func (s *Store) AddDiagnostic(ctx context.Context, diag *entities.Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diagnostics[diag.ProjectID()] = append(s.diagnostics[diag.ProjectID()], diag)
	return nil
}

// ListDiagnostics implements ports.GraphStore
func (s *Store) ListDiagnostics(ctx context.Context, projectID, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*entities.Diagnostic
	for _, diag := range s.diagnostics[projectID] {
		if path != "" && diag.Path() != path {
			continue
		}
		if severity != "" && diag.Severity() != severity {
			continue
		}
		matches = append(matches, diag)
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// ProjectStats implements ports.GraphStore
func (s *Store) ProjectStats(ctx context.Context, projectID string) (*ports.ProjectStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &ports.ProjectStats{
		ProjectKey:          projectID,
		NodesByType:         make(map[string]int),
		EdgesByRelationship: make(map[string]int),
		LastIngestedAt:      s.lastIngested[projectID],
	}

	for _, node := range s.nodes[projectID] {
		stats.NodeCount++
		stats.NodesByType[string(node.Type())]++
	}
	for _, edge := range s.edges[projectID] {
		stats.EdgeCount++
		stats.EdgesByRelationship[string(edge.Relationship())]++
	}
	for _, chunkID := range s.chunksByProject[projectID] {
		chunk, ok := s.chunks[chunkID]
		if !ok || chunk.Superseded() {
			continue
		}
		stats.ChunkCount++
		if _, ok := s.embeddings[chunkID]; ok {
			stats.EmbeddingCount++
		}
	}
	stats.DiagnosticCount = len(s.diagnostics[projectID])

	return stats, nil
}

// DeleteProject implements ports.GraphStore. Chunks, embeddings,
// references, and diagnostics of the project are removed with the graph.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes, projectID)
	delete(s.edges, projectID)
	delete(s.edgeIdentities, projectID)
	delete(s.references, projectID)
	delete(s.diagnostics, projectID)
	delete(s.lastIngested, projectID)

	for _, chunkID := range s.chunksByProject[projectID] {
		delete(s.chunks, chunkID)
		delete(s.embeddings, chunkID)
	}
	delete(s.chunksByProject, projectID)

	return nil
}

// AddChunk implements ports.ChunkStore
func (s *Store) AddChunk(ctx context.Context, chunk *entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chunk.ID().String()
	if _, exists := s.chunks[id]; !exists {
		s.chunksByProject[chunk.ProjectID()] = append(s.chunksByProject[chunk.ProjectID()], id)
	}
	s.chunks[id] = chunk
	return nil
}

// GetChunk implements ports.ChunkStore
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return nil, nil
	}
	return chunk, nil
}

// SupersedeChunks implements ports.ChunkStore
func (s *Store) SupersedeChunks(ctx context.Context, projectID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunkID := range s.chunksByProject[projectID] {
		chunk, ok := s.chunks[chunkID]
		if !ok {
			continue
		}
		if chunk.NodeID().String() == nodeID {
			chunk.Supersede()
		}
	}
	return nil
}

// SearchChunks implements ports.ChunkStore with token-overlap ranking
func (s *Store) SearchChunks(ctx context.Context, projectID, query string, filters ports.ChunkFilters, limit int) ([]ports.ChunkHit, error) {
	queryTokens := entities.IndexTokens(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []ports.ChunkHit
	for _, chunkID := range s.chunksByProject[projectID] {
		chunk, ok := s.chunks[chunkID]
		if !ok || chunk.Superseded() {
			continue
		}
		if !matchesChunkFilters(chunk, filters) {
			continue
		}

		rank := tokenOverlap(queryTokens, chunk.Tokens())
		if rank <= 0 {
			continue
		}

		hit := ports.ChunkHit{Chunk: chunk, LexicalRank: rank}
		if node, ok := s.nodes[projectID][chunk.NodeID().String()]; ok {
			hit.NodeName = node.Name()
			hit.NodePath = node.Path()
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].LexicalRank > hits[j].LexicalRank
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func matchesChunkFilters(chunk *entities.Chunk, filters ports.ChunkFilters) bool {
	if filters.Language != "" && !strings.EqualFold(chunk.Language(), filters.Language) {
		return false
	}
	if len(filters.ChunkTypes) > 0 {
		found := false
		for _, ct := range filters.ChunkTypes {
			if chunk.Type() == ct {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func tokenOverlap(queryTokens, chunkTokens []string) float64 {
	chunkSet := make(map[string]struct{}, len(chunkTokens))
	for _, t := range chunkTokens {
		chunkSet[t] = struct{}{}
	}

	matched := 0
	for _, t := range queryTokens {
		if _, ok := chunkSet[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// GetEmbedding implements ports.ChunkStore, returning (nil, nil) when no
// embedding exists for the chunk
func (s *Store) GetEmbedding(ctx context.Context, chunkID string) (*entities.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emb, ok := s.embeddings[chunkID]
	if !ok {
		return nil, nil
	}
	return emb, nil
}

// SetEmbedding implements ports.ChunkStore
func (s *Store) SetEmbedding(ctx context.Context, embedding *entities.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chunks[embedding.ChunkID().String()]; !ok {
		return pkgerrors.NewNotFoundError("chunk " + embedding.ChunkID().String())
	}
	s.embeddings[embedding.ChunkID().String()] = embedding
	return nil
}
