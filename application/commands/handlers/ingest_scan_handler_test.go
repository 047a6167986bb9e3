package handlers

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/commands"
	"ckg-backend/application/ports"
	"ckg-backend/application/services"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/domain/events"
	"ckg-backend/infrastructure/cache"
	"ckg-backend/infrastructure/locking"
	"ckg-backend/infrastructure/messaging"
	"ckg-backend/infrastructure/persistence/memory"
	"ckg-backend/infrastructure/resolver"
	"ckg-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopEmbedder struct{}

func (nopEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

type recordingQueue struct {
	chunkIDs []string
}

func (q *recordingQueue) Enqueue(projectKey string, chunks ports.ChunkStore, chunkID string) bool {
	q.chunkIDs = append(q.chunkIDs, chunkID)
	return true
}

type ingestFixture struct {
	handler  *IngestScanHandler
	store    *memory.Store
	backend  *services.StoreBackend
	resolver *resolver.BackendResolver
	queue    *recordingQueue
	bus      ports.EventBus
	ref      valueobjects.ProjectRef
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.DefaultEngineConfig()

	store := memory.NewStore(logger)
	backend := services.NewStoreBackend("memory", nil, store, store, nopEmbedder{}, cfg, logger)
	res := resolver.NewBackendResolver(logger)
	res.Register(backend)

	queue := &recordingQueue{}
	eventBus := messaging.NewMemoryEventBus(logger)
	handler := NewIngestScanHandler(
		res,
		locking.NewProjectLocker(logger),
		queue,
		eventBus,
		cfg,
		observability.NewMetrics("test_ingest"),
		logger,
	)

	ref, err := valueobjects.ParseProjectRef("42")
	require.NoError(t, err)

	return &ingestFixture{
		handler:  handler,
		store:    store,
		backend:  backend,
		resolver: res,
		queue:    queue,
		bus:      eventBus,
		ref:      ref,
	}
}

func twoFileScan() []commands.ScanFile {
	return []commands.ScanFile{
		{
			Path:     "internal/user/service.go",
			Language: "go",
			Symbols: []commands.ScanSymbol{
				{Name: "UserService", Kind: "class", Line: 10, Exported: true, Doc: "UserService loads user profiles"},
				{Name: "GetProfile", Kind: "function", Line: 25, Signature: "func (s *UserService) GetProfile(id string) (*Profile, error)", Snippet: "func (s *UserService) GetProfile(id string) (*Profile, error) { return s.repo.Find(id) }"},
			},
			Relationships: []commands.ScanRelationship{
				{FromSymbol: "GetProfile", ToSymbol: "FindUser", ToPath: "internal/user/repo.go", Type: "calls", Line: 26},
			},
			Imports: []string{"database/sql"},
		},
		{
			Path:     "internal/user/repo.go",
			Language: "go",
			Symbols: []commands.ScanSymbol{
				{Name: "FindUser", Kind: "function", Line: 12},
			},
		},
	}
}

func TestIngestScan_BuildsGraph(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	cmd := &commands.IngestScanCommand{ProjectRef: f.ref, CommitHash: "abc123", Files: twoFileScan()}
	require.NoError(t, f.handler.Handle(ctx, cmd))
	require.NotNil(t, cmd.Result)

	assert.Equal(t, "memory", cmd.Result.Backend)
	assert.Empty(t, cmd.Result.Skipped)
	assert.Positive(t, cmd.Result.NodesUpserted)
	assert.Positive(t, cmd.Result.EdgesUpserted)
	assert.Positive(t, cmd.Result.ChunksAdded)
	assert.Equal(t, cmd.Result.ChunksAdded, len(f.queue.chunkIDs))

	// cross-file call edge resolved by name and path
	defs, err := f.store.FindNodesByName(ctx, "42", "GetProfile", ports.NodeFilters{})
	require.NoError(t, err)
	require.Len(t, defs, 1)

	edges, err := f.store.ListEdges(ctx, "42", defs[0].ID().String(), ports.DirectionOut)
	require.NoError(t, err)
	found := false
	for _, e := range edges {
		if e.Relationship() == entities.RelationshipCalls {
			found = true
		}
	}
	assert.True(t, found, "expected a calls edge from GetProfile")

	// class symbols become type nodes
	types, err := f.store.FindNodesByName(ctx, "42", "UserService", ports.NodeFilters{
		Types: []entities.NodeType{entities.NodeTypeType},
	})
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func TestIngestScan_UnresolvedRelationshipIsSkippedNotFatal(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	files := []commands.ScanFile{{
		Path:     "a.go",
		Language: "go",
		Symbols:  []commands.ScanSymbol{{Name: "caller", Kind: "function", Line: 1}},
		Relationships: []commands.ScanRelationship{
			{FromSymbol: "caller", ToSymbol: "ghost", Type: "calls", Line: 2},
		},
	}}

	cmd := &commands.IngestScanCommand{ProjectRef: f.ref, Files: files}
	require.NoError(t, f.handler.Handle(ctx, cmd))
	require.NotNil(t, cmd.Result)
	require.Len(t, cmd.Result.Skipped, 1)
	assert.Contains(t, cmd.Result.Skipped[0], "ghost")
}

func TestIngestScan_ReingestConvergesAndSupersedesChunks(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	files := []commands.ScanFile{{
		Path:     "a.go",
		Language: "go",
		Symbols:  []commands.ScanSymbol{{Name: "handler", Kind: "function", Line: 1, Snippet: "func handler() { old }"}},
	}}

	cmd := &commands.IngestScanCommand{ProjectRef: f.ref, Files: files}
	require.NoError(t, f.handler.Handle(ctx, cmd))

	files[0].Symbols[0].Snippet = "func handler() { new }"
	again := &commands.IngestScanCommand{ProjectRef: f.ref, Files: files}
	require.NoError(t, f.handler.Handle(ctx, again))

	nodes, err := f.store.FindNodesByName(ctx, "42", "handler", ports.NodeFilters{})
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	// only the fresh chunks remain searchable
	hits, err := f.store.SearchChunks(ctx, "42", "handler", ports.ChunkFilters{}, 50)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.False(t, hit.Chunk.Superseded())
	}

	stats, err := f.store.ProjectStats(ctx, "42")
	require.NoError(t, err)
	// signature and implementation chunks for the single symbol
	assert.Equal(t, 2, stats.ChunkCount)
}

func TestIngestScan_InvalidatesProjectCacheSynchronously(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	queryCache := cache.NewQueryCache(time.Minute, observability.NewMetrics("test_ingest_cache"), zap.NewNop())
	defer queryCache.Stop()
	queryCache.Set(ctx, "stats|42", "42", "stale", 0)

	f.bus.Subscribe(events.EventTypeProjectIngested, func(ctx context.Context, event events.DomainEvent) error {
		ingested := event.(events.ProjectIngested)
		queryCache.InvalidateProject(ctx, ingested.ProjectKey)
		return nil
	})

	cmd := &commands.IngestScanCommand{ProjectRef: f.ref, Files: twoFileScan()}
	require.NoError(t, f.handler.Handle(ctx, cmd))

	_, ok := queryCache.Get(ctx, "stats|42")
	assert.False(t, ok, "stale entry must be gone before Handle returns")
}

func TestIngestScan_RejectsEmptyScan(t *testing.T) {
	f := newIngestFixture(t)

	cmd := &commands.IngestScanCommand{ProjectRef: f.ref}
	assert.Error(t, cmd.Validate())
}

// Ingest a two-file scan and walk the dependency closure from the ingesting
// file, the cross-file call shows up one hop past the containing edge.
func TestIngestScan_DependencyGraphAfterIngest(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	cmd := &commands.IngestScanCommand{ProjectRef: f.ref, CommitHash: "abc123", Files: twoFileScan()}
	require.NoError(t, f.handler.Handle(ctx, cmd))

	fileID := valueobjects.NewDeterministicNodeID(
		"42", string(entities.NodeTypeFile), "internal/user/service.go", "service.go")

	edges, err := f.backend.DependencyGraph(ctx, f.ref, []string{fileID.String()}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, edges)

	var containsDepth, callsDepth int
	for _, e := range edges {
		if e.Relationship == entities.RelationshipContains && e.ToName == "GetProfile" {
			containsDepth = e.Depth
		}
		if e.Relationship == entities.RelationshipCalls && e.ToName == "FindUser" {
			callsDepth = e.Depth
		}
	}
	assert.Equal(t, 1, containsDepth, "file contains its symbol at depth 1")
	assert.Equal(t, 2, callsDepth, "cross-file call sits one hop deeper")

	for _, e := range edges {
		assert.LessOrEqual(t, e.Depth, 2)
		assert.Positive(t, e.Weight)
	}
}
