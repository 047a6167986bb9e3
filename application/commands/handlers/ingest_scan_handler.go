package handlers

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/commands"
	"ckg-backend/application/commands/bus"
	"ckg-backend/application/ports"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/validators"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/domain/events"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"
)

// IngestScanHandler writes one scan record into the project's backend.
// Ingestion per project is serialized by the project locker, and the
// project's cached query results are invalidated synchronously through the
// event bus before Handle returns.
type IngestScanHandler struct {
	resolver  ports.BackendResolver
	locker    ports.ProjectLocker
	queue     ports.EmbeddingQueue
	eventBus  ports.EventBus
	validator *validators.ScanValidator
	cfg       *config.EngineConfig
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewIngestScanHandler creates a new ingest handler
func NewIngestScanHandler(
	resolver ports.BackendResolver,
	locker ports.ProjectLocker,
	queue ports.EmbeddingQueue,
	eventBus ports.EventBus,
	cfg *config.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *IngestScanHandler {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	return &IngestScanHandler{
		resolver:  resolver,
		locker:    locker,
		queue:     queue,
		eventBus:  eventBus,
		validator: validators.NewScanValidator(),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle implements bus.CommandHandler
func (h *IngestScanHandler) Handle(ctx context.Context, cmd bus.Command) error {
	ingest, ok := cmd.(*commands.IngestScanCommand)
	if !ok {
		return pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
	}

	projectKey := ingest.ProjectRef.String()

	if err := h.validator.ValidateFileCount(len(ingest.Files)); err != nil {
		return err
	}
	for _, f := range ingest.Files {
		if err := h.validator.ValidatePath(f.Path); err != nil {
			return err
		}
		if err := h.validator.ValidateSymbolCount(f.Path, len(f.Symbols)); err != nil {
			return err
		}
		for _, sym := range f.Symbols {
			if err := h.validator.ValidateSymbolName(sym.Name); err != nil {
				return err
			}
			if err := h.validator.ValidateSnippet(sym.Snippet); err != nil {
				return err
			}
			if err := h.validator.ValidateMetadata(sym.Metadata); err != nil {
				return err
			}
		}
		for _, rel := range f.Relationships {
			if err := h.validator.ValidateRelationship(rel.FromSymbol, rel.ToSymbol, rel.Type); err != nil {
				return err
			}
		}
	}

	release, err := h.locker.Acquire(ctx, projectKey)
	if err != nil {
		return err
	}
	defer release()

	target, err := h.resolver.IngestTarget(ctx, ingest.ProjectRef)
	if err != nil {
		return err
	}
	graph, chunks := target.Stores()

	result := &commands.IngestScanResult{Backend: target.Name()}
	session := &ingestSession{
		projectKey: projectKey,
		commitHash: ingest.CommitHash,
		graph:      graph,
		chunks:     chunks,
		queue:      h.queue,
		cfg:        h.cfg,
		result:     result,
		symbolsByPath: make(map[string]map[string]*entities.Node),
		symbolsByName: make(map[string]*entities.Node),
	}

	for _, file := range ingest.Files {
		if err := session.ingestFile(ctx, file); err != nil {
			return err
		}
	}
	for _, file := range ingest.Files {
		if err := session.ingestRelationships(ctx, file); err != nil {
			return err
		}
	}

	h.metrics.IngestedNodes.Add(float64(result.NodesUpserted))
	h.metrics.IngestedEdges.Add(float64(result.EdgesUpserted))

	// Synchronous publish: cache invalidation completes before the command
	// returns, so a follow-up read cannot see pre-ingest cached results.
	event := events.NewProjectIngested(
		projectKey, target.Name(), ingest.CommitHash,
		result.NodesUpserted, result.EdgesUpserted, result.ChunksAdded,
		time.Now(),
	)
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Error("failed to publish ingestion event",
			zap.String("projectKey", projectKey),
			zap.Error(err),
		)
	}

	h.logger.Info("scan record ingested",
		zap.String("projectKey", projectKey),
		zap.String("backend", target.Name()),
		zap.Int("nodes", result.NodesUpserted),
		zap.Int("edges", result.EdgesUpserted),
		zap.Int("chunks", result.ChunksAdded),
	)

	ingest.Result = result
	return nil
}

// ingestSession carries the per-command symbol resolution state
type ingestSession struct {
	projectKey string
	commitHash string
	graph      ports.GraphStore
	chunks     ports.ChunkStore
	queue      ports.EmbeddingQueue
	cfg        *config.EngineConfig
	result     *commands.IngestScanResult

	symbolsByPath map[string]map[string]*entities.Node
	symbolsByName map[string]*entities.Node
}

func (s *ingestSession) ingestFile(ctx context.Context, file commands.ScanFile) error {
	fileNode, err := entities.NewNode(s.projectKey, entities.NodeTypeFile, path.Base(file.Path), file.Path, file.Language)
	if err != nil {
		return err
	}
	fileNode.Refresh(file.Language, s.commitHash, nil)
	if err := s.upsertNode(ctx, fileNode); err != nil {
		return err
	}

	if file.Doc != "" {
		if err := s.addChunks(ctx, fileNode, map[entities.ChunkType]string{
			entities.ChunkTypeDocumentation: file.Doc,
		}, file.Language); err != nil {
			return err
		}
	}

	for _, imp := range file.Imports {
		moduleNode, err := entities.NewNode(s.projectKey, entities.NodeTypeModule, imp, imp, file.Language)
		if err != nil {
			return err
		}
		if err := s.upsertNode(ctx, moduleNode); err != nil {
			return err
		}
		if err := s.upsertEdge(ctx, fileNode.ID(), moduleNode.ID(), entities.RelationshipImports, s.cfg.DefaultEdgeWeight, s.cfg.DefaultConfidence); err != nil {
			return err
		}
	}

	fileSymbols := make(map[string]*entities.Node, len(file.Symbols))
	s.symbolsByPath[file.Path] = fileSymbols

	for _, sym := range file.Symbols {
		nodeType := entities.NodeTypeSymbol
		switch entities.SymbolKind(sym.Kind) {
		case entities.SymbolKindClass, entities.SymbolKindInterface, entities.SymbolKindType:
			nodeType = entities.NodeTypeType
		}

		symNode, err := entities.NewNode(s.projectKey, nodeType, sym.Name, file.Path, file.Language)
		if err != nil {
			return err
		}
		symNode.SetMetadata(entities.MetadataKeyKind, sym.Kind)
		for k, v := range sym.Metadata {
			symNode.SetMetadata(k, v)
		}
		symNode.Refresh(file.Language, s.commitHash, nil)
		if err := s.upsertNode(ctx, symNode); err != nil {
			return err
		}

		fileSymbols[sym.Name] = symNode
		s.symbolsByName[sym.Name] = symNode

		if err := s.upsertEdge(ctx, fileNode.ID(), symNode.ID(), entities.RelationshipContains, s.cfg.DefaultEdgeWeight, s.cfg.DefaultConfidence); err != nil {
			return err
		}
		if err := s.upsertEdge(ctx, fileNode.ID(), symNode.ID(), entities.RelationshipDefines, s.cfg.DefaultEdgeWeight, s.cfg.DefaultConfidence); err != nil {
			return err
		}
		if sym.Exported {
			if err := s.upsertEdge(ctx, fileNode.ID(), symNode.ID(), entities.RelationshipExports, s.cfg.DefaultEdgeWeight, s.cfg.DefaultConfidence); err != nil {
				return err
			}
		}

		if err := s.addDefinitionReference(ctx, sym, symNode, file.Path); err != nil {
			return err
		}

		contents := map[entities.ChunkType]string{}
		signature := sym.Signature
		if signature == "" {
			signature = fmt.Sprintf("%s %s (%s)", sym.Kind, sym.Name, file.Path)
		}
		contents[entities.ChunkTypeSignature] = signature
		if sym.Snippet != "" {
			contents[entities.ChunkTypeImplementation] = sym.Snippet
		}
		if sym.Doc != "" {
			contents[entities.ChunkTypeDocumentation] = sym.Doc
		}
		if err := s.addChunks(ctx, symNode, contents, file.Language); err != nil {
			return err
		}
	}

	return nil
}

func (s *ingestSession) ingestRelationships(ctx context.Context, file commands.ScanFile) error {
	for _, rel := range file.Relationships {
		from := s.resolveSymbol(ctx, rel.FromSymbol, file.Path)
		toPath := rel.ToPath
		if toPath == "" {
			toPath = file.Path
		}
		to := s.resolveSymbol(ctx, rel.ToSymbol, toPath)

		if from == nil || to == nil {
			// A relationship endpoint the scan never defined is a data
			// integrity gap, not a fatal error: record the skip and move on.
			s.result.Skipped = append(s.result.Skipped,
				fmt.Sprintf("%s: unresolved relationship %s -> %s", file.Path, rel.FromSymbol, rel.ToSymbol))
			continue
		}

		relationship, err := entities.ParseRelationship(rel.Type)
		if err != nil {
			return err
		}

		weight := rel.Weight
		if weight <= 0 {
			weight = s.cfg.DefaultEdgeWeight
		}
		confidence := rel.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = s.cfg.DefaultConfidence
		}

		if err := s.upsertEdge(ctx, from.ID(), to.ID(), relationship, weight, confidence); err != nil {
			return err
		}

		if relationship == entities.RelationshipCalls {
			if err := s.addCallReference(ctx, rel, to, file.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveSymbol finds a symbol node by name: same file first, then
// project-wide within this scan, then already-persisted nodes.
func (s *ingestSession) resolveSymbol(ctx context.Context, name, filePath string) *entities.Node {
	if fileSymbols, ok := s.symbolsByPath[filePath]; ok {
		if n, ok := fileSymbols[name]; ok {
			return n
		}
	}
	if n, ok := s.symbolsByName[name]; ok {
		return n
	}

	found, err := s.graph.FindNodesByName(ctx, s.projectKey, name, ports.NodeFilters{
		Types: []entities.NodeType{entities.NodeTypeSymbol, entities.NodeTypeType},
	})
	if err != nil || len(found) == 0 {
		return nil
	}
	s.symbolsByName[name] = found[0]
	return found[0]
}

func (s *ingestSession) upsertNode(ctx context.Context, node *entities.Node) error {
	if _, err := s.graph.UpsertNode(ctx, node); err != nil {
		return err
	}
	s.result.NodesUpserted++
	return nil
}

func (s *ingestSession) upsertEdge(ctx context.Context, from, to valueobjects.NodeID, rel entities.Relationship, weight, confidence float64) error {
	edge, err := entities.NewEdge(s.projectKey, from, to, rel, weight, confidence)
	if err != nil {
		return err
	}
	if _, err := s.graph.UpsertEdge(ctx, edge); err != nil {
		return err
	}
	s.result.EdgesUpserted++
	return nil
}

func (s *ingestSession) addDefinitionReference(ctx context.Context, sym commands.ScanSymbol, node *entities.Node, filePath string) error {
	line := sym.Line
	if line < 1 {
		line = 1
	}
	pos, err := valueobjects.NewPosition(line, sym.Column)
	if err != nil {
		return err
	}
	ref, err := entities.NewSymbolReference(
		s.projectKey, sym.Name, node.ID(), filePath,
		entities.ReferenceTypeDefinition, pos, sym.Signature,
	)
	if err != nil {
		return err
	}
	if err := s.graph.AddReference(ctx, ref); err != nil {
		return err
	}
	s.result.ReferencesAdded++
	return nil
}

func (s *ingestSession) addCallReference(ctx context.Context, rel commands.ScanRelationship, target *entities.Node, filePath string) error {
	line := rel.Line
	if line < 1 {
		line = 1
	}
	pos, err := valueobjects.NewPosition(line, 0)
	if err != nil {
		return err
	}
	ref, err := entities.NewSymbolReference(
		s.projectKey, rel.ToSymbol, target.ID(), filePath,
		entities.ReferenceTypeCall, pos, "",
	)
	if err != nil {
		return err
	}
	if err := s.graph.AddReference(ctx, ref); err != nil {
		return err
	}
	s.result.ReferencesAdded++
	return nil
}

// addChunks supersedes the node's previous chunks and stores the new set,
// queueing each for background embedding.
func (s *ingestSession) addChunks(ctx context.Context, node *entities.Node, contents map[entities.ChunkType]string, language string) error {
	if err := s.chunks.SupersedeChunks(ctx, s.projectKey, node.ID().String()); err != nil {
		return err
	}

	for chunkType, content := range contents {
		chunk, err := entities.NewChunk(s.projectKey, node.ID(), content, chunkType, language)
		if err != nil {
			return err
		}
		if err := s.chunks.AddChunk(ctx, chunk); err != nil {
			return err
		}
		s.result.ChunksAdded++
		s.queue.Enqueue(s.projectKey, s.chunks, chunk.ID().String())
	}
	return nil
}
