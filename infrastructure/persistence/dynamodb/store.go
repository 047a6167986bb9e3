package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// Store persists the graph and chunks in a single DynamoDB table.
//
// Key layout:
//
//	PK = PROJECT#<projectID>
//	SK = NODE#<nodeID> | EDGE#<edgeID> | CHUNK#<chunkID> | EMB#<chunkID>
//	   | REF#<refID> | DIAG#<diagID> | META
//	GSI1PK = PROJECT#<projectID>#NAME#<name>  (nodes only, for name lookups)
//	GSI1SK = NODE#<nodeID>
type Store struct {
	client        *dynamodb.Client
	tableName     string
	nameIndexName string
	logger        *zap.Logger
}

// NewStore creates a DynamoDB-backed store
func NewStore(client *dynamodb.Client, tableName, nameIndexName string, logger *zap.Logger) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		nameIndexName: nameIndexName,
		logger:        logger,
	}
}

func projectPK(projectID string) string {
	return fmt.Sprintf("PROJECT#%s", projectID)
}

// nodeItem represents the DynamoDB item structure for a node
type nodeItem struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	GSI1PK     string            `dynamodbav:"GSI1PK"`
	GSI1SK     string            `dynamodbav:"GSI1SK"`
	EntityType string            `dynamodbav:"EntityType"`
	NodeID     string            `dynamodbav:"NodeID"`
	ProjectID  string            `dynamodbav:"ProjectID"`
	NodeType   string            `dynamodbav:"NodeType"`
	Name       string            `dynamodbav:"Name"`
	Path       string            `dynamodbav:"Path"`
	Language   string            `dynamodbav:"Language,omitempty"`
	Metadata   map[string]string `dynamodbav:"Metadata,omitempty"`
	CommitHash string            `dynamodbav:"CommitHash,omitempty"`
	CreatedAt  string            `dynamodbav:"CreatedAt"`
	UpdatedAt  string            `dynamodbav:"UpdatedAt"`
}

// edgeItem represents the DynamoDB item structure for an edge
type edgeItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	EntityType   string  `dynamodbav:"EntityType"`
	EdgeID       string  `dynamodbav:"EdgeID"`
	ProjectID    string  `dynamodbav:"ProjectID"`
	FromNodeID   string  `dynamodbav:"FromNodeID"`
	ToNodeID     string  `dynamodbav:"ToNodeID"`
	Relationship string  `dynamodbav:"Relationship"`
	Weight       float64 `dynamodbav:"Weight"`
	Confidence   float64 `dynamodbav:"Confidence"`
	CreatedAt    string  `dynamodbav:"CreatedAt"`
	UpdatedAt    string  `dynamodbav:"UpdatedAt"`
}

// chunkItem represents the DynamoDB item structure for a chunk
type chunkItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ChunkID    string `dynamodbav:"ChunkID"`
	ProjectID  string `dynamodbav:"ProjectID"`
	NodeID     string `dynamodbav:"NodeID"`
	Content    string `dynamodbav:"Content"`
	ChunkType  string `dynamodbav:"ChunkType"`
	Language   string `dynamodbav:"Language,omitempty"`
	Superseded bool   `dynamodbav:"Superseded"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// embeddingItem represents the DynamoDB item structure for an embedding
type embeddingItem struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"EntityType"`
	ChunkID    string    `dynamodbav:"ChunkID"`
	ProjectID  string    `dynamodbav:"ProjectID"`
	Vector     []float32 `dynamodbav:"Vector"`
	Model      string    `dynamodbav:"Model"`
	CreatedAt  string    `dynamodbav:"CreatedAt"`
}

// referenceItem represents the DynamoDB item structure for a symbol reference
type referenceItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	EntityType    string `dynamodbav:"EntityType"`
	ReferenceID   string `dynamodbav:"ReferenceID"`
	ProjectID     string `dynamodbav:"ProjectID"`
	SymbolName    string `dynamodbav:"SymbolName"`
	SymbolNodeID  string `dynamodbav:"SymbolNodeID,omitempty"`
	Path          string `dynamodbav:"Path"`
	ReferenceType string `dynamodbav:"ReferenceType"`
	Line          int    `dynamodbav:"Line"`
	Column        int    `dynamodbav:"Column"`
	Context       string `dynamodbav:"Context,omitempty"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
}

// diagnosticItem represents the DynamoDB item structure for a diagnostic
type diagnosticItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	DiagnosticID  string `dynamodbav:"DiagnosticID"`
	ProjectID     string `dynamodbav:"ProjectID"`
	NodeID        string `dynamodbav:"NodeID,omitempty"`
	Path          string `dynamodbav:"Path"`
	Severity      string `dynamodbav:"Severity"`
	Source        string `dynamodbav:"Source,omitempty"`
	Code          string `dynamodbav:"Code,omitempty"`
	Message       string `dynamodbav:"Message"`
	FixSuggestion string `dynamodbav:"FixSuggestion,omitempty"`
	Line          int    `dynamodbav:"Line"`
	Column        int    `dynamodbav:"Column"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
}

// Name implements ports.GraphStore
func (s *Store) Name() string {
	return "dynamodb"
}

// Ping implements ports.GraphStore
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return pkgerrors.NewBackendUnavailableError("dynamodb", err)
	}
	return nil
}

// UpsertNode implements ports.GraphStore
func (s *Store) UpsertNode(ctx context.Context, node *entities.Node) (ports.UpsertOutcome, error) {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: projectPK(node.ProjectID())},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("NODE#%s", node.ID().String())},
	}

	metadata, err := attributevalue.Marshal(node.Metadata())
	if err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_node", err)
	}

	// created_at is written once, re-ingestion only moves updated_at
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       key,
		UpdateExpression: aws.String(`
			SET EntityType = :entity,
				GSI1PK = :gsi1pk,
				GSI1SK = :gsi1sk,
				NodeID = :id,
				ProjectID = :project,
				NodeType = :type,
				#name = :name,
				#path = :path,
				#lang = :lang,
				Metadata = :metadata,
				CommitHash = :commit,
				UpdatedAt = :updated,
				CreatedAt = if_not_exists(CreatedAt, :created)`),
		ExpressionAttributeNames: map[string]string{
			"#name": "Name",
			"#path": "Path",
			"#lang": "Language",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entity":   &types.AttributeValueMemberS{Value: "NODE"},
			":gsi1pk":   &types.AttributeValueMemberS{Value: fmt.Sprintf("PROJECT#%s#NAME#%s", node.ProjectID(), node.Name())},
			":gsi1sk":   &types.AttributeValueMemberS{Value: fmt.Sprintf("NODE#%s", node.ID().String())},
			":id":       &types.AttributeValueMemberS{Value: node.ID().String()},
			":project":  &types.AttributeValueMemberS{Value: node.ProjectID()},
			":type":     &types.AttributeValueMemberS{Value: string(node.Type())},
			":name":     &types.AttributeValueMemberS{Value: node.Name()},
			":path":     &types.AttributeValueMemberS{Value: node.Path()},
			":lang":     &types.AttributeValueMemberS{Value: node.Language()},
			":metadata": metadata,
			":commit":   &types.AttributeValueMemberS{Value: node.CommitHash()},
			":updated":  &types.AttributeValueMemberS{Value: node.UpdatedAt().Format(time.RFC3339Nano)},
			":created":  &types.AttributeValueMemberS{Value: node.CreatedAt().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_node", err)
	}

	if err := s.touchProject(ctx, node.ProjectID()); err != nil {
		return "", err
	}

	if len(result.Attributes) > 0 {
		return ports.UpsertUpdated, nil
	}
	return ports.UpsertCreated, nil
}

// GetNode implements ports.GraphStore
func (s *Store) GetNode(ctx context.Context, projectID, nodeID string) (*entities.Node, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("NODE#%s", nodeID)},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_node", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("get_node", err)
	}
	return item.toEntity()
}

// ListNodes implements ports.GraphStore
func (s *Store) ListNodes(ctx context.Context, projectID string) ([]*entities.Node, error) {
	items, err := s.queryPrefix(ctx, projectPK(projectID), "NODE#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_nodes", err)
	}

	nodes := make([]*entities.Node, 0, len(items))
	for _, raw := range items {
		var item nodeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, pkgerrors.NewDatabaseError("list_nodes", err)
		}
		node, err := item.toEntity()
		if err != nil {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// FindNodesByName implements ports.GraphStore using the name GSI
func (s *Store) FindNodesByName(ctx context.Context, projectID, name string, filters ports.NodeFilters) ([]*entities.Node, error) {
	keyCond := expression.Key("GSI1PK").Equal(
		expression.Value(fmt.Sprintf("PROJECT#%s#NAME#%s", projectID, name)))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if len(filters.Types) > 0 {
		values := make([]expression.OperandBuilder, len(filters.Types))
		for i, t := range filters.Types {
			values[i] = expression.Value(string(t))
		}
		builder = builder.WithFilter(expression.Name("NodeType").In(values[0], values[1:]...))
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("find_nodes_by_name", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.nameIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("find_nodes_by_name", err)
	}

	var nodes []*entities.Node
	for _, raw := range result.Items {
		var item nodeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		node, err := item.toEntity()
		if err != nil {
			continue
		}
		if filters.Language != "" && !strings.EqualFold(node.Language(), filters.Language) {
			continue
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Path() < nodes[j].Path()
	})
	return nodes, nil
}

// UpsertEdge implements ports.GraphStore. The edge ID is deterministic over
// (project, from, to, relationship), so re-upserts hit the same item and
// accumulate weight with an ADD update.
func (s *Store) UpsertEdge(ctx context.Context, edge *entities.Edge) (ports.UpsertOutcome, error) {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: projectPK(edge.ProjectID())},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("EDGE#%s", edge.ID().String())},
	}

	now := edge.UpdatedAt().Format(time.RFC3339Nano)
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       key,
		UpdateExpression: aws.String(`
			SET EntityType = :entity,
				EdgeID = :id,
				ProjectID = :project,
				FromNodeID = :from,
				ToNodeID = :to,
				Relationship = :rel,
				Confidence = :conf,
				UpdatedAt = :now,
				CreatedAt = if_not_exists(CreatedAt, :now)
			ADD Weight :weight`),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entity":  &types.AttributeValueMemberS{Value: "EDGE"},
			":id":      &types.AttributeValueMemberS{Value: edge.ID().String()},
			":project": &types.AttributeValueMemberS{Value: edge.ProjectID()},
			":from":    &types.AttributeValueMemberS{Value: edge.FromNodeID().String()},
			":to":      &types.AttributeValueMemberS{Value: edge.ToNodeID().String()},
			":rel":     &types.AttributeValueMemberS{Value: string(edge.Relationship())},
			":conf":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", edge.Confidence())},
			":now":     &types.AttributeValueMemberS{Value: now},
			":weight":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", edge.Weight())},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_edge", err)
	}

	if err := s.touchProject(ctx, edge.ProjectID()); err != nil {
		return "", err
	}

	if len(result.Attributes) > 0 {
		return ports.UpsertUpdated, nil
	}
	return ports.UpsertCreated, nil
}

// ListEdges implements ports.GraphStore
func (s *Store) ListEdges(ctx context.Context, projectID, nodeID string, direction ports.Direction) ([]*entities.Edge, error) {
	items, err := s.queryPrefix(ctx, projectPK(projectID), "EDGE#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_edges", err)
	}

	var edges []*entities.Edge
	for _, raw := range items {
		var item edgeItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		out := item.FromNodeID == nodeID
		in := item.ToNodeID == nodeID
		keep := false
		switch direction {
		case ports.DirectionOut:
			keep = out
		case ports.DirectionIn:
			keep = in
		default:
			keep = out || in
		}
		if !keep {
			continue
		}
		edge, err := item.toEntity()
		if err != nil {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// AddReference implements ports.GraphStore
func (s *Store) AddReference(ctx context.Context, ref *entities.SymbolReference) error {
	symbolNodeID := ""
	if !ref.SymbolNodeID().IsZero() {
		symbolNodeID = ref.SymbolNodeID().String()
	}

	item := referenceItem{
		PK:            projectPK(ref.ProjectID()),
		SK:            fmt.Sprintf("REF#%s", ref.ID().String()),
		EntityType:    "REFERENCE",
		ReferenceID:   ref.ID().String(),
		ProjectID:     ref.ProjectID(),
		SymbolName:    ref.SymbolName(),
		SymbolNodeID:  symbolNodeID,
		Path:          ref.LocationPath(),
		ReferenceType: string(ref.Type()),
		Line:          ref.Position().Line,
		Column:        ref.Position().Column,
		Context:       ref.Context(),
		CreatedAt:     ref.CreatedAt().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("add_reference", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("add_reference", err)
	}
	return nil
}

// ListReferences implements ports.GraphStore
func (s *Store) ListReferences(ctx context.Context, projectID, symbolName string, limit int) ([]ports.ReferenceHit, error) {
	items, err := s.queryPrefix(ctx, projectPK(projectID), "REF#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_references", err)
	}

	var hits []ports.ReferenceHit
	for _, raw := range items {
		var item referenceItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		if item.SymbolName != symbolName {
			continue
		}
		ref, err := item.toEntity()
		if err != nil {
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
	nodeID := ""
	if !diag.NodeID().IsZero() {
		nodeID = diag.NodeID().String()
	}

	item := diagnosticItem{
		PK:            projectPK(diag.ProjectID()),
		SK:            fmt.Sprintf("DIAG#%s", diag.ID().String()),
		EntityType:    "DIAGNOSTIC",
		DiagnosticID:  diag.ID().String(),
		ProjectID:     diag.ProjectID(),
		NodeID:        nodeID,
		Path:          diag.Path(),
		Severity:      string(diag.Severity()),
		Source:        diag.Source(),
		Code:          diag.Code(),
		Message:       diag.Message(),
		FixSuggestion: diag.FixSuggestion(),
		Line:          diag.Position().Line,
		Column:        diag.Position().Column,
		CreatedAt:     diag.CreatedAt().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("add_diagnostic", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("add_diagnostic", err)
	}
	return nil
}

// ListDiagnostics implements ports.GraphStore
func (s *Store) ListDiagnostics(ctx context.Context, projectID, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error) {
	items, err := s.queryPrefix(ctx, projectPK(projectID), "DIAG#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_diagnostics", err)
	}

	var diags []*entities.Diagnostic
	for _, raw := range items {
		var item diagnosticItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		if path != "" && item.Path != path {
			continue
		}
		if severity != "" && item.Severity != string(severity) {
			continue
		}
		diag, err := item.toEntity()
		if err != nil {
			continue
		}
		diags = append(diags, diag)
		if limit > 0 && len(diags) >= limit {
			break
		}
	}
	return diags, nil
}

// ProjectStats implements ports.GraphStore
func (s *Store) ProjectStats(ctx context.Context, projectID string) (*ports.ProjectStats, error) {
	stats := &ports.ProjectStats{
		ProjectKey:          projectID,
		NodesByType:         make(map[string]int),
		EdgesByRelationship: make(map[string]int),
	}

	items, err := s.queryPrefix(ctx, projectPK(projectID), "")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}

	embedded := make(map[string]bool)
	for _, raw := range items {
		entityType := stringAttr(raw, "EntityType")
		switch entityType {
		case "NODE":
			stats.NodeCount++
			stats.NodesByType[stringAttr(raw, "NodeType")]++
		case "EDGE":
			stats.EdgeCount++
			stats.EdgesByRelationship[stringAttr(raw, "Relationship")]++
		case "CHUNK":
			var item chunkItem
			if err := attributevalue.UnmarshalMap(raw, &item); err == nil && !item.Superseded {
				stats.ChunkCount++
			}
		case "EMBEDDING":
			embedded[stringAttr(raw, "ChunkID")] = true
		case "DIAGNOSTIC":
			stats.DiagnosticCount++
		case "META":
			if ts, err := time.Parse(time.RFC3339Nano, stringAttr(raw, "LastIngestedAt")); err == nil {
				stats.LastIngestedAt = ts
			}
		}
	}
	stats.EmbeddingCount = len(embedded)

	return stats, nil
}

// DeleteProject implements ports.GraphStore with batched deletes
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	items, err := s.queryPrefix(ctx, projectPK(projectID), "")
	if err != nil {
		return pkgerrors.NewDatabaseError("delete_project", err)
	}

	// BatchWriteItem takes at most 25 requests per call.
	var requests []types.WriteRequest
	for _, raw := range items {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": raw["PK"],
					"SK": raw["SK"],
				},
			},
		})
	}

	for start := 0; start < len(requests); start += 25 {
		end := start + 25
		if end > len(requests) {
			end = len(requests)
		}
		batch := requests[start:end]
		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: batch,
			},
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("delete_project", err)
		}
	}

	s.logger.Info("deleted project from dynamodb",
		zap.String("project_id", projectID),
		zap.Int("items", len(requests)),
	)
	return nil
}

// AddChunk implements ports.ChunkStore
func (s *Store) AddChunk(ctx context.Context, chunk *entities.Chunk) error {
	item := chunkItem{
		PK:         projectPK(chunk.ProjectID()),
		SK:         fmt.Sprintf("CHUNK#%s", chunk.ID().String()),
		EntityType: "CHUNK",
		ChunkID:    chunk.ID().String(),
		ProjectID:  chunk.ProjectID(),
		NodeID:     chunk.NodeID().String(),
		Content:    chunk.Content(),
		ChunkType:  string(chunk.Type()),
		Language:   chunk.Language(),
		Superseded: chunk.Superseded(),
		CreatedAt:  chunk.CreatedAt().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("add_chunk", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("add_chunk", err)
	}

	byID := item
	byID.PK = fmt.Sprintf("CHUNKID#%s", chunk.ID().String())
	byID.SK = "CHUNK"
	av, err = attributevalue.MarshalMap(byID)
	if err != nil {
		return pkgerrors.NewDatabaseError("add_chunk", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("add_chunk", err)
	}
	return nil
}

// GetChunk implements ports.ChunkStore. Chunks are written under both the
// project partition and a CHUNKID# partition so the embedding worker can
// fetch them by ID alone.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*entities.Chunk, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CHUNKID#%s", chunkID)},
			"SK": &types.AttributeValueMemberS{Value: "CHUNK"},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_chunk", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item chunkItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("get_chunk", err)
	}
	return item.toEntity()
}

// SupersedeChunks implements ports.ChunkStore
func (s *Store) SupersedeChunks(ctx context.Context, projectID, nodeID string) error {
	items, err := s.queryPrefix(ctx, projectPK(projectID), "CHUNK#")
	if err != nil {
		return pkgerrors.NewDatabaseError("supersede_chunks", err)
	}

	for _, raw := range items {
		var item chunkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		if item.NodeID != nodeID || item.Superseded {
			continue
		}
		for _, key := range [][2]string{
			{projectPK(projectID), fmt.Sprintf("CHUNK#%s", item.ChunkID)},
			{fmt.Sprintf("CHUNKID#%s", item.ChunkID), "CHUNK"},
		} {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: key[0]},
					"SK": &types.AttributeValueMemberS{Value: key[1]},
				},
				UpdateExpression: aws.String("SET Superseded = :true"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":true": &types.AttributeValueMemberBOOL{Value: true},
				},
			})
			if err != nil {
				return pkgerrors.NewDatabaseError("supersede_chunks", err)
			}
		}
	}
	return nil
}

// SearchChunks implements ports.ChunkStore with token-overlap ranking
// computed client-side over the project's chunks
func (s *Store) SearchChunks(ctx context.Context, projectID, query string, filters ports.ChunkFilters, limit int) ([]ports.ChunkHit, error) {
	queryTokens := entities.IndexTokens(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	items, err := s.queryPrefix(ctx, projectPK(projectID), "CHUNK#")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("search_chunks", err)
	}

	querySet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	var hits []ports.ChunkHit
	for _, raw := range items {
		var item chunkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		if item.Superseded {
			continue
		}
		if filters.Language != "" && !strings.EqualFold(item.Language, filters.Language) {
			continue
		}
		if len(filters.ChunkTypes) > 0 && !containsChunkType(filters.ChunkTypes, item.ChunkType) {
			continue
		}

		chunk, err := item.toEntity()
		if err != nil {
			continue
		}

		chunkSet := make(map[string]struct{}, len(chunk.Tokens()))
		for _, t := range chunk.Tokens() {
			chunkSet[t] = struct{}{}
		}
		matched := 0
		for t := range querySet {
			if _, ok := chunkSet[t]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		hit := ports.ChunkHit{
			Chunk:       chunk,
			LexicalRank: float64(matched) / float64(len(queryTokens)),
		}
		if node, err := s.GetNode(ctx, projectID, item.NodeID); err == nil && node != nil {
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

// GetEmbedding implements ports.ChunkStore, returning (nil, nil) when no
// embedding exists for the chunk
func (s *Store) GetEmbedding(ctx context.Context, chunkID string) (*entities.Embedding, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CHUNKID#%s", chunkID)},
			"SK": &types.AttributeValueMemberS{Value: "EMBEDDING"},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_embedding", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item embeddingItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("get_embedding", err)
	}

	id, err := valueobjects.NewChunkIDFromString(item.ChunkID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_embedding", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return entities.ReconstructEmbedding(id, item.Vector, item.Model, createdAt), nil
}

// SetEmbedding implements ports.ChunkStore
func (s *Store) SetEmbedding(ctx context.Context, embedding *entities.Embedding) error {
	item := embeddingItem{
		PK:         fmt.Sprintf("CHUNKID#%s", embedding.ChunkID().String()),
		SK:         "EMBEDDING",
		EntityType: "EMBEDDING",
		ChunkID:    embedding.ChunkID().String(),
		Vector:     embedding.Vector(),
		Model:      embedding.Model(),
		CreatedAt:  embedding.CreatedAt().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("set_embedding", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("set_embedding", err)
	}
	return nil
}

func (s *Store) touchProject(ctx context.Context, projectID string) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":             &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK":             &types.AttributeValueMemberS{Value: "META"},
			"EntityType":     &types.AttributeValueMemberS{Value: "META"},
			"ProjectID":      &types.AttributeValueMemberS{Value: projectID},
			"LastIngestedAt": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("touch_project", err)
	}
	return nil
}

// queryPrefix pages through PK = pk AND begins_with(SK, prefix)
func (s *Store) queryPrefix(ctx context.Context, pk, prefix string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: lastKey,
		}
		if prefix == "" {
			input.KeyConditionExpression = aws.String("PK = :pk")
			input.ExpressionAttributeValues = map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			}
		} else {
			input.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :prefix)")
			input.ExpressionAttributeValues = map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pk},
				":prefix": &types.AttributeValueMemberS{Value: prefix},
			}
		}

		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return items, nil
}

func (i nodeItem) toEntity() (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(i.NodeID)
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	return entities.ReconstructNode(id, i.ProjectID, entities.NodeType(i.NodeType),
		i.Name, i.Path, i.Language, i.Metadata, i.CommitHash, createdAt, updatedAt)
}

func (i edgeItem) toEntity() (*entities.Edge, error) {
	id, err := valueobjects.NewNodeIDFromString(i.EdgeID)
	if err != nil {
		return nil, err
	}
	from, err := valueobjects.NewNodeIDFromString(i.FromNodeID)
	if err != nil {
		return nil, err
	}
	to, err := valueobjects.NewNodeIDFromString(i.ToNodeID)
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	return entities.ReconstructEdge(id, i.ProjectID, from, to,
		entities.Relationship(i.Relationship), i.Weight, i.Confidence, createdAt, updatedAt), nil
}

func (i chunkItem) toEntity() (*entities.Chunk, error) {
	id, err := valueobjects.NewChunkIDFromString(i.ChunkID)
	if err != nil {
		return nil, err
	}
	nodeID, err := valueobjects.NewNodeIDFromString(i.NodeID)
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	return entities.ReconstructChunk(id, i.ProjectID, nodeID, i.Content,
		entities.ChunkType(i.ChunkType), i.Language, i.Superseded, createdAt), nil
}

func (i referenceItem) toEntity() (*entities.SymbolReference, error) {
	id, err := valueobjects.NewNodeIDFromString(i.ReferenceID)
	if err != nil {
		return nil, err
	}
	var symbolNodeID valueobjects.NodeID
	if i.SymbolNodeID != "" {
		symbolNodeID, _ = valueobjects.NewNodeIDFromString(i.SymbolNodeID)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	return entities.ReconstructSymbolReference(id, i.ProjectID, i.SymbolName, symbolNodeID,
		i.Path, entities.ReferenceType(i.ReferenceType),
		valueobjects.Position{Line: i.Line, Column: i.Column}, i.Context, createdAt), nil
}

func (i diagnosticItem) toEntity() (*entities.Diagnostic, error) {
	id, err := valueobjects.NewNodeIDFromString(i.DiagnosticID)
	if err != nil {
		return nil, err
	}
	var nodeID valueobjects.NodeID
	if i.NodeID != "" {
		nodeID, _ = valueobjects.NewNodeIDFromString(i.NodeID)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	return entities.ReconstructDiagnostic(id, i.ProjectID, nodeID, i.Path,
		entities.Severity(i.Severity), i.Source, i.Code, i.Message, i.FixSuggestion,
		valueobjects.Position{Line: i.Line, Column: i.Column}, createdAt), nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if attr, ok := item[name].(*types.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}

func containsChunkType(types []entities.ChunkType, value string) bool {
	for _, t := range types {
		if string(t) == value {
			return true
		}
	}
	return false
}

