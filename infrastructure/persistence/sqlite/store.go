package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// Store persists the graph and chunks in a single SQLite database.
// Chunk content is indexed with FTS5 so lexical search runs as a BM25
// MATCH query instead of a table scan.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the database at path and migrates its schema
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("open", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, pkgerrors.NewDatabaseError("ping", err)
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, pkgerrors.NewDatabaseError("migrate", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements ports.GraphStore
func (s *Store) Name() string {
	return "sqlite"
}

// Ping implements ports.GraphStore
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertNode implements ports.GraphStore
func (s *Store) UpsertNode(ctx context.Context, node *entities.Node) (ports.UpsertOutcome, error) {
	metadata, err := json.Marshal(node.Metadata())
	if err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_node", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM nodes WHERE project_id = ? AND id = ?)`,
		node.ProjectID(), node.ID().String()).Scan(&exists); err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_node", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, project_id, node_type, name, path, language, metadata, commit_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, id) DO UPDATE SET
			language=excluded.language,
			metadata=excluded.metadata,
			commit_hash=excluded.commit_hash,
			updated_at=excluded.updated_at
	`, node.ID().String(), node.ProjectID(), string(node.Type()), node.Name(), node.Path(),
		node.Language(), string(metadata), node.CommitHash(), node.CreatedAt(), node.UpdatedAt())
	if err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_node", err)
	}

	if err := s.touchProject(ctx, node.ProjectID()); err != nil {
		return "", err
	}

	if exists {
		return ports.UpsertUpdated, nil
	}
	return ports.UpsertCreated, nil
}

// GetNode implements ports.GraphStore
func (s *Store) GetNode(ctx context.Context, projectID, nodeID string) (*entities.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, node_type, name, path, language, metadata, commit_hash, created_at, updated_at
		FROM nodes WHERE project_id = ? AND id = ?
	`, projectID, nodeID)

	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return node, err
}

// ListNodes implements ports.GraphStore
func (s *Store) ListNodes(ctx context.Context, projectID string) ([]*entities.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, node_type, name, path, language, metadata, commit_hash, created_at, updated_at
		FROM nodes WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_nodes", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

// FindNodesByName implements ports.GraphStore
func (s *Store) FindNodesByName(ctx context.Context, projectID, name string, filters ports.NodeFilters) ([]*entities.Node, error) {
	query := `
		SELECT id, project_id, node_type, name, path, language, metadata, commit_hash, created_at, updated_at
		FROM nodes WHERE project_id = ? AND name = ?`
	args := []interface{}{projectID, name}

	if len(filters.Types) > 0 {
		placeholders := make([]string, len(filters.Types))
		for i, t := range filters.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += " AND node_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if filters.Language != "" {
		query += " AND language = ? COLLATE NOCASE"
		args = append(args, filters.Language)
	}
	query += " ORDER BY path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("find_nodes_by_name", err)
	}
	defer rows.Close()

	return collectNodes(rows)
}

// UpsertEdge implements ports.GraphStore. Conflicts on the edge identity
// accumulate weight and keep the highest confidence.
func (s *Store) UpsertEdge(ctx context.Context, edge *entities.Edge) (ports.UpsertOutcome, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (id, project_id, from_id, to_id, relationship, weight, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, from_id, to_id, relationship) DO UPDATE SET
			weight = edges.weight + excluded.weight,
			confidence = MAX(edges.confidence, excluded.confidence),
			updated_at = excluded.updated_at
	`, edge.ID().String(), edge.ProjectID(), edge.FromNodeID().String(), edge.ToNodeID().String(),
		string(edge.Relationship()), edge.Weight(), edge.Confidence(), edge.CreatedAt(), edge.UpdatedAt())
	if err != nil {
		return "", pkgerrors.NewDatabaseError("upsert_edge", err)
	}

	if err := s.touchProject(ctx, edge.ProjectID()); err != nil {
		return "", err
	}

	var createdAt, updatedAt time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM edges WHERE project_id = ? AND from_id = ? AND to_id = ? AND relationship = ?`,
		edge.ProjectID(), edge.FromNodeID().String(), edge.ToNodeID().String(), string(edge.Relationship())).
		Scan(&createdAt, &updatedAt)
	if err == nil && !createdAt.Equal(updatedAt) {
		return ports.UpsertUpdated, nil
	}
	return ports.UpsertCreated, nil
}

// ListEdges implements ports.GraphStore
func (s *Store) ListEdges(ctx context.Context, projectID, nodeID string, direction ports.Direction) ([]*entities.Edge, error) {
	query := `
		SELECT id, project_id, from_id, to_id, relationship, weight, confidence, created_at, updated_at
		FROM edges WHERE project_id = ?`
	args := []interface{}{projectID}

	switch direction {
	case ports.DirectionOut:
		query += " AND from_id = ?"
		args = append(args, nodeID)
	case ports.DirectionIn:
		query += " AND to_id = ?"
		args = append(args, nodeID)
	default:
		query += " AND (from_id = ? OR to_id = ?)"
		args = append(args, nodeID, nodeID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_edges", err)
	}
	defer rows.Close()

	var edges []*entities.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list_edges", err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// AddReference implements ports.GraphStore
func (s *Store) AddReference(ctx context.Context, ref *entities.SymbolReference) error {
	symbolNodeID := ""
	if !ref.SymbolNodeID().IsZero() {
		symbolNodeID = ref.SymbolNodeID().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbol_references (id, project_id, symbol_name, symbol_node_id, path, reference_type, line, col, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ref.ID().String(), ref.ProjectID(), ref.SymbolName(), symbolNodeID, ref.LocationPath(),
		string(ref.Type()), ref.Position().Line, ref.Position().Column, ref.Context(), ref.CreatedAt())
	if err != nil {
		return pkgerrors.NewDatabaseError("add_reference", err)
	}
	return nil
}

// ListReferences implements ports.GraphStore
func (s *Store) ListReferences(ctx context.Context, projectID, symbolName string, limit int) ([]ports.ReferenceHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, symbol_name, symbol_node_id, path, reference_type, line, col, context, created_at
		FROM symbol_references
		WHERE project_id = ? AND symbol_name = ?
		ORDER BY created_at DESC, path, line
		LIMIT ?
	`, projectID, symbolName, limit)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_references", err)
	}
	defer rows.Close()

	var hits []ports.ReferenceHit
	for rows.Next() {
		var (
			id, project, symbol, symbolNodeID, path, refType, context string
			line, col                                                 int
			createdAt                                                 time.Time
		)
		if err := rows.Scan(&id, &project, &symbol, &symbolNodeID, &path, &refType, &line, &col, &context, &createdAt); err != nil {
			return nil, pkgerrors.NewDatabaseError("list_references", err)
		}

		refID, err := valueobjects.NewNodeIDFromString(id)
		if err != nil {
			continue
		}
		var nodeID valueobjects.NodeID
		if symbolNodeID != "" {
			nodeID, _ = valueobjects.NewNodeIDFromString(symbolNodeID)
		}
		position := valueobjects.Position{Line: line, Column: col}

		hits = append(hits, ports.ReferenceHit{
			Reference: entities.ReconstructSymbolReference(
				refID, project, symbol, nodeID, path,
				entities.ReferenceType(refType), position, context, createdAt),
		})
	}
	return hits, rows.Err()
}

// AddDiagnostic implements ports.GraphStore
func (s *Store) AddDiagnostic(ctx context.Context, diag *entities.Diagnostic) error {
	nodeID := ""
	if !diag.NodeID().IsZero() {
		nodeID = diag.NodeID().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostics (id, project_id, node_id, path, severity, source, code, message, fix_suggestion, line, col, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, diag.ID().String(), diag.ProjectID(), nodeID, diag.Path(), string(diag.Severity()),
		diag.Source(), diag.Code(), diag.Message(), diag.FixSuggestion(),
		diag.Position().Line, diag.Position().Column, diag.CreatedAt())
	if err != nil {
		return pkgerrors.NewDatabaseError("add_diagnostic", err)
	}
	return nil
}

// ListDiagnostics implements ports.GraphStore
func (s *Store) ListDiagnostics(ctx context.Context, projectID, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error) {
	query := `
		SELECT id, project_id, node_id, path, severity, source, code, message, fix_suggestion, line, col, created_at
		FROM diagnostics WHERE project_id = ?`
	args := []interface{}{projectID}

	if path != "" {
		query += " AND path = ?"
		args = append(args, path)
	}
	if severity != "" {
		query += " AND severity = ?"
		args = append(args, string(severity))
	}
	query += " ORDER BY path, line LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list_diagnostics", err)
	}
	defer rows.Close()

	var diags []*entities.Diagnostic
	for rows.Next() {
		var (
			id, project, nodeID, diagPath, sev, source, code, message, fix string
			line, col                                                      int
			createdAt                                                      time.Time
		)
		if err := rows.Scan(&id, &project, &nodeID, &diagPath, &sev, &source, &code, &message, &fix, &line, &col, &createdAt); err != nil {
			return nil, pkgerrors.NewDatabaseError("list_diagnostics", err)
		}

		diagID, err := valueobjects.NewNodeIDFromString(id)
		if err != nil {
			continue
		}
		var fileNodeID valueobjects.NodeID
		if nodeID != "" {
			fileNodeID, _ = valueobjects.NewNodeIDFromString(nodeID)
		}
		position := valueobjects.Position{Line: line, Column: col}
		diags = append(diags, entities.ReconstructDiagnostic(
			diagID, project, fileNodeID, diagPath, entities.Severity(sev), source, code, message, fix, position, createdAt))
	}
	return diags, rows.Err()
}

// ProjectStats implements ports.GraphStore
func (s *Store) ProjectStats(ctx context.Context, projectID string) (*ports.ProjectStats, error) {
	stats := &ports.ProjectStats{
		ProjectKey:          projectID,
		NodesByType:         make(map[string]int),
		EdgesByRelationship: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT node_type, COUNT(*) FROM nodes WHERE project_id = ? GROUP BY node_type`, projectID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}
	for rows.Next() {
		var nodeType string
		var count int
		if err := rows.Scan(&nodeType, &count); err != nil {
			rows.Close()
			return nil, pkgerrors.NewDatabaseError("project_stats", err)
		}
		stats.NodesByType[nodeType] = count
		stats.NodeCount += count
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT relationship, COUNT(*) FROM edges WHERE project_id = ? GROUP BY relationship`, projectID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}
	for rows.Next() {
		var rel string
		var count int
		if err := rows.Scan(&rel, &count); err != nil {
			rows.Close()
			return nil, pkgerrors.NewDatabaseError("project_stats", err)
		}
		stats.EdgesByRelationship[rel] = count
		stats.EdgeCount += count
	}
	rows.Close()

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE project_id = ? AND superseded = 0`, projectID).
		Scan(&stats.ChunkCount); err != nil {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		WHERE c.project_id = ? AND c.superseded = 0
	`, projectID).Scan(&stats.EmbeddingCount); err != nil {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM diagnostics WHERE project_id = ?`, projectID).
		Scan(&stats.DiagnosticCount); err != nil {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}

	var lastIngested sql.NullTime
	if err := s.db.QueryRowContext(ctx,
		`SELECT last_ingested_at FROM project_meta WHERE project_id = ?`, projectID).
		Scan(&lastIngested); err != nil && err != sql.ErrNoRows {
		return nil, pkgerrors.NewDatabaseError("project_stats", err)
	}
	if lastIngested.Valid {
		stats.LastIngestedAt = lastIngested.Time
	}

	return stats, nil
}

// DeleteProject implements ports.GraphStore, removing the project's graph,
// chunks, embeddings, references, and diagnostics in one transaction
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewDatabaseError("delete_project", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE project_id = ?)`,
		`DELETE FROM chunks WHERE project_id = ?`,
		`DELETE FROM nodes WHERE project_id = ?`,
		`DELETE FROM edges WHERE project_id = ?`,
		`DELETE FROM symbol_references WHERE project_id = ?`,
		`DELETE FROM diagnostics WHERE project_id = ?`,
		`DELETE FROM project_meta WHERE project_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, projectID); err != nil {
			return pkgerrors.NewDatabaseError("delete_project", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewDatabaseError("delete_project", err)
	}
	return nil
}

// AddChunk implements ports.ChunkStore
func (s *Store) AddChunk(ctx context.Context, chunk *entities.Chunk) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, project_id, node_id, content, chunk_type, language, superseded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO NOTHING
	`, chunk.ID().String(), chunk.ProjectID(), chunk.NodeID().String(), chunk.Content(),
		string(chunk.Type()), chunk.Language(), chunk.CreatedAt())
	if err != nil {
		return pkgerrors.NewDatabaseError("add_chunk", err)
	}
	return nil
}

// GetChunk implements ports.ChunkStore
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*entities.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, node_id, content, chunk_type, language, superseded, created_at
		FROM chunks WHERE id = ?
	`, chunkID)

	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return chunk, err
}

// SupersedeChunks implements ports.ChunkStore. Superseded rows are kept
// but dropped from the FTS index so they stop matching searches.
func (s *Store) SupersedeChunks(ctx context.Context, projectID, nodeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewDatabaseError("supersede_chunks", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid, content FROM chunks WHERE project_id = ? AND node_id = ? AND superseded = 0`,
		projectID, nodeID)
	if err != nil {
		return pkgerrors.NewDatabaseError("supersede_chunks", err)
	}
	type ftsRow struct {
		rowid   int64
		content string
	}
	var stale []ftsRow
	for rows.Next() {
		var r ftsRow
		if err := rows.Scan(&r.rowid, &r.content); err != nil {
			rows.Close()
			return pkgerrors.NewDatabaseError("supersede_chunks", err)
		}
		stale = append(stale, r)
	}
	rows.Close()

	for _, r := range stale {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_fts(chunk_fts, rowid, content) VALUES ('delete', ?, ?)`,
			r.rowid, r.content); err != nil {
			return pkgerrors.NewDatabaseError("supersede_chunks", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chunks SET superseded = 1 WHERE project_id = ? AND node_id = ? AND superseded = 0`,
		projectID, nodeID); err != nil {
		return pkgerrors.NewDatabaseError("supersede_chunks", err)
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewDatabaseError("supersede_chunks", err)
	}
	return nil
}

// SearchChunks implements ports.ChunkStore with a BM25 MATCH query.
// The BM25 score (lower is better) is normalized into a [0, 1] rank.
func (s *Store) SearchChunks(ctx context.Context, projectID, query string, filters ports.ChunkFilters, limit int) ([]ports.ChunkHit, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, c.project_id, c.node_id, c.content, c.chunk_type, c.language, c.superseded, c.created_at,
			bm25(chunk_fts) AS score,
			COALESCE(n.name, ''), COALESCE(n.path, '')
		FROM chunk_fts
		JOIN chunks c ON c.rowid = chunk_fts.rowid
		LEFT JOIN nodes n ON n.project_id = c.project_id AND n.id = c.node_id
		WHERE chunk_fts MATCH ? AND c.project_id = ? AND c.superseded = 0`
	args := []interface{}{match, projectID}

	if len(filters.ChunkTypes) > 0 {
		placeholders := make([]string, len(filters.ChunkTypes))
		for i, ct := range filters.ChunkTypes {
			placeholders[i] = "?"
			args = append(args, string(ct))
		}
		sqlQuery += " AND c.chunk_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if filters.Language != "" {
		sqlQuery += " AND c.language = ? COLLATE NOCASE"
		args = append(args, filters.Language)
	}
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("search_chunks", err)
	}
	defer rows.Close()

	var hits []ports.ChunkHit
	for rows.Next() {
		var (
			id, project, nodeID, content, chunkType, language string
			superseded                                        bool
			createdAt                                         time.Time
			score                                             float64
			nodeName, nodePath                                string
		)
		if err := rows.Scan(&id, &project, &nodeID, &content, &chunkType, &language,
			&superseded, &createdAt, &score, &nodeName, &nodePath); err != nil {
			return nil, pkgerrors.NewDatabaseError("search_chunks", err)
		}

		chunkID, err := valueobjects.NewChunkIDFromString(id)
		if err != nil {
			continue
		}
		chunkNodeID, err := valueobjects.NewNodeIDFromString(nodeID)
		if err != nil {
			continue
		}

		// bm25 returns a negative score in SQLite, more negative = better.
		rank := 1.0 / (1.0 + maxFloat(0, -score))
		rank = 1.0 - rank
		if rank <= 0 {
			rank = 0.01
		}

		hits = append(hits, ports.ChunkHit{
			Chunk: entities.ReconstructChunk(chunkID, project, chunkNodeID, content,
				entities.ChunkType(chunkType), language, superseded, createdAt),
			NodeName:    nodeName,
			NodePath:    nodePath,
			LexicalRank: rank,
		})
	}
	return hits, rows.Err()
}

// GetEmbedding implements ports.ChunkStore, returning (nil, nil) when no
// embedding exists for the chunk
func (s *Store) GetEmbedding(ctx context.Context, chunkID string) (*entities.Embedding, error) {
	var (
		blob      []byte
		model     string
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT vector, model, created_at FROM embeddings WHERE chunk_id = ?`, chunkID).
		Scan(&blob, &model, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_embedding", err)
	}

	vector, err := blobToVector(blob)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_embedding", err)
	}
	id, err := valueobjects.NewChunkIDFromString(chunkID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get_embedding", err)
	}

	return entities.ReconstructEmbedding(id, vector, model, createdAt), nil
}

// SetEmbedding implements ports.ChunkStore
func (s *Store) SetEmbedding(ctx context.Context, embedding *entities.Embedding) error {
	blob, err := vectorToBlob(embedding.Vector())
	if err != nil {
		return pkgerrors.NewDatabaseError("set_embedding", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, model, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector=excluded.vector,
			model=excluded.model,
			created_at=excluded.created_at
	`, embedding.ChunkID().String(), blob, embedding.Model(), embedding.CreatedAt())
	if err != nil {
		return pkgerrors.NewDatabaseError("set_embedding", err)
	}
	return nil
}

func (s *Store) touchProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_meta (project_id, last_ingested_at) VALUES (?, ?)
		ON CONFLICT(project_id) DO UPDATE SET last_ingested_at=excluded.last_ingested_at
	`, projectID, time.Now())
	if err != nil {
		return pkgerrors.NewDatabaseError("touch_project", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*entities.Node, error) {
	var (
		id, project, nodeType, name, path, language, metadataJSON, commitHash string
		createdAt, updatedAt                                                  time.Time
	)
	if err := row.Scan(&id, &project, &nodeType, &name, &path, &language, &metadataJSON, &commitHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]string)
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, err
		}
	}

	return entities.ReconstructNode(nodeID, project, entities.NodeType(nodeType),
		name, path, language, metadata, commitHash, createdAt, updatedAt)
}

func collectNodes(rows *sql.Rows) ([]*entities.Node, error) {
	var nodes []*entities.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan_node", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func scanEdge(row rowScanner) (*entities.Edge, error) {
	var (
		id, project, from, to, relationship string
		weight, confidence                  float64
		createdAt, updatedAt                time.Time
	)
	if err := row.Scan(&id, &project, &from, &to, &relationship, &weight, &confidence, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	edgeID, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return nil, err
	}
	fromID, err := valueobjects.NewNodeIDFromString(from)
	if err != nil {
		return nil, err
	}
	toID, err := valueobjects.NewNodeIDFromString(to)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructEdge(edgeID, project, fromID, toID,
		entities.Relationship(relationship), weight, confidence, createdAt, updatedAt), nil
}

func scanChunk(row rowScanner) (*entities.Chunk, error) {
	var (
		id, project, nodeID, content, chunkType, language string
		superseded                                        bool
		createdAt                                         time.Time
	)
	if err := row.Scan(&id, &project, &nodeID, &content, &chunkType, &language, &superseded, &createdAt); err != nil {
		return nil, err
	}

	chunkID, err := valueobjects.NewChunkIDFromString(id)
	if err != nil {
		return nil, err
	}
	chunkNodeID, err := valueobjects.NewNodeIDFromString(nodeID)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructChunk(chunkID, project, chunkNodeID, content,
		entities.ChunkType(chunkType), language, superseded, createdAt), nil
}

// ftsMatchExpr builds an OR query of quoted tokens so punctuation in the
// raw query cannot break FTS5 syntax
func ftsMatchExpr(query string) string {
	tokens := entities.IndexTokens(query)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = fmt.Sprintf("%q", strings.ReplaceAll(t, `"`, ""))
	}
	return strings.Join(quoted, " OR ")
}

func vectorToBlob(vector []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blobToVector(blob []byte) ([]float32, error) {
	vector := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
