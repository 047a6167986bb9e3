package sqlite

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// migrate brings the database to the current schema version. Migrations
// are idempotent and append-only: each version block runs at most once
// and never edits an earlier block.
func migrate(db *sql.DB, logger *zap.Logger) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	var version int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	// v1: core graph tables
	if version < 1 {
		logger.Info("migrating sqlite schema to v1")
		statements := []string{
			`CREATE TABLE IF NOT EXISTS nodes (
				id TEXT NOT NULL,
				project_id TEXT NOT NULL,
				node_type TEXT NOT NULL,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				language TEXT,
				metadata TEXT,
				commit_hash TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (project_id, id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(project_id, name)`,
			`CREATE TABLE IF NOT EXISTS edges (
				id TEXT NOT NULL,
				project_id TEXT NOT NULL,
				from_id TEXT NOT NULL,
				to_id TEXT NOT NULL,
				relationship TEXT NOT NULL,
				weight REAL NOT NULL,
				confidence REAL NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (project_id, id),
				UNIQUE (project_id, from_id, to_id, relationship)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(project_id, from_id)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(project_id, to_id)`,
			`CREATE TABLE IF NOT EXISTS symbol_references (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				symbol_name TEXT NOT NULL,
				symbol_node_id TEXT,
				path TEXT NOT NULL,
				reference_type TEXT NOT NULL,
				line INTEGER NOT NULL,
				col INTEGER NOT NULL,
				context TEXT,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_refs_symbol ON symbol_references(project_id, symbol_name)`,
			`CREATE TABLE IF NOT EXISTS diagnostics (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				node_id TEXT,
				path TEXT NOT NULL,
				severity TEXT NOT NULL,
				source TEXT,
				code TEXT,
				message TEXT NOT NULL,
				fix_suggestion TEXT,
				line INTEGER NOT NULL,
				col INTEGER NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_diag_project ON diagnostics(project_id, path)`,
			`CREATE TABLE IF NOT EXISTS project_meta (
				project_id TEXT PRIMARY KEY,
				last_ingested_at TIMESTAMP NOT NULL
			)`,
		}
		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("schema v1 migration failed: %w", err)
			}
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return err
		}
	}

	// v2: chunk and embedding tables with an FTS5 index over chunk content
	if version < 2 {
		logger.Info("migrating sqlite schema to v2")
		statements := []string{
			`CREATE TABLE IF NOT EXISTS chunks (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				node_id TEXT NOT NULL,
				content TEXT NOT NULL,
				chunk_type TEXT NOT NULL,
				language TEXT,
				superseded INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chunks_node ON chunks(project_id, node_id)`,
			`CREATE TABLE IF NOT EXISTS embeddings (
				chunk_id TEXT PRIMARY KEY,
				vector BLOB NOT NULL,
				model TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_fts USING fts5(
				content,
				content=chunks,
				content_rowid=rowid
			)`,
			`CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
				INSERT INTO chunk_fts(rowid, content) VALUES (NEW.rowid, NEW.content);
			END`,
			`CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
				INSERT INTO chunk_fts(chunk_fts, rowid, content) VALUES ('delete', OLD.rowid, OLD.content);
			END`,
		}
		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("schema v2 migration failed: %w", err)
			}
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (2)`); err != nil {
			return err
		}
	}

	return nil
}
