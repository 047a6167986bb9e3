package queries

import (
	"strings"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// SearchCodeQuery runs hybrid lexical/semantic search over a project's
// code chunks.
type SearchCodeQuery struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
	Query      string                  `json:"query"`
	ChunkTypes []string                `json:"chunk_types,omitempty"`
	Language   string                  `json:"language,omitempty"`
	Limit      int                     `json:"limit,omitempty"`
}

// Validate implements the Query interface
func (q SearchCodeQuery) Validate() error {
	if q.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if strings.TrimSpace(q.Query) == "" {
		return pkgerrors.NewValidationError("search query cannot be empty")
	}
	for _, ct := range q.ChunkTypes {
		if _, err := entities.ParseChunkType(ct); err != nil {
			return err
		}
	}
	return nil
}

// Filters converts the raw chunk type strings into typed filters
func (q SearchCodeQuery) Filters() ports.ChunkFilters {
	filters := ports.ChunkFilters{Language: q.Language}
	for _, ct := range q.ChunkTypes {
		parsed, err := entities.ParseChunkType(ct)
		if err == nil {
			filters.ChunkTypes = append(filters.ChunkTypes, parsed)
		}
	}
	return filters
}

// SearchCodeResult is the ranked hit list of one search
type SearchCodeResult struct {
	ProjectKey string            `json:"project_key"`
	Backend    string            `json:"backend"`
	Query      string            `json:"query"`
	Hits       []ports.SearchHit `json:"hits"`
}
