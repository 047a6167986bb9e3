package queries

import (
	"strings"
	"time"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// FindDefinitionsQuery looks up definition-bearing nodes by exact name
type FindDefinitionsQuery struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
	Name       string                  `json:"name"`
	Types      []string                `json:"types,omitempty"`
	Language   string                  `json:"language,omitempty"`
}

// Validate implements the Query interface
func (q FindDefinitionsQuery) Validate() error {
	if q.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if strings.TrimSpace(q.Name) == "" {
		return pkgerrors.NewValidationError("symbol name cannot be empty")
	}
	for _, t := range q.Types {
		if _, err := entities.ParseNodeType(t); err != nil {
			return err
		}
	}
	return nil
}

// Filters converts the raw type strings into typed filters
func (q FindDefinitionsQuery) Filters() ports.NodeFilters {
	filters := ports.NodeFilters{Language: q.Language}
	for _, t := range q.Types {
		parsed, err := entities.ParseNodeType(t)
		if err == nil {
			filters.Types = append(filters.Types, parsed)
		}
	}
	return filters
}

// SymbolDefinition is the transport shape of one found definition
type SymbolDefinition struct {
	NodeID    string            `json:"node_id"`
	Name      string            `json:"name"`
	Type      entities.NodeType `json:"type"`
	Kind      string            `json:"kind,omitempty"`
	Path      string            `json:"path"`
	Language  string            `json:"language,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FindDefinitionsResult lists the definitions found for a name
type FindDefinitionsResult struct {
	ProjectKey  string             `json:"project_key"`
	Backend     string             `json:"backend"`
	Name        string             `json:"name"`
	Definitions []SymbolDefinition `json:"definitions"`
}

// FindReferencesQuery lists recorded occurrences of a symbol name
type FindReferencesQuery struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
	Name       string                  `json:"name"`
	Limit      int                     `json:"limit,omitempty"`
}

// Validate implements the Query interface
func (q FindReferencesQuery) Validate() error {
	if q.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if strings.TrimSpace(q.Name) == "" {
		return pkgerrors.NewValidationError("symbol name cannot be empty")
	}
	return nil
}

// SymbolOccurrence is the transport shape of one reference hit
type SymbolOccurrence struct {
	SymbolName    string                 `json:"symbol_name"`
	ReferenceType entities.ReferenceType `json:"reference_type"`
	Path          string                 `json:"path"`
	Line          int                    `json:"line"`
	Column        int                    `json:"column"`
	Context       string                 `json:"context,omitempty"`
}

// FindReferencesResult lists the occurrences found for a name
type FindReferencesResult struct {
	ProjectKey  string             `json:"project_key"`
	Backend     string             `json:"backend"`
	Name        string             `json:"name"`
	Occurrences []SymbolOccurrence `json:"occurrences"`
}
