package queries

import (
	"ckg-backend/application/ports"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// DependencyGraphQuery computes the bounded transitive dependency closure
// from the given root nodes. An empty root set starts from every node.
type DependencyGraphQuery struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
	Roots      []string                `json:"roots,omitempty"`
	MaxDepth   int                     `json:"max_depth"`
}

// Validate implements the Query interface
func (q DependencyGraphQuery) Validate() error {
	if q.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if q.MaxDepth < 1 {
		return pkgerrors.NewValidationError("maxDepth must be at least 1")
	}
	return nil
}

// DependencyGraphResult is the closure of edges reachable from the roots
type DependencyGraphResult struct {
	ProjectKey string                 `json:"project_key"`
	Backend    string                 `json:"backend"`
	MaxDepth   int                    `json:"max_depth"`
	Edges      []ports.DependencyEdge `json:"edges"`
}
