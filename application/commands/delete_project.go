package commands

import (
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// DeleteProjectResult summarizes a project deletion
type DeleteProjectResult struct {
	Backends []string `json:"backends"`
}

// DeleteProjectCommand removes a project's graph, chunks, embeddings,
// references, and diagnostics from every backend that accepts its
// reference scheme. Deletion cascades; no orphan rows survive.
type DeleteProjectCommand struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`

	// Result is populated by the handler
	Result *DeleteProjectResult `json:"-"`
}

// Validate implements the Command interface
func (c *DeleteProjectCommand) Validate() error {
	if c.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	return nil
}
