package queries

import (
	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// ProjectStatsQuery summarizes a project's stored graph
type ProjectStatsQuery struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
}

// Validate implements the Query interface
func (q ProjectStatsQuery) Validate() error {
	if q.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	return nil
}

// ProjectStatsResult wraps the backend stats with provenance
type ProjectStatsResult struct {
	Backend string              `json:"backend"`
	Stats   *ports.ProjectStats `json:"stats"`
}

// ListDiagnosticsQuery lists stored analyzer findings with optional filters
type ListDiagnosticsQuery struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
	Path       string                  `json:"path,omitempty"`
	Severity   string                  `json:"severity,omitempty"`
	Limit      int                     `json:"limit,omitempty"`
}

// Validate implements the Query interface
func (q ListDiagnosticsQuery) Validate() error {
	if q.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if q.Severity != "" {
		if _, err := entities.ParseSeverity(q.Severity); err != nil {
			return err
		}
	}
	return nil
}

// DiagnosticItem is the transport shape of one stored finding
type DiagnosticItem struct {
	NodeID        string            `json:"node_id,omitempty"`
	Path          string            `json:"path"`
	Severity      entities.Severity `json:"severity"`
	Source        string            `json:"source,omitempty"`
	Code          string            `json:"code,omitempty"`
	Message       string            `json:"message"`
	FixSuggestion string            `json:"fix_suggestion,omitempty"`
	Line          int               `json:"line"`
	Column        int               `json:"column"`
}

// ListDiagnosticsResult lists findings for a project
type ListDiagnosticsResult struct {
	ProjectKey  string           `json:"project_key"`
	Backend     string           `json:"backend"`
	Diagnostics []DiagnosticItem `json:"diagnostics"`
}
