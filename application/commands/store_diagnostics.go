package commands

import (
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/utils"
)

// DiagnosticInput is one analyzer finding to store
type DiagnosticInput struct {
	Path          string `json:"path" validate:"required"`
	Severity      string `json:"severity" validate:"required,oneof=info warning error"`
	Source        string `json:"source,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message" validate:"required"`
	FixSuggestion string `json:"fix_suggestion,omitempty"`
	Line          int    `json:"line" validate:"min=0"`
	Column        int    `json:"column" validate:"min=0"`
}

// StoreDiagnosticsResult summarizes a diagnostics write
type StoreDiagnosticsResult struct {
	Backend string `json:"backend"`
	Stored  int    `json:"stored"`
}

// StoreDiagnosticsCommand attaches analyzer findings to a project
type StoreDiagnosticsCommand struct {
	ProjectRef  valueobjects.ProjectRef `json:"project_ref"`
	Diagnostics []DiagnosticInput       `json:"diagnostics" validate:"required,dive"`

	// Result is populated by the handler
	Result *StoreDiagnosticsResult `json:"-"`
}

// Validate implements the Command interface
func (c *StoreDiagnosticsCommand) Validate() error {
	if c.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if len(c.Diagnostics) == 0 {
		return pkgerrors.NewValidationError("at least one diagnostic is required")
	}
	if err := utils.ValidateStruct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}
