package entities

import (
	"strings"
	"time"

	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// Severity ranks diagnostics from informational to fatal
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity validates a raw severity string
func ParseSeverity(raw string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityError:
		return SeverityError, nil
	default:
		return "", pkgerrors.NewValidationError("unknown severity: " + raw)
	}
}

// Diagnostic is an analyzer finding attached to a file in a project.
// When the file has a node in the graph, nodeID links the finding to it.
type Diagnostic struct {
	id            valueobjects.NodeID
	projectID     string
	nodeID        valueobjects.NodeID
	path          string
	severity      Severity
	source        string
	code          string
	message       string
	fixSuggestion string
	position      valueobjects.Position
	createdAt     time.Time
}

// NewDiagnostic creates a diagnostic with validation
func NewDiagnostic(projectID, path string, severity Severity, source, code, message, fixSuggestion string, position valueobjects.Position) (*Diagnostic, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if path == "" {
		return nil, pkgerrors.NewValidationError("diagnostic path cannot be empty")
	}
	if message == "" {
		return nil, pkgerrors.NewValidationError("diagnostic message cannot be empty")
	}
	if _, err := ParseSeverity(string(severity)); err != nil {
		return nil, err
	}

	return &Diagnostic{
		id:            valueobjects.NewNodeID(),
		projectID:     projectID,
		path:          path,
		severity:      severity,
		source:        source,
		code:          code,
		message:       message,
		fixSuggestion: fixSuggestion,
		position:      position,
		createdAt:     time.Now(),
	}, nil
}

// ReconstructDiagnostic reconstructs a diagnostic from repository data
func ReconstructDiagnostic(
	id valueobjects.NodeID,
	projectID string,
	nodeID valueobjects.NodeID,
	path string,
	severity Severity,
	source, code, message, fixSuggestion string,
	position valueobjects.Position,
	createdAt time.Time,
) *Diagnostic {
	return &Diagnostic{
		id:            id,
		projectID:     projectID,
		nodeID:        nodeID,
		path:          path,
		severity:      severity,
		source:        source,
		code:          code,
		message:       message,
		fixSuggestion: fixSuggestion,
		position:      position,
		createdAt:     createdAt,
	}
}

// AttachNode links the finding to the graph node of its file
func (d *Diagnostic) AttachNode(nodeID valueobjects.NodeID) {
	d.nodeID = nodeID
}

// ID returns the diagnostic's unique identifier
func (d *Diagnostic) ID() valueobjects.NodeID {
	return d.id
}

// ProjectID returns the owning project's identifier
func (d *Diagnostic) ProjectID() string {
	return d.projectID
}

// NodeID returns the linked graph node, zero when the file has none
func (d *Diagnostic) NodeID() valueobjects.NodeID {
	return d.nodeID
}

// Path returns the file the finding applies to
func (d *Diagnostic) Path() string {
	return d.path
}

// Severity returns the finding's severity
func (d *Diagnostic) Severity() Severity {
	return d.severity
}

// Source returns the analyzer that produced the finding
func (d *Diagnostic) Source() string {
	return d.source
}

// Code returns the analyzer-specific rule code
func (d *Diagnostic) Code() string {
	return d.code
}

// Message returns the human-readable finding text
func (d *Diagnostic) Message() string {
	return d.message
}

// FixSuggestion returns the analyzer's suggested fix, if any
func (d *Diagnostic) FixSuggestion() string {
	return d.fixSuggestion
}

// Position returns where in the file the finding points
func (d *Diagnostic) Position() valueobjects.Position {
	return d.position
}

// CreatedAt returns when the diagnostic was stored
func (d *Diagnostic) CreatedAt() time.Time {
	return d.createdAt
}
