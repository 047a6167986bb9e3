package valueobjects

import pkgerrors "ckg-backend/pkg/errors"

// Position is a value object locating a symbol occurrence in source text.
// Lines are 1-based, columns are 0-based, matching LSP conventions.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NewPosition creates a position with validation
func NewPosition(line, column int) (Position, error) {
	if line < 1 {
		return Position{}, pkgerrors.NewValidationError("line must be at least 1")
	}
	if column < 0 {
		return Position{}, pkgerrors.NewValidationError("column cannot be negative")
	}
	return Position{Line: line, Column: column}, nil
}

// IsZero checks if the position is unset
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}
