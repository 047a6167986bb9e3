package valueobjects

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "ckg-backend/pkg/errors"
)

// RefKind discriminates the two project identifier schemes in use.
type RefKind string

const (
	RefKindUUID    RefKind = "uuid"
	RefKindInteger RefKind = "integer"
)

// ProjectRef is a value object holding a project identifier in either
// scheme. Backends declare which kind they key their data by, and the
// resolver orders candidates accordingly.
type ProjectRef struct {
	kind RefKind
	raw  string
}

// ParseProjectRef classifies a raw identifier as UUID or integer.
// Anything else is a validation error.
func ParseProjectRef(raw string) (ProjectRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ProjectRef{}, pkgerrors.NewValidationError("project reference cannot be empty")
	}

	if _, err := uuid.Parse(raw); err == nil {
		return ProjectRef{kind: RefKindUUID, raw: strings.ToLower(raw)}, nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return ProjectRef{}, pkgerrors.NewValidationError("integer project reference cannot be negative")
		}
		return ProjectRef{kind: RefKindInteger, raw: strconv.FormatInt(n, 10)}, nil
	}

	return ProjectRef{}, pkgerrors.NewValidationError("project reference must be a UUID or a non-negative integer")
}

// Kind returns the identifier scheme of the reference
func (r ProjectRef) Kind() RefKind {
	return r.kind
}

// String returns the normalized raw identifier
func (r ProjectRef) String() string {
	return r.raw
}

// Int returns the integer value for integer-kind references
func (r ProjectRef) Int() (int64, error) {
	if r.kind != RefKindInteger {
		return 0, pkgerrors.NewValidationError("project reference is not an integer")
	}
	return strconv.ParseInt(r.raw, 10, 64)
}

// Equals checks if two references identify the same project
func (r ProjectRef) Equals(other ProjectRef) bool {
	return r.kind == other.kind && r.raw == other.raw
}

// IsZero checks if the reference is the zero value
func (r ProjectRef) IsZero() bool {
	return r.raw == ""
}

// MarshalJSON implements json.Marshaler
func (r ProjectRef) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.raw + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (r *ProjectRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("project reference must be a string")
	}
	parsed, err := ParseProjectRef(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
