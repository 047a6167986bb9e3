package entities

import (
	"strings"
	"time"

	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// Relationship represents the typed dependency an edge encodes
type Relationship string

const (
	RelationshipDefines    Relationship = "defines"
	RelationshipReferences Relationship = "references"
	RelationshipImports    Relationship = "imports"
	RelationshipExports    Relationship = "exports"
	RelationshipCalls      Relationship = "calls"
	RelationshipExtends    Relationship = "extends"
	RelationshipContains   Relationship = "contains"
)

// ParseRelationship validates a raw relationship string
func ParseRelationship(raw string) (Relationship, error) {
	switch Relationship(strings.ToLower(strings.TrimSpace(raw))) {
	case RelationshipDefines:
		return RelationshipDefines, nil
	case RelationshipReferences:
		return RelationshipReferences, nil
	case RelationshipImports:
		return RelationshipImports, nil
	case RelationshipExports:
		return RelationshipExports, nil
	case RelationshipCalls:
		return RelationshipCalls, nil
	case RelationshipExtends:
		return RelationshipExtends, nil
	case RelationshipContains:
		return RelationshipContains, nil
	default:
		return "", pkgerrors.NewValidationError("unknown relationship: " + raw)
	}
}

// Edge is a directed, weighted, typed dependency between two nodes.
// Its identity is (from, to, relationship): upserting the same edge again
// accumulates weight rather than duplicating the row.
type Edge struct {
	id           valueobjects.NodeID
	projectID    string
	fromNodeID   valueobjects.NodeID
	toNodeID     valueobjects.NodeID
	relationship Relationship
	weight       float64
	confidence   float64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewEdge creates an edge with validation. Weight must be positive and
// confidence must lie in (0, 1].
func NewEdge(projectID string, from, to valueobjects.NodeID, relationship Relationship, weight, confidence float64) (*Edge, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if _, err := ParseRelationship(string(relationship)); err != nil {
		return nil, err
	}
	if weight <= 0 {
		return nil, pkgerrors.NewValidationError("edge weight must be positive")
	}
	if confidence <= 0 || confidence > 1 {
		return nil, pkgerrors.NewValidationError("edge confidence must be in (0, 1]")
	}

	now := time.Now()
	return &Edge{
		id:           valueobjects.NewDeterministicNodeID(projectID, from.String(), to.String(), string(relationship)),
		projectID:    projectID,
		fromNodeID:   from,
		toNodeID:     to,
		relationship: relationship,
		weight:       weight,
		confidence:   confidence,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructEdge reconstructs an edge from repository data
func ReconstructEdge(
	id valueobjects.NodeID,
	projectID string,
	from, to valueobjects.NodeID,
	relationship Relationship,
	weight, confidence float64,
	createdAt, updatedAt time.Time,
) *Edge {
	return &Edge{
		id:           id,
		projectID:    projectID,
		fromNodeID:   from,
		toNodeID:     to,
		relationship: relationship,
		weight:       weight,
		confidence:   confidence,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.NodeID {
	return e.id
}

// ProjectID returns the owning project's identifier
func (e *Edge) ProjectID() string {
	return e.projectID
}

// FromNodeID returns the source node
func (e *Edge) FromNodeID() valueobjects.NodeID {
	return e.fromNodeID
}

// ToNodeID returns the target node
func (e *Edge) ToNodeID() valueobjects.NodeID {
	return e.toNodeID
}

// Relationship returns the edge's relationship type
func (e *Edge) Relationship() Relationship {
	return e.relationship
}

// Weight returns the accumulated edge weight
func (e *Edge) Weight() float64 {
	return e.weight
}

// Confidence returns the extraction confidence
func (e *Edge) Confidence() float64 {
	return e.confidence
}

// IdentityKey returns the upsert identity tuple as a single key
func (e *Edge) IdentityKey() string {
	return strings.Join([]string{e.fromNodeID.String(), e.toNodeID.String(), string(e.relationship)}, "\x1f")
}

// Accumulate folds another observation of the same dependency into this
// edge: weight adds up, confidence keeps the higher value.
func (e *Edge) Accumulate(weight, confidence float64) error {
	if weight <= 0 {
		return pkgerrors.NewValidationError("edge weight must be positive")
	}
	e.weight += weight
	if confidence > e.confidence {
		e.confidence = confidence
	}
	e.updatedAt = time.Now()
	return nil
}

// CreatedAt returns when the edge was first observed
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// UpdatedAt returns when the edge was last reinforced
func (e *Edge) UpdatedAt() time.Time {
	return e.updatedAt
}
