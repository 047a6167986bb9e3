package entities

import (
	"strings"
	"time"

	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// ReferenceType classifies how a symbol occurrence relates to its symbol
type ReferenceType string

const (
	ReferenceTypeDefinition    ReferenceType = "definition"
	ReferenceTypeUsage         ReferenceType = "usage"
	ReferenceTypeCall          ReferenceType = "call"
	ReferenceTypeInstantiation ReferenceType = "instantiation"
)

// ParseReferenceType validates a raw reference type string
func ParseReferenceType(raw string) (ReferenceType, error) {
	switch ReferenceType(strings.ToLower(strings.TrimSpace(raw))) {
	case ReferenceTypeDefinition:
		return ReferenceTypeDefinition, nil
	case ReferenceTypeUsage:
		return ReferenceTypeUsage, nil
	case ReferenceTypeCall:
		return ReferenceTypeCall, nil
	case ReferenceTypeInstantiation:
		return ReferenceTypeInstantiation, nil
	default:
		return "", pkgerrors.NewValidationError("unknown reference type: " + raw)
	}
}

// SymbolReference records one occurrence of a symbol at a source location.
type SymbolReference struct {
	id            valueobjects.NodeID
	projectID     string
	symbolName    string
	symbolNodeID  valueobjects.NodeID
	locationPath  string
	referenceType ReferenceType
	position      valueobjects.Position
	context       string
	createdAt     time.Time
}

// NewSymbolReference creates a reference occurrence with validation
func NewSymbolReference(
	projectID, symbolName string,
	symbolNodeID valueobjects.NodeID,
	locationPath string,
	referenceType ReferenceType,
	position valueobjects.Position,
	context string,
) (*SymbolReference, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if symbolName == "" {
		return nil, pkgerrors.NewValidationError("symbol name cannot be empty")
	}
	if locationPath == "" {
		return nil, pkgerrors.NewValidationError("reference location path cannot be empty")
	}
	if _, err := ParseReferenceType(string(referenceType)); err != nil {
		return nil, err
	}

	return &SymbolReference{
		id:            valueobjects.NewNodeID(),
		projectID:     projectID,
		symbolName:    symbolName,
		symbolNodeID:  symbolNodeID,
		locationPath:  locationPath,
		referenceType: referenceType,
		position:      position,
		context:       context,
		createdAt:     time.Now(),
	}, nil
}

// ReconstructSymbolReference reconstructs a reference from repository data
func ReconstructSymbolReference(
	id valueobjects.NodeID,
	projectID, symbolName string,
	symbolNodeID valueobjects.NodeID,
	locationPath string,
	referenceType ReferenceType,
	position valueobjects.Position,
	context string,
	createdAt time.Time,
) *SymbolReference {
	return &SymbolReference{
		id:            id,
		projectID:     projectID,
		symbolName:    symbolName,
		symbolNodeID:  symbolNodeID,
		locationPath:  locationPath,
		referenceType: referenceType,
		position:      position,
		context:       context,
		createdAt:     createdAt,
	}
}

// ID returns the reference's unique identifier
func (r *SymbolReference) ID() valueobjects.NodeID {
	return r.id
}

// ProjectID returns the owning project's identifier
func (r *SymbolReference) ProjectID() string {
	return r.projectID
}

// SymbolName returns the referenced symbol's name
func (r *SymbolReference) SymbolName() string {
	return r.symbolName
}

// SymbolNodeID returns the graph node of the referenced symbol, if resolved
func (r *SymbolReference) SymbolNodeID() valueobjects.NodeID {
	return r.symbolNodeID
}

// LocationPath returns the file path where the occurrence was found
func (r *SymbolReference) LocationPath() string {
	return r.locationPath
}

// Type returns the reference type
func (r *SymbolReference) Type() ReferenceType {
	return r.referenceType
}

// Position returns the source position of the occurrence
func (r *SymbolReference) Position() valueobjects.Position {
	return r.position
}

// Context returns the surrounding source line, when captured
func (r *SymbolReference) Context() string {
	return r.context
}

// CreatedAt returns when the reference was recorded
func (r *SymbolReference) CreatedAt() time.Time {
	return r.createdAt
}
