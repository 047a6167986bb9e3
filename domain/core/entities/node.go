package entities

import (
	"strings"
	"time"

	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
)

// NodeType represents the kind of code element a node stands for
type NodeType string

const (
	NodeTypeFile     NodeType = "file"
	NodeTypeSymbol   NodeType = "symbol"
	NodeTypeType     NodeType = "type"
	NodeTypeEndpoint NodeType = "endpoint"
	NodeTypeModule   NodeType = "module"
	NodeTypePackage  NodeType = "package"
)

// SymbolKind refines symbol nodes; stored in node metadata under "kind"
type SymbolKind string

const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindClass     SymbolKind = "class"
	SymbolKindVariable  SymbolKind = "variable"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindType      SymbolKind = "type"
)

// MetadataKeyKind is the metadata key carrying a symbol's kind
const MetadataKeyKind = "kind"

// ParseNodeType validates a raw node type string
func ParseNodeType(raw string) (NodeType, error) {
	switch NodeType(strings.ToLower(strings.TrimSpace(raw))) {
	case NodeTypeFile:
		return NodeTypeFile, nil
	case NodeTypeSymbol:
		return NodeTypeSymbol, nil
	case NodeTypeType:
		return NodeTypeType, nil
	case NodeTypeEndpoint:
		return NodeTypeEndpoint, nil
	case NodeTypeModule:
		return NodeTypeModule, nil
	case NodeTypePackage:
		return NodeTypePackage, nil
	default:
		return "", pkgerrors.NewValidationError("unknown node type: " + raw)
	}
}

// Node is the main entity representing a code element in the knowledge graph.
// Its identity is the tuple (project, type, path, name): re-ingesting the
// same element updates the existing node instead of creating a new one.
type Node struct {
	id         valueobjects.NodeID
	projectID  string
	nodeType   NodeType
	name       string
	path       string
	language   string
	metadata   map[string]string
	commitHash string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewNode creates a new node with validation. The ID is derived
// deterministically from the identity tuple so upserts converge.
func NewNode(projectID string, nodeType NodeType, name, path, language string) (*Node, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("node name cannot be empty")
	}
	if path == "" {
		return nil, pkgerrors.NewValidationError("node path cannot be empty")
	}
	if _, err := ParseNodeType(string(nodeType)); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Node{
		id:        valueobjects.NewDeterministicNodeID(projectID, string(nodeType), path, name),
		projectID: projectID,
		nodeType:  nodeType,
		name:      name,
		path:      path,
		language:  language,
		metadata:  make(map[string]string),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructNode reconstructs a node from repository data with preserved timestamps
func ReconstructNode(
	id valueobjects.NodeID,
	projectID string,
	nodeType NodeType,
	name, path, language string,
	metadata map[string]string,
	commitHash string,
	createdAt, updatedAt time.Time,
) (*Node, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("node name cannot be empty")
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}

	return &Node{
		id:         id,
		projectID:  projectID,
		nodeType:   nodeType,
		name:       name,
		path:       path,
		language:   language,
		metadata:   metadata,
		commitHash: commitHash,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// ProjectID returns the owning project's identifier
func (n *Node) ProjectID() string {
	return n.projectID
}

// Type returns the node type
func (n *Node) Type() NodeType {
	return n.nodeType
}

// Name returns the element name
func (n *Node) Name() string {
	return n.name
}

// Path returns the source path of the element
func (n *Node) Path() string {
	return n.path
}

// Language returns the source language
func (n *Node) Language() string {
	return n.language
}

// CommitHash returns the commit the node was last ingested at
func (n *Node) CommitHash() string {
	return n.commitHash
}

// IdentityKey returns the upsert identity tuple as a single key
func (n *Node) IdentityKey() string {
	return strings.Join([]string{n.projectID, string(n.nodeType), n.path, n.name}, "\x1f")
}

// SetMetadata sets one metadata entry
func (n *Node) SetMetadata(key, value string) {
	if n.metadata == nil {
		n.metadata = make(map[string]string)
	}
	n.metadata[key] = value
	n.updatedAt = time.Now()
}

// Metadata returns a copy of the metadata map
func (n *Node) Metadata() map[string]string {
	out := make(map[string]string, len(n.metadata))
	for k, v := range n.metadata {
		out[k] = v
	}
	return out
}

// Kind returns the symbol kind from metadata, if set
func (n *Node) Kind() SymbolKind {
	return SymbolKind(n.metadata[MetadataKeyKind])
}

// Refresh updates mutable fields from a re-ingested version of the element
func (n *Node) Refresh(language, commitHash string, metadata map[string]string) {
	if language != "" {
		n.language = language
	}
	if commitHash != "" {
		n.commitHash = commitHash
	}
	for k, v := range metadata {
		n.SetMetadata(k, v)
	}
	n.updatedAt = time.Now()
}

// IsDefinition reports whether this node type can carry symbol definitions
func (n *Node) IsDefinition() bool {
	switch n.nodeType {
	case NodeTypeSymbol, NodeTypeType, NodeTypeEndpoint:
		return true
	default:
		return false
	}
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}
