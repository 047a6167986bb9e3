package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode_DeterministicIdentity(t *testing.T) {
	a, err := NewNode("proj-1", NodeTypeSymbol, "ParseConfig", "internal/config/config.go", "go")
	require.NoError(t, err)
	b, err := NewNode("proj-1", NodeTypeSymbol, "ParseConfig", "internal/config/config.go", "go")
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.IdentityKey(), b.IdentityKey())
}

func TestNewNode_IdentityVariesWithTuple(t *testing.T) {
	base, err := NewNode("proj-1", NodeTypeSymbol, "ParseConfig", "a.go", "go")
	require.NoError(t, err)

	otherProject, err := NewNode("proj-2", NodeTypeSymbol, "ParseConfig", "a.go", "go")
	require.NoError(t, err)
	otherType, err := NewNode("proj-1", NodeTypeType, "ParseConfig", "a.go", "go")
	require.NoError(t, err)
	otherPath, err := NewNode("proj-1", NodeTypeSymbol, "ParseConfig", "b.go", "go")
	require.NoError(t, err)
	otherName, err := NewNode("proj-1", NodeTypeSymbol, "LoadConfig", "a.go", "go")
	require.NoError(t, err)

	for _, n := range []*Node{otherProject, otherType, otherPath, otherName} {
		assert.NotEqual(t, base.ID(), n.ID())
	}
}

func TestNewNode_Validation(t *testing.T) {
	_, err := NewNode("", NodeTypeSymbol, "x", "a.go", "go")
	assert.Error(t, err)

	_, err = NewNode("proj-1", NodeTypeSymbol, "", "a.go", "go")
	assert.Error(t, err)

	_, err = NewNode("proj-1", NodeTypeSymbol, "x", "", "go")
	assert.Error(t, err)

	_, err = NewNode("proj-1", NodeType("gadget"), "x", "a.go", "go")
	assert.Error(t, err)
}

func TestNode_KindFromMetadata(t *testing.T) {
	n, err := NewNode("proj-1", NodeTypeSymbol, "handler", "a.go", "go")
	require.NoError(t, err)

	assert.Empty(t, string(n.Kind()))

	n.SetMetadata(MetadataKeyKind, string(SymbolKindFunction))
	assert.Equal(t, SymbolKindFunction, n.Kind())
}

func TestNode_Refresh(t *testing.T) {
	n, err := NewNode("proj-1", NodeTypeSymbol, "handler", "a.go", "")
	require.NoError(t, err)

	n.Refresh("go", "abc123", map[string]string{"exported": "true"})

	assert.Equal(t, "go", n.Language())
	assert.Equal(t, "abc123", n.CommitHash())
	assert.Equal(t, "true", n.Metadata()["exported"])

	// empty values leave existing fields intact
	n.Refresh("", "", nil)
	assert.Equal(t, "go", n.Language())
	assert.Equal(t, "abc123", n.CommitHash())
}

func TestNode_IsDefinition(t *testing.T) {
	cases := map[NodeType]bool{
		NodeTypeSymbol:   true,
		NodeTypeType:     true,
		NodeTypeEndpoint: true,
		NodeTypeFile:     false,
		NodeTypeModule:   false,
		NodeTypePackage:  false,
	}
	for nodeType, want := range cases {
		n, err := NewNode("proj-1", nodeType, "x", "a.go", "go")
		require.NoError(t, err)
		assert.Equal(t, want, n.IsDefinition(), "type %s", nodeType)
	}
}

func TestParseNodeType(t *testing.T) {
	parsed, err := ParseNodeType("  Symbol ")
	require.NoError(t, err)
	assert.Equal(t, NodeTypeSymbol, parsed)

	_, err = ParseNodeType("widget")
	assert.Error(t, err)
}
