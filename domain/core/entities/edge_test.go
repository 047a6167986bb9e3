package entities

import (
	"testing"

	"ckg-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodeIDs(t *testing.T) (valueobjects.NodeID, valueobjects.NodeID) {
	t.Helper()
	from := valueobjects.NewDeterministicNodeID("proj-1", "symbol", "a.go", "caller")
	to := valueobjects.NewDeterministicNodeID("proj-1", "symbol", "b.go", "callee")
	return from, to
}

func TestNewEdge_DeterministicIdentity(t *testing.T) {
	from, to := testNodeIDs(t)

	a, err := NewEdge("proj-1", from, to, RelationshipCalls, 1.0, 0.9)
	require.NoError(t, err)
	b, err := NewEdge("proj-1", from, to, RelationshipCalls, 2.5, 0.4)
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.IdentityKey(), b.IdentityKey())

	other, err := NewEdge("proj-1", from, to, RelationshipImports, 1.0, 0.9)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), other.ID())
}

func TestNewEdge_Validation(t *testing.T) {
	from, to := testNodeIDs(t)

	_, err := NewEdge("", from, to, RelationshipCalls, 1.0, 1.0)
	assert.Error(t, err)

	_, err = NewEdge("proj-1", valueobjects.NodeID{}, to, RelationshipCalls, 1.0, 1.0)
	assert.Error(t, err)

	_, err = NewEdge("proj-1", from, to, Relationship("borrows"), 1.0, 1.0)
	assert.Error(t, err)

	_, err = NewEdge("proj-1", from, to, RelationshipCalls, 0, 1.0)
	assert.Error(t, err)

	_, err = NewEdge("proj-1", from, to, RelationshipCalls, 1.0, 0)
	assert.Error(t, err)

	_, err = NewEdge("proj-1", from, to, RelationshipCalls, 1.0, 1.1)
	assert.Error(t, err)
}

func TestEdge_Accumulate(t *testing.T) {
	from, to := testNodeIDs(t)

	e, err := NewEdge("proj-1", from, to, RelationshipCalls, 1.0, 0.6)
	require.NoError(t, err)

	require.NoError(t, e.Accumulate(2.0, 0.9))
	assert.InDelta(t, 3.0, e.Weight(), 1e-9)
	assert.InDelta(t, 0.9, e.Confidence(), 1e-9)

	// lower confidence does not overwrite the higher one
	require.NoError(t, e.Accumulate(1.0, 0.3))
	assert.InDelta(t, 4.0, e.Weight(), 1e-9)
	assert.InDelta(t, 0.9, e.Confidence(), 1e-9)

	assert.Error(t, e.Accumulate(0, 0.5))
}

func TestParseRelationship(t *testing.T) {
	parsed, err := ParseRelationship(" Calls ")
	require.NoError(t, err)
	assert.Equal(t, RelationshipCalls, parsed)

	_, err = ParseRelationship("borrows")
	assert.Error(t, err)
}
