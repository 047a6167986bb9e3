package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = "42"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "graph.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertNode_OutcomeAndCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := entities.NewNode(project, entities.NodeTypeSymbol, "handler", "a.go", "go")
	require.NoError(t, err)
	// ingest refreshes nodes before writing, outcome detection must not
	// depend on created_at and updated_at still being equal
	first.Refresh("go", "abc123", nil)

	outcome, err := store.UpsertNode(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertCreated, outcome)

	time.Sleep(2 * time.Millisecond)
	second, err := entities.NewNode(project, entities.NodeTypeSymbol, "handler", "a.go", "go")
	require.NoError(t, err)
	outcome, err = store.UpsertNode(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertUpdated, outcome)

	stored, err := store.GetNode(ctx, project, first.ID().String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.CreatedAt().Equal(first.CreatedAt()))
	assert.True(t, stored.UpdatedAt().After(stored.CreatedAt()))
}

func TestListReferences_MostRecentFirstBeforeLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, line := range []int{1, 2, 3} {
		ref := entities.ReconstructSymbolReference(
			valueobjects.NewNodeID(), project, "formatDate", valueobjects.NodeID{},
			"src/app.js", entities.ReferenceTypeCall,
			valueobjects.Position{Line: line, Column: 1}, "",
			base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.AddReference(ctx, ref))
	}

	hits, err := store.ListReferences(ctx, project, "formatDate", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 3, hits[0].Reference.Position().Line)
	assert.Equal(t, 2, hits[1].Reference.Position().Line)
}

func TestDiagnostics_RoundTripWithNodeAndFix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos, err := valueobjects.NewPosition(14, 3)
	require.NoError(t, err)
	diag, err := entities.NewDiagnostic(project, "src/app.js", entities.SeverityWarning,
		"eslint", "no-unused-vars", "'tmp' is assigned a value but never used",
		"remove the unused assignment", pos)
	require.NoError(t, err)

	fileNodeID := valueobjects.NewDeterministicNodeID(project, string(entities.NodeTypeFile), "src/app.js", "app.js")
	diag.AttachNode(fileNodeID)
	require.NoError(t, store.AddDiagnostic(ctx, diag))

	diags, err := store.ListDiagnostics(ctx, project, "src/app.js", "", 10)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, fileNodeID.String(), diags[0].NodeID().String())
	assert.Equal(t, "remove the unused assignment", diags[0].FixSuggestion())
	assert.Equal(t, entities.SeverityWarning, diags[0].Severity())
	assert.Equal(t, 14, diags[0].Position().Line)
}
