package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckg-backend/application/commands"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
)

func TestStoreDiagnostics_LinksFindingsToFileNodes(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	ingest := &commands.IngestScanCommand{ProjectRef: f.ref, Files: twoFileScan()}
	require.NoError(t, f.handler.Handle(ctx, ingest))

	handler := NewStoreDiagnosticsHandler(f.resolver, f.bus, f.handler.logger)
	cmd := &commands.StoreDiagnosticsCommand{
		ProjectRef: f.ref,
		Diagnostics: []commands.DiagnosticInput{
			{
				Path:          "internal/user/service.go",
				Severity:      "warning",
				Source:        "staticcheck",
				Code:          "SA4006",
				Message:       "value of id is never used",
				FixSuggestion: "drop the unused assignment",
				Line:          26,
				Column:        4,
			},
			{
				Path:     "internal/user/unknown.go",
				Severity: "error",
				Source:   "staticcheck",
				Message:  "undeclared name: repo",
				Line:     3,
			},
		},
	}
	require.NoError(t, handler.Handle(ctx, cmd))
	require.NotNil(t, cmd.Result)
	assert.Equal(t, 2, cmd.Result.Stored)

	diags, err := f.store.ListDiagnostics(ctx, "42", "", "", 10)
	require.NoError(t, err)
	require.Len(t, diags, 2)

	byPath := make(map[string]*entities.Diagnostic, len(diags))
	for _, d := range diags {
		byPath[d.Path()] = d
	}

	// scanned file resolves to its graph node
	linked := byPath["internal/user/service.go"]
	require.NotNil(t, linked)
	wantID := valueobjects.NewDeterministicNodeID(
		"42", string(entities.NodeTypeFile), "internal/user/service.go", "service.go")
	assert.Equal(t, wantID.String(), linked.NodeID().String())
	assert.Equal(t, "drop the unused assignment", linked.FixSuggestion())

	// a path with no node stays unlinked but is stored anyway
	unlinked := byPath["internal/user/unknown.go"]
	require.NotNil(t, unlinked)
	assert.True(t, unlinked.NodeID().IsZero())
}
