package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name string
}

func (b *stubBackend) Name() string                               { return b.name }
func (b *stubBackend) Accepts(ref valueobjects.ProjectRef) bool   { return true }
func (b *stubBackend) Ping(ctx context.Context) error             { return nil }
func (b *stubBackend) Stores() (ports.GraphStore, ports.ChunkStore) { return nil, nil }

func (b *stubBackend) DependencyGraph(ctx context.Context, ref valueobjects.ProjectRef, roots []string, maxDepth int) ([]ports.DependencyEdge, error) {
	return nil, nil
}
func (b *stubBackend) Search(ctx context.Context, ref valueobjects.ProjectRef, query string, filters ports.ChunkFilters, limit int) ([]ports.SearchHit, error) {
	return nil, nil
}
func (b *stubBackend) FindDefinitions(ctx context.Context, ref valueobjects.ProjectRef, name string, filters ports.NodeFilters) ([]*entities.Node, error) {
	return nil, nil
}
func (b *stubBackend) FindReferences(ctx context.Context, ref valueobjects.ProjectRef, name string, limit int) ([]ports.ReferenceHit, error) {
	return nil, nil
}
func (b *stubBackend) ListDiagnostics(ctx context.Context, ref valueobjects.ProjectRef, path string, severity entities.Severity, limit int) ([]*entities.Diagnostic, error) {
	return nil, nil
}
func (b *stubBackend) Stats(ctx context.Context, ref valueobjects.ProjectRef) (*ports.ProjectStats, error) {
	return nil, nil
}

type stubResolver struct {
	candidates []ports.Backend
	accepting  []ports.Backend
}

func (r *stubResolver) Candidates(ctx context.Context, ref valueobjects.ProjectRef) []ports.Backend {
	return r.candidates
}
func (r *stubResolver) IngestTarget(ctx context.Context, ref valueobjects.ProjectRef) (ports.Backend, error) {
	if len(r.candidates) == 0 {
		return nil, errors.New("no backend")
	}
	return r.candidates[0], nil
}
func (r *stubResolver) AcceptingBackends(ref valueobjects.ProjectRef) []ports.Backend {
	return r.accepting
}

func testRef(t *testing.T) valueobjects.ProjectRef {
	t.Helper()
	ref, err := valueobjects.ParseProjectRef("42")
	require.NoError(t, err)
	return ref
}

func newTestExecutor(resolver ports.BackendResolver) *QueryExecutor {
	return NewQueryExecutor(resolver, 0, observability.NewMetrics("test_executor"), zap.NewNop())
}

func TestExecute_FirstNonEmptyWins(t *testing.T) {
	first := &stubBackend{name: "first"}
	second := &stubBackend{name: "second"}
	exec := newTestExecutor(&stubResolver{candidates: []ports.Backend{first, second}})

	asked := []string{}
	result, backend, noData, err := exec.Execute(context.Background(), testRef(t), "search", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		asked = append(asked, b.Name())
		if b.Name() == "first" {
			return nil, true, nil
		}
		return "hit", false, nil
	})

	require.NoError(t, err)
	assert.False(t, noData)
	assert.Equal(t, "hit", result)
	assert.Equal(t, "second", backend)
	assert.Equal(t, []string{"first", "second"}, asked)
}

func TestExecute_StopsAtFirstData(t *testing.T) {
	first := &stubBackend{name: "first"}
	second := &stubBackend{name: "second"}
	exec := newTestExecutor(&stubResolver{candidates: []ports.Backend{first, second}})

	asked := 0
	result, backend, _, err := exec.Execute(context.Background(), testRef(t), "stats", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		asked++
		return "data", false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "data", result)
	assert.Equal(t, "first", backend)
	assert.Equal(t, 1, asked)
}

func TestExecute_ErrorFallsThroughToNextBackend(t *testing.T) {
	first := &stubBackend{name: "first"}
	second := &stubBackend{name: "second"}
	exec := newTestExecutor(&stubResolver{candidates: []ports.Backend{first, second}})

	result, backend, noData, err := exec.Execute(context.Background(), testRef(t), "search", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		if b.Name() == "first" {
			return nil, false, errors.New("connection refused")
		}
		return "hit", false, nil
	})

	require.NoError(t, err)
	assert.False(t, noData)
	assert.Equal(t, "hit", result)
	assert.Equal(t, "second", backend)
}

func TestExecute_AllEmptyIsNoData(t *testing.T) {
	exec := newTestExecutor(&stubResolver{candidates: []ports.Backend{
		&stubBackend{name: "first"},
		&stubBackend{name: "second"},
	}})

	result, backend, noData, err := exec.Execute(context.Background(), testRef(t), "search", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		return nil, true, nil
	})

	require.NoError(t, err)
	assert.True(t, noData)
	assert.Nil(t, result)
	assert.Empty(t, backend)
}

func TestExecute_ErrorPlusEmptyIsStillNoData(t *testing.T) {
	exec := newTestExecutor(&stubResolver{candidates: []ports.Backend{
		&stubBackend{name: "broken"},
		&stubBackend{name: "empty"},
	}})

	_, _, noData, err := exec.Execute(context.Background(), testRef(t), "search", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		if b.Name() == "broken" {
			return nil, false, errors.New("boom")
		}
		return nil, true, nil
	})

	require.NoError(t, err)
	assert.True(t, noData)
}

func TestExecute_AllFailuresAggregated(t *testing.T) {
	exec := newTestExecutor(&stubResolver{candidates: []ports.Backend{
		&stubBackend{name: "first"},
		&stubBackend{name: "second"},
	}})

	_, _, noData, err := exec.Execute(context.Background(), testRef(t), "dependencies", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		return nil, false, errors.New(b.Name() + " down")
	})

	require.Error(t, err)
	assert.False(t, noData)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeAllBackendsFailed))

	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	failures, ok := appErr.Details["failures"].([]interface{})
	require.True(t, ok)
	require.Len(t, failures, 2)
	assert.Equal(t, "first", failures[0].(map[string]interface{})["backend"])
	assert.Equal(t, "first down", failures[0].(map[string]interface{})["reason"])
	assert.Equal(t, "second", failures[1].(map[string]interface{})["backend"])
}

func TestExecute_NoCandidates(t *testing.T) {
	dead := &stubBackend{name: "dead"}
	exec := newTestExecutor(&stubResolver{accepting: []ports.Backend{dead}})

	_, _, _, err := exec.Execute(context.Background(), testRef(t), "stats", func(ctx context.Context, b ports.Backend) (interface{}, bool, error) {
		t.Fatal("attempt must not run without candidates")
		return nil, false, nil
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeAllBackendsFailed))

	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	failures, ok := appErr.Details["failures"].([]interface{})
	require.True(t, ok)
	require.Len(t, failures, 1)
	assert.Equal(t, "dead", failures[0].(map[string]interface{})["backend"])
}

func TestCacheKey(t *testing.T) {
	ref := testRef(t)

	assert.Equal(t, "search|42|user|20", CacheKey("search", ref, "user", "20"))
	assert.NotEqual(t, CacheKey("search", ref, "a"), CacheKey("search", ref, "b"))
}
