package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/application/queries"
	"ckg-backend/application/queries/bus"
	"ckg-backend/application/services"
	"ckg-backend/domain/config"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"
)

// DependencyGraphHandler serves bounded dependency closure queries
type DependencyGraphHandler struct {
	executor *services.QueryExecutor
	cache    ports.Cache
	cacheTTL time.Duration
	cfg      *config.EngineConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDependencyGraphHandler creates a new dependency graph query handler
func NewDependencyGraphHandler(
	executor *services.QueryExecutor,
	cache ports.Cache,
	cacheTTL time.Duration,
	cfg *config.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DependencyGraphHandler {
	return &DependencyGraphHandler{
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle implements bus.QueryHandler. A nil result with a nil error means
// every live backend answered empty for the project.
func (h *DependencyGraphHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.DependencyGraphQuery)
	if !ok {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid query type: %T", query))
	}

	if q.MaxDepth > h.cfg.MaxDepthLimit {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("maxDepth %d exceeds limit %d", q.MaxDepth, h.cfg.MaxDepthLimit))
	}

	key := services.CacheKey("dependency_graph", q.ProjectRef,
		strings.Join(q.Roots, ","), fmt.Sprintf("%d", q.MaxDepth))
	if cached, ok := h.cache.Get(ctx, key); ok {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	result, backendName, noData, err := h.executor.Execute(ctx, q.ProjectRef, "dependency_graph",
		func(ctx context.Context, backend ports.Backend) (interface{}, bool, error) {
			edges, err := backend.DependencyGraph(ctx, q.ProjectRef, q.Roots, q.MaxDepth)
			if err != nil {
				return nil, false, err
			}
			if len(edges) == 0 {
				return nil, true, nil
			}
			return edges, false, nil
		})
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, nil
	}

	out := &queries.DependencyGraphResult{
		ProjectKey: q.ProjectRef.String(),
		Backend:    backendName,
		MaxDepth:   q.MaxDepth,
		Edges:      result.([]ports.DependencyEdge),
	}
	h.cache.Set(ctx, key, q.ProjectRef.String(), out, h.cacheTTL)
	return out, nil
}
