package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/application/queries"
	"ckg-backend/application/queries/bus"
	"ckg-backend/application/services"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/observability"
)

// ProjectStatsHandler serves project summary queries
type ProjectStatsHandler struct {
	executor *services.QueryExecutor
	cache    ports.Cache
	cacheTTL time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewProjectStatsHandler creates a new stats query handler
func NewProjectStatsHandler(
	executor *services.QueryExecutor,
	cache ports.Cache,
	cacheTTL time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ProjectStatsHandler {
	return &ProjectStatsHandler{
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle implements bus.QueryHandler
func (h *ProjectStatsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ProjectStatsQuery)
	if !ok {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid query type: %T", query))
	}

	key := services.CacheKey("stats", q.ProjectRef)
	if cached, ok := h.cache.Get(ctx, key); ok {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	result, backendName, noData, err := h.executor.Execute(ctx, q.ProjectRef, "project_stats",
		func(ctx context.Context, backend ports.Backend) (interface{}, bool, error) {
			stats, err := backend.Stats(ctx, q.ProjectRef)
			if err != nil {
				return nil, false, err
			}
			if stats == nil || (stats.NodeCount == 0 && stats.ChunkCount == 0 && stats.DiagnosticCount == 0) {
				return nil, true, nil
			}
			return stats, false, nil
		})
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, nil
	}

	out := &queries.ProjectStatsResult{
		Backend: backendName,
		Stats:   result.(*ports.ProjectStats),
	}
	h.cache.Set(ctx, key, q.ProjectRef.String(), out, h.cacheTTL)
	return out, nil
}

// ListDiagnosticsHandler serves stored analyzer finding queries
type ListDiagnosticsHandler struct {
	executor *services.QueryExecutor
	cache    ports.Cache
	cacheTTL time.Duration
	cfg      *config.EngineConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewListDiagnosticsHandler creates a new diagnostics query handler
func NewListDiagnosticsHandler(
	executor *services.QueryExecutor,
	cache ports.Cache,
	cacheTTL time.Duration,
	cfg *config.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ListDiagnosticsHandler {
	return &ListDiagnosticsHandler{
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle implements bus.QueryHandler
func (h *ListDiagnosticsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListDiagnosticsQuery)
	if !ok {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid query type: %T", query))
	}

	var severity entities.Severity
	if q.Severity != "" {
		severity, _ = entities.ParseSeverity(q.Severity)
	}

	limit := q.Limit
	if limit <= 0 || limit > h.cfg.MaxReferenceResults {
		limit = h.cfg.MaxReferenceResults
	}

	key := services.CacheKey("diagnostics", q.ProjectRef, q.Path, q.Severity, fmt.Sprintf("%d", limit))
	if cached, ok := h.cache.Get(ctx, key); ok {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	result, backendName, noData, err := h.executor.Execute(ctx, q.ProjectRef, "list_diagnostics",
		func(ctx context.Context, backend ports.Backend) (interface{}, bool, error) {
			diags, err := backend.ListDiagnostics(ctx, q.ProjectRef, q.Path, severity, limit)
			if err != nil {
				return nil, false, err
			}
			if len(diags) == 0 {
				return nil, true, nil
			}
			return diags, false, nil
		})
	if err != nil {
		return nil, err
	}
	if noData {
		return nil, nil
	}

	diags := result.([]*entities.Diagnostic)
	items := make([]queries.DiagnosticItem, 0, len(diags))
	for _, d := range diags {
		item := queries.DiagnosticItem{
			Path:          d.Path(),
			Severity:      d.Severity(),
			Source:        d.Source(),
			Code:          d.Code(),
			Message:       d.Message(),
			FixSuggestion: d.FixSuggestion(),
			Line:          d.Position().Line,
			Column:        d.Position().Column,
		}
		if !d.NodeID().IsZero() {
			item.NodeID = d.NodeID().String()
		}
		items = append(items, item)
	}

	out := &queries.ListDiagnosticsResult{
		ProjectKey:  q.ProjectRef.String(),
		Backend:     backendName,
		Diagnostics: items,
	}
	h.cache.Set(ctx, key, q.ProjectRef.String(), out, h.cacheTTL)
	return out, nil
}
