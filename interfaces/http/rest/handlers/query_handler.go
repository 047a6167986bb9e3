package handlers

import (
	"net/http"

	"ckg-backend/application/queries"
	querybus "ckg-backend/application/queries/bus"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QueryHandler handles project-scoped read requests. A nil result with a
// nil error means every live backend answered and none holds the project,
// which renders as a no-data response rather than an error.
type QueryHandler struct {
	queryBus  *querybus.QueryBus
	engineCfg *config.EngineConfig
	logger    *zap.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queryBus *querybus.QueryBus, engineCfg *config.EngineConfig, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		queryBus:  queryBus,
		engineCfg: engineCfg,
		logger:    logger,
	}
}

// DependencyGraph handles GET /projects/{ref}/dependencies
func (h *QueryHandler) DependencyGraph(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	depth, ok := common.ExtractDepthParam(r, h.engineCfg.DefaultMaxDepth)
	if !ok {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "max_depth must be an integer")
		return
	}

	query := queries.DependencyGraphQuery{
		ProjectRef: ref,
		Roots:      common.ExtractListParam(r, "roots"),
		MaxDepth:   depth,
	}

	h.ask(w, r, query)
}

// SearchCode handles GET /projects/{ref}/search
func (h *QueryHandler) SearchCode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	query := queries.SearchCodeQuery{
		ProjectRef: ref,
		Query:      r.URL.Query().Get("q"),
		ChunkTypes: common.ExtractListParam(r, "chunk_types"),
		Language:   r.URL.Query().Get("language"),
		Limit:      common.ExtractLimitParam(r, h.engineCfg.DefaultSearchLimit, h.engineCfg.MaxSearchLimit),
	}

	h.ask(w, r, query)
}

// FindDefinitions handles GET /projects/{ref}/definitions
func (h *QueryHandler) FindDefinitions(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	query := queries.FindDefinitionsQuery{
		ProjectRef: ref,
		Name:       r.URL.Query().Get("name"),
		Types:      common.ExtractListParam(r, "types"),
		Language:   r.URL.Query().Get("language"),
	}

	h.ask(w, r, query)
}

// FindReferences handles GET /projects/{ref}/references
func (h *QueryHandler) FindReferences(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	query := queries.FindReferencesQuery{
		ProjectRef: ref,
		Name:       r.URL.Query().Get("name"),
		Limit:      common.ExtractLimitParam(r, h.engineCfg.MaxReferenceResults, h.engineCfg.MaxReferenceResults),
	}

	h.ask(w, r, query)
}

// ListDiagnostics handles GET /projects/{ref}/diagnostics
func (h *QueryHandler) ListDiagnostics(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	query := queries.ListDiagnosticsQuery{
		ProjectRef: ref,
		Path:       r.URL.Query().Get("path"),
		Severity:   r.URL.Query().Get("severity"),
		Limit:      common.ExtractLimitParam(r, 0, 10000),
	}

	h.ask(w, r, query)
}

// ProjectStats handles GET /projects/{ref}/stats
func (h *QueryHandler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	h.ask(w, r, queries.ProjectStatsQuery{ProjectRef: ref})
}

func (h *QueryHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if result == nil {
		common.RespondNoData(w)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

func (h *QueryHandler) projectRef(w http.ResponseWriter, r *http.Request) (valueobjects.ProjectRef, bool) {
	ref, err := valueobjects.ParseProjectRef(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, h.logger, err)
		return valueobjects.ProjectRef{}, false
	}
	return ref, true
}
