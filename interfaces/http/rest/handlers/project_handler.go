package handlers

import (
	"net/http"

	"ckg-backend/application/commands"
	"ckg-backend/application/commands/bus"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxScanBodyBytes = 32 << 20 // scan records carry full chunk text

// ProjectHandler handles project-scoped write requests
type ProjectHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(commandBus *bus.CommandBus, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// IngestScanRequest is the request body for ingesting a scan record
type IngestScanRequest struct {
	CommitHash string              `json:"commit_hash,omitempty"`
	Files      []commands.ScanFile `json:"files"`
}

// StoreDiagnosticsRequest is the request body for storing analyzer findings
type StoreDiagnosticsRequest struct {
	Diagnostics []commands.DiagnosticInput `json:"diagnostics"`
}

// IngestScan handles POST /projects/{ref}/scan
func (h *ProjectHandler) IngestScan(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	var req IngestScanRequest
	if err := common.ParseJSONBody(r, &req, maxScanBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	cmd := &commands.IngestScanCommand{
		ProjectRef: ref,
		CommitHash: req.CommitHash,
		Files:      req.Files,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, cmd.Result)
}

// DeleteProject handles DELETE /projects/{ref}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	cmd := &commands.DeleteProjectCommand{ProjectRef: ref}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, cmd.Result)
}

// StoreDiagnostics handles POST /projects/{ref}/diagnostics
func (h *ProjectHandler) StoreDiagnostics(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.projectRef(w, r)
	if !ok {
		return
	}

	var req StoreDiagnosticsRequest
	if err := common.ParseJSONBody(r, &req, maxScanBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	cmd := &commands.StoreDiagnosticsCommand{
		ProjectRef:  ref,
		Diagnostics: req.Diagnostics,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, cmd.Result)
}

func (h *ProjectHandler) projectRef(w http.ResponseWriter, r *http.Request) (valueobjects.ProjectRef, bool) {
	ref, err := valueobjects.ParseProjectRef(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, h.logger, err)
		return valueobjects.ProjectRef{}, false
	}
	return ref, true
}
