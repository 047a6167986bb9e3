package handlers

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/commands"
	"ckg-backend/application/commands/bus"
	"ckg-backend/application/ports"
	"ckg-backend/domain/core/entities"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/domain/events"
	pkgerrors "ckg-backend/pkg/errors"
)

// StoreDiagnosticsHandler writes analyzer findings to the project's backend
type StoreDiagnosticsHandler struct {
	resolver ports.BackendResolver
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewStoreDiagnosticsHandler creates a new diagnostics handler
func NewStoreDiagnosticsHandler(
	resolver ports.BackendResolver,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *StoreDiagnosticsHandler {
	return &StoreDiagnosticsHandler{
		resolver: resolver,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle implements bus.CommandHandler
func (h *StoreDiagnosticsHandler) Handle(ctx context.Context, cmd bus.Command) error {
	store, ok := cmd.(*commands.StoreDiagnosticsCommand)
	if !ok {
		return pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
	}

	projectKey := store.ProjectRef.String()

	target, err := h.resolver.IngestTarget(ctx, store.ProjectRef)
	if err != nil {
		return err
	}
	graph, _ := target.Stores()

	stored := 0
	fileNodes := make(map[string]valueobjects.NodeID)
	for _, input := range store.Diagnostics {
		severity, err := entities.ParseSeverity(input.Severity)
		if err != nil {
			return err
		}

		line := input.Line
		if line < 1 {
			line = 1
		}
		pos, err := valueobjects.NewPosition(line, input.Column)
		if err != nil {
			return err
		}

		diag, err := entities.NewDiagnostic(projectKey, input.Path, severity, input.Source, input.Code, input.Message, input.FixSuggestion, pos)
		if err != nil {
			return err
		}
		if nodeID := h.resolveFileNode(ctx, graph, projectKey, input.Path, fileNodes); !nodeID.IsZero() {
			diag.AttachNode(nodeID)
		}
		if err := graph.AddDiagnostic(ctx, diag); err != nil {
			return err
		}
		stored++
	}

	event := events.NewDiagnosticsStored(projectKey, target.Name(), stored, time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Error("failed to publish diagnostics event",
			zap.String("projectKey", projectKey),
			zap.Error(err),
		)
	}

	store.Result = &commands.StoreDiagnosticsResult{Backend: target.Name(), Stored: stored}
	return nil
}

// resolveFileNode links a finding to the graph node of its file. File node
// identity is deterministic, so the lookup is a direct GetNode.
func (h *StoreDiagnosticsHandler) resolveFileNode(
	ctx context.Context,
	graph ports.GraphStore,
	projectKey, filePath string,
	cache map[string]valueobjects.NodeID,
) valueobjects.NodeID {
	if id, ok := cache[filePath]; ok {
		return id
	}

	candidate := valueobjects.NewDeterministicNodeID(projectKey, string(entities.NodeTypeFile), filePath, path.Base(filePath))
	node, err := graph.GetNode(ctx, projectKey, candidate.String())
	if err != nil || node == nil {
		cache[filePath] = valueobjects.NodeID{}
		return valueobjects.NodeID{}
	}
	cache[filePath] = candidate
	return candidate
}
