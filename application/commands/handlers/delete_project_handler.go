package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ckg-backend/application/commands"
	"ckg-backend/application/commands/bus"
	"ckg-backend/application/ports"
	"ckg-backend/domain/events"
	pkgerrors "ckg-backend/pkg/errors"
)

// DeleteProjectHandler removes a project's data from every backend that
// accepts its reference scheme. Deletion cascades through nodes, edges,
// chunks, embeddings, references, and diagnostics.
type DeleteProjectHandler struct {
	resolver ports.BackendResolver
	locker   ports.ProjectLocker
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewDeleteProjectHandler creates a new delete handler
func NewDeleteProjectHandler(
	resolver ports.BackendResolver,
	locker ports.ProjectLocker,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *DeleteProjectHandler {
	return &DeleteProjectHandler{
		resolver: resolver,
		locker:   locker,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle implements bus.CommandHandler
func (h *DeleteProjectHandler) Handle(ctx context.Context, cmd bus.Command) error {
	del, ok := cmd.(*commands.DeleteProjectCommand)
	if !ok {
		return pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
	}

	projectKey := del.ProjectRef.String()

	release, err := h.locker.Acquire(ctx, projectKey)
	if err != nil {
		return err
	}
	defer release()

	backends := h.resolver.AcceptingBackends(del.ProjectRef)
	if len(backends) == 0 {
		return pkgerrors.NewNotFoundError("project")
	}

	deleted := []string{}
	var failures []pkgerrors.BackendFailure
	for _, b := range backends {
		graph, _ := b.Stores()
		if err := graph.DeleteProject(ctx, projectKey); err != nil {
			h.logger.Warn("project deletion failed on backend",
				zap.String("projectKey", projectKey),
				zap.String("backend", b.Name()),
				zap.Error(err),
			)
			failures = append(failures, pkgerrors.BackendFailure{Backend: b.Name(), Reason: err.Error()})
			continue
		}
		deleted = append(deleted, b.Name())
	}

	if len(deleted) == 0 {
		return pkgerrors.NewAllBackendsFailedError("delete_project", failures)
	}

	event := events.NewProjectDeleted(projectKey, deleted, time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Error("failed to publish deletion event",
			zap.String("projectKey", projectKey),
			zap.Error(err),
		)
	}

	h.logger.Info("project deleted",
		zap.String("projectKey", projectKey),
		zap.Strings("backends", deleted),
	)

	del.Result = &commands.DeleteProjectResult{Backends: deleted}
	return nil
}
