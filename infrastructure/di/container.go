package di

import (
	"go.uber.org/zap"

	commandbus "ckg-backend/application/commands/bus"
	"ckg-backend/application/ports"
	querybus "ckg-backend/application/queries/bus"
	"ckg-backend/application/services"
	domainconfig "ckg-backend/domain/config"
	"ckg-backend/infrastructure/config"
	"ckg-backend/infrastructure/embedding"
	"ckg-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	EngineConfig *domainconfig.EngineConfig
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Cache        ports.Cache
	EventBus     ports.EventBus
	Locker       ports.ProjectLocker
	Worker       *embedding.Worker
	Resolver     ports.BackendResolver
	Executor     *services.QueryExecutor
	CommandBus   *commandbus.CommandBus
	QueryBus     *querybus.QueryBus
}
