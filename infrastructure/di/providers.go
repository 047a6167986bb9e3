package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"ckg-backend/application/commands"
	commandbus "ckg-backend/application/commands/bus"
	commands_handlers "ckg-backend/application/commands/handlers"
	"ckg-backend/application/ports"
	"ckg-backend/application/queries"
	querybus "ckg-backend/application/queries/bus"
	queries_handlers "ckg-backend/application/queries/handlers"
	domainconfig "ckg-backend/domain/config"
	"ckg-backend/domain/core/valueobjects"
	"ckg-backend/domain/events"
	"ckg-backend/infrastructure/cache"
	"ckg-backend/infrastructure/config"
	dynamostore "ckg-backend/infrastructure/persistence/dynamodb"
	memorystore "ckg-backend/infrastructure/persistence/memory"
	sqlitestore "ckg-backend/infrastructure/persistence/sqlite"
	"ckg-backend/infrastructure/embedding"
	"ckg-backend/infrastructure/locking"
	"ckg-backend/infrastructure/messaging"
	"ckg-backend/infrastructure/resolver"
	"ckg-backend/application/services"
	"ckg-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideEngineConfig builds the query engine tunables
func ProvideEngineConfig(cfg *config.Config) (*domainconfig.EngineConfig, error) {
	return cfg.EngineConfig()
}

// ProvideMetrics creates the metrics registry
func ProvideMetrics(cfg *config.Config) *observability.Metrics {
	return observability.NewMetrics("ckg")
}

// ProvideCache creates the query result cache
func ProvideCache(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) ports.Cache {
	return cache.NewQueryCache(cfg.CacheTTL, metrics, logger)
}

// ProvideEventBus creates the in-process event bus
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return messaging.NewMemoryEventBus(logger)
}

// ProvideProjectLocker creates the per-project ingestion lock
func ProvideProjectLocker(logger *zap.Logger) ports.ProjectLocker {
	return locking.NewProjectLocker(logger)
}

// ProvideEmbeddingProvider picks the embedding backend: OpenAI when an API
// key is configured, the deterministic local provider otherwise
func ProvideEmbeddingProvider(cfg *config.Config, logger *zap.Logger) embedding.Provider {
	if cfg.OpenAIAPIKey != "" {
		logger.Info("using openai embedding provider", zap.String("model", cfg.EmbeddingModel))
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	}
	logger.Info("using local embedding provider")
	return embedding.NewLocalProvider()
}

// ProvideEmbeddingWorker creates the background embedding worker
func ProvideEmbeddingWorker(provider embedding.Provider, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) *embedding.Worker {
	return embedding.NewWorker(provider, cfg.EmbeddingQueueSize, metrics, logger)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if !cfg.EnableDynamoDB {
		return aws.Config{}, nil
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideMemoryStore creates the in-memory fallback store
func ProvideMemoryStore(logger *zap.Logger) *memorystore.Store {
	return memorystore.NewStore(logger)
}

// ProvideBackendResolver registers the configured storage backends in
// fallback order: DynamoDB (UUID keys), SQLite (integer keys), then the
// in-memory catch-all.
func ProvideBackendResolver(
	cfg *config.Config,
	engineCfg *domainconfig.EngineConfig,
	dynamoClient *awsdynamodb.Client,
	memStore *memorystore.Store,
	worker *embedding.Worker,
	logger *zap.Logger,
) (ports.BackendResolver, func(), error) {
	r := resolver.NewBackendResolver(logger)
	cleanup := func() {}

	if cfg.EnableDynamoDB {
		store := dynamostore.NewStore(dynamoClient, cfg.DynamoDBTable, cfg.NameIndexName, logger)
		backend := services.NewStoreBackend("dynamodb", []valueobjects.RefKind{valueobjects.RefKindUUID},
			store, store, worker, engineCfg, logger)
		r.Register(backend, valueobjects.RefKindUUID)
	}

	if cfg.EnableSQLite {
		store, err := sqlitestore.NewStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		cleanup = func() {
			store.Close()
		}
		backend := services.NewStoreBackend("sqlite", []valueobjects.RefKind{valueobjects.RefKindInteger},
			store, store, worker, engineCfg, logger)
		r.Register(backend, valueobjects.RefKindInteger)
	}

	memBackend := services.NewStoreBackend("memory", nil, memStore, memStore, worker, engineCfg, logger)
	r.Register(memBackend)

	return r, cleanup, nil
}

// ProvideQueryExecutor creates the fallback query executor
func ProvideQueryExecutor(
	r ports.BackendResolver,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.QueryExecutor {
	return services.NewQueryExecutor(r, cfg.BackendTimeout, metrics, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	r ports.BackendResolver,
	locker ports.ProjectLocker,
	worker *embedding.Worker,
	eventBus ports.EventBus,
	engineCfg *domainconfig.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*commandbus.CommandBus, error) {
	commandBus := commandbus.NewCommandBus()

	ingestHandler := commands_handlers.NewIngestScanHandler(r, locker, worker, eventBus, engineCfg, metrics, logger)
	if err := commandBus.Register(&commands.IngestScanCommand{}, ingestHandler); err != nil {
		return nil, err
	}

	deleteHandler := commands_handlers.NewDeleteProjectHandler(r, locker, eventBus, logger)
	if err := commandBus.Register(&commands.DeleteProjectCommand{}, deleteHandler); err != nil {
		return nil, err
	}

	diagnosticsHandler := commands_handlers.NewStoreDiagnosticsHandler(r, eventBus, logger)
	if err := commandBus.Register(&commands.StoreDiagnosticsCommand{}, diagnosticsHandler); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	executor *services.QueryExecutor,
	queryCache ports.Cache,
	cfg *config.Config,
	engineCfg *domainconfig.EngineConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	middleware := querybus.NewMetricsMiddleware(metrics)

	register := func(q querybus.Query, h querybus.QueryHandler) error {
		return queryBus.Register(q, middleware.Wrap(h))
	}

	if err := register(queries.DependencyGraphQuery{},
		queries_handlers.NewDependencyGraphHandler(executor, queryCache, cfg.CacheTTL, engineCfg, metrics, logger)); err != nil {
		return nil, err
	}
	if err := register(queries.SearchCodeQuery{},
		queries_handlers.NewSearchCodeHandler(executor, queryCache, cfg.CacheTTL, engineCfg, metrics, logger)); err != nil {
		return nil, err
	}
	if err := register(queries.FindDefinitionsQuery{},
		queries_handlers.NewFindDefinitionsHandler(executor, queryCache, cfg.CacheTTL, metrics, logger)); err != nil {
		return nil, err
	}
	if err := register(queries.FindReferencesQuery{},
		queries_handlers.NewFindReferencesHandler(executor, queryCache, cfg.CacheTTL, engineCfg, metrics, logger)); err != nil {
		return nil, err
	}
	if err := register(queries.ProjectStatsQuery{},
		queries_handlers.NewProjectStatsHandler(executor, queryCache, cfg.CacheTTL, metrics, logger)); err != nil {
		return nil, err
	}
	if err := register(queries.ListDiagnosticsQuery{},
		queries_handlers.NewListDiagnosticsHandler(executor, queryCache, cfg.CacheTTL, engineCfg, metrics, logger)); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// RegisterCacheInvalidation subscribes the query cache to ingestion
// events. The event bus is synchronous, so invalidation completes before
// the publishing command returns.
func RegisterCacheInvalidation(eventBus ports.EventBus, queryCache ports.Cache, logger *zap.Logger) {
	invalidate := func(projectKey string) {
		removed := queryCache.InvalidateProject(context.Background(), projectKey)
		logger.Debug("cache invalidated",
			zap.String("project_key", projectKey),
			zap.Int("entries", removed),
		)
	}

	eventBus.Subscribe(events.EventTypeProjectIngested, func(ctx context.Context, event events.DomainEvent) error {
		if e, ok := event.(events.ProjectIngested); ok {
			invalidate(e.ProjectKey)
		}
		return nil
	})
	eventBus.Subscribe(events.EventTypeProjectDeleted, func(ctx context.Context, event events.DomainEvent) error {
		if e, ok := event.(events.ProjectDeleted); ok {
			invalidate(e.ProjectKey)
		}
		return nil
	})
	eventBus.Subscribe(events.EventTypeDiagnosticsStored, func(ctx context.Context, event events.DomainEvent) error {
		if e, ok := event.(events.DiagnosticsStored); ok {
			invalidate(e.ProjectKey)
		}
		return nil
	})
}
