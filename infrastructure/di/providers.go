package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/application/services"
	domainconfig "projectgraph/domain/config"
	"projectgraph/infrastructure/config"
	"projectgraph/infrastructure/persistence"
	"projectgraph/infrastructure/persistence/codec"
	"projectgraph/infrastructure/persistence/kvstore"
	"projectgraph/infrastructure/persistence/schema"
	"projectgraph/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, cfg.LogLevel)
}

// ProvideMetrics returns nil when metrics are disabled; collectors are nil-safe.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideTracing initializes the OTLP tracer provider.
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "projectgraph",
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Storage.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideKeyValueStore builds the store behind the key-string backend.
func ProvideKeyValueStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (kvstore.KeyValueStore, error) {
	if cfg.Storage.KVStore != "dynamodb" {
		return kvstore.NewMemoryStore(), nil
	}
	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return kvstore.NewDynamoDBStore(
		ProvideDynamoDBClient(awsCfg),
		cfg.Storage.DynamoDBTable,
		kvstore.DefaultBreakerConfig(),
		logger,
	), nil
}

// ProvidePersistenceAdapter selects the backend and wraps it with tracing,
// metrics and debug logging.
func ProvidePersistenceAdapter(
	cfg *config.Config,
	store kvstore.KeyValueStore,
	tracing *observability.TracerProvider,
	metrics *observability.Collector,
	logger *zap.Logger,
) (ports.PersistenceAdapter, error) {
	backend, err := persistence.ParseBackendType(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}
	caps := persistence.DetectCapabilities(persistence.Options{
		Dir:        cfg.Storage.DataDir,
		SQLitePath: cfg.Storage.SQLitePath,
	})
	caps.Filesystem = caps.Filesystem && !cfg.Storage.DisableFilesystem
	caps.ObjectStore = caps.ObjectStore && !cfg.Storage.DisableObjectStore

	adapter, err := persistence.NewAdapter(persistence.Options{
		Backend:    backend,
		Dir:        cfg.Storage.DataDir,
		SQLitePath: cfg.Storage.SQLitePath,
		KVKey:      cfg.Storage.Key,
		KVStore:    store,
		Backups: codec.BackupPolicy{
			Enabled:   cfg.Storage.BackupsEnabled,
			Retention: cfg.Storage.BackupRetention,
		},
		Logger:       logger,
		Capabilities: &caps,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Persistence backend selected", zap.String("backend", adapter.Name()))
	return persistence.Instrument(adapter, tracing.Tracer(), metrics, logger), nil
}

// ProvideMigrator creates the registry holding the built-in migrations.
func ProvideMigrator(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *schema.Registry {
	return schema.NewDefaultRegistry(domainCfg.MaxMigrationHops, logger)
}

// ProvideGraphEngine creates the engine with autosave settings from cfg.
func ProvideGraphEngine(
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	adapter ports.PersistenceAdapter,
	migrator ports.GraphMigrator,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*services.GraphEngine, error) {
	engine := services.NewGraphEngine(adapter,
		services.WithDomainConfig(domainCfg),
		services.WithMigrator(migrator),
		services.WithMetrics(metrics),
		services.WithLogger(logger),
	)
	if err := engine.SetAutosaveInterval(cfg.Autosave.Interval); err != nil {
		return nil, err
	}
	return engine, nil
}
