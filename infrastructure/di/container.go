// Package di wires the application's dependencies by hand.
package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/application/services"
	domainconfig "projectgraph/domain/config"
	"projectgraph/infrastructure/config"
	"projectgraph/infrastructure/persistence/kvstore"
	"projectgraph/infrastructure/persistence/schema"
	"projectgraph/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Tracing      *observability.TracerProvider
	Adapter      ports.PersistenceAdapter
	Migrator     *schema.Registry
	Engine       *services.GraphEngine
}

// Option customizes InitializeContainer.
type Option func(*containerOptions)

type containerOptions struct {
	logger *zap.Logger
	store  kvstore.KeyValueStore
}

// WithLogger uses logger instead of building one from the config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) { o.logger = logger }
}

// WithKeyValueStore replaces the configured key-string store.
func WithKeyValueStore(store kvstore.KeyValueStore) Option {
	return func(o *containerOptions) { o.store = store }
}

// InitializeContainer builds every dependency from cfg.
func InitializeContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = ProvideLogger(cfg); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	domainCfg := domainconfig.LoadDomainConfig(cfg.Environment)
	domainCfg.BackupRetention = cfg.Storage.BackupRetention
	domainCfg.AutosaveInterval = cfg.Autosave.Interval
	if err := domainCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain config: %w", err)
	}

	tracing, err := ProvideTracing(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	metrics := ProvideMetrics(cfg)

	store := o.store
	if store == nil {
		if store, err = ProvideKeyValueStore(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}

	adapter, err := ProvidePersistenceAdapter(cfg, store, tracing, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence adapter: %w", err)
	}

	migrator := ProvideMigrator(domainCfg, logger)
	engine, err := ProvideGraphEngine(cfg, domainCfg, adapter, migrator, metrics, logger)
	if err != nil {
		adapter.Close()
		return nil, err
	}

	return &Container{
		Config:       cfg,
		DomainConfig: domainCfg,
		Logger:       logger,
		Metrics:      metrics,
		Tracing:      tracing,
		Adapter:      adapter,
		Migrator:     migrator,
		Engine:       engine,
	}, nil
}

// Shutdown stops autosave, releases the backend and flushes traces.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Engine.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Adapter.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
