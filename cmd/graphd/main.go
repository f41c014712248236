package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"projectgraph/infrastructure/config"
	"projectgraph/infrastructure/di"
	"projectgraph/interfaces/http/rest"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	engine := container.Engine

	graph, err := engine.LoadGraph(ctx, "")
	switch {
	case err != nil:
		logger.Fatal("Failed to load graph", zap.Error(err))
	case graph == nil:
		graph = engine.NewGraph("", "")
		logger.Info("No stored graph, created a new one", zap.String("graph_id", graph.ID))
	default:
		logger.Info("Loaded graph",
			zap.String("graph_id", graph.ID),
			zap.String("name", graph.Name),
			zap.Int("nodes", len(graph.Nodes)),
			zap.Int("relationships", len(graph.Relationships)))
	}
	engine.SetAutosave(cfg.Autosave.Enabled)

	if path := os.Getenv(config.ConfigFileEnv); path != "" {
		watcher, err := config.NewWatcher(path, logger)
		if err != nil {
			logger.Warn("Config hot reload disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(next *config.Config) {
				if err := engine.SetAutosaveInterval(next.Autosave.Interval); err != nil {
					logger.Warn("Ignoring autosave interval", zap.Error(err))
				}
				engine.SetAutosave(next.Autosave.Enabled)
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	router := rest.NewRouter(engine, container.Metrics, logger, cfg.HTTP.EnableCORS)
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.HTTP.Address),
			zap.String("environment", cfg.Environment),
			zap.String("backend", engine.BackendName()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if !engine.SaveGraph(shutdownCtx) {
		logger.Error("Final save failed")
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error("Container shutdown error", zap.Error(err))
	}

	_ = logger.Sync()
	log.Println("Server stopped")
}
