// Package app wires configuration into the analysis service and owns its
// lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/controllers/httpserver"
	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfgData.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	estimator, err := BuildEstimator(&cfgData.Yield)
	if err != nil {
		return fmt.Errorf("error building yield estimator: %w", err)
	}
	if estimator == nil {
		log.Warn("no yield backend configured; analyses will be geometry-only unless offline mode is requested")
	}

	analyzer, err := analysis.New(BuildAnalysisConfig(&cfgData.Analysis, &cfgData.Yield), estimator)
	if err != nil {
		return fmt.Errorf("error building analyzer: %w", err)
	}

	// Initialize the REST server controller
	controller, err := httpserver.NewController(ctx, &wg, a.configProvider, cfgData.Server, analyzer, a.logger)
	if err != nil {
		return fmt.Errorf("error creating REST server: %w", err)
	}
	if err := controller.StartController(); err != nil {
		return fmt.Errorf("error starting REST server: %w", err)
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
