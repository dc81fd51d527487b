// Package httpserver implements the REST API for running and retrieving
// roof analyses.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/internal/storage"
	"github.com/chrissnell/roofwatts/internal/yield/clearsky"
	"github.com/chrissnell/roofwatts/pkg/config"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RunStore is the slice of the storage client the REST handlers use.
type RunStore interface {
	SaveResult(res *analysis.Result) (*storage.AnalysisRun, error)
	GetRunByID(runID string) (*storage.AnalysisRun, error)
	ListRuns(limit int, project string) ([]storage.AnalysisRun, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	serverConfig   config.ServerData
	Server         http.Server
	Storage        RunStore
	StorageEnabled bool

	// analyzer serves ordinary requests; offlineAnalyzer serves requests
	// with offline=1 and runs the clear-sky estimator with the same
	// pipeline configuration.
	analyzer        *analysis.Analyzer
	offlineAnalyzer *analysis.Analyzer

	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, sc config.ServerData, analyzer *analysis.Analyzer, logger *zap.SugaredLogger) (*Controller, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("REST server requires an analyzer")
	}

	ctrl := &Controller{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		serverConfig:   sc,
		analyzer:       analyzer,
		logger:         logger,
	}

	// If a listen address was not provided, listen on all interfaces
	if ctrl.serverConfig.ListenAddr == "" {
		logger.Info("server.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		ctrl.serverConfig.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if ctrl.serverConfig.Port == 0 {
		logger.Info("server.port not provided; defaulting to 8080")
		ctrl.serverConfig.Port = 8080
	}

	cfgData, err := ctrl.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}

	// The clear-sky estimator needs no credentials or network, so the
	// offline analyzer is always available.
	cs := clearsky.New()
	if cfgData.Yield.AllSkyFraction > 0 {
		cs.AllSkyFraction = cfgData.Yield.AllSkyFraction
	}
	offlineAnalyzer, err := analysis.New(analyzer.Config(), cs)
	if err != nil {
		return nil, fmt.Errorf("error building offline analyzer: %v", err)
	}
	ctrl.offlineAnalyzer = offlineAnalyzer

	// If a TimescaleDB database was configured, set up a storage client so
	// that runs can be persisted and fetched back by the handlers
	if cfgData.Storage.TimescaleDB != nil && cfgData.Storage.TimescaleDB.ConnectionString != "" {
		client, err := storage.NewClient(cfgData.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("REST server could not connect to database: %v", err)
		}
		ctrl.Storage = client
		ctrl.StorageEnabled = true
	}

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	// Set up router
	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.serverConfig.ListenAddr, ctrl.serverConfig.Port)
	ctrl.Server.Handler = ctrl.wrapRouter(router)

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.serverConfig.Cert != "" && c.serverConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.serverConfig.Cert, c.serverConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze", c.handlers.AnalyzeSite).Methods("POST")
	api.HandleFunc("/runs", c.handlers.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", c.handlers.GetRun).Methods("GET")
	api.HandleFunc("/health", c.handlers.GetHealth).Methods("GET")

	return router
}

// wrapRouter layers the shared middleware over the router: CORS headers
// when enabled, and combined-format access logs routed through zap.
func (c *Controller) wrapRouter(router *mux.Router) http.Handler {
	var handler http.Handler = router

	if c.serverConfig.EnableCORS {
		handler = gorillahandlers.CORS(
			gorillahandlers.AllowedOrigins([]string{"*"}),
			gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
		)(handler)
	}

	// Logging wraps outermost so rejected requests still get a log line.
	accessLog := zap.NewStdLog(log.GetZapLogger()).Writer()
	handler = gorillahandlers.CombinedLoggingHandler(accessLog, handler)

	return handler
}
