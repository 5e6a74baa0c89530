package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/handlers"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/media"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/memory"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/middleware"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/startup"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/storage"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/upload"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()
	defer logging.Sync()

	// .env must be in the environment before the first log line or the
	// memory limit read
	if err := startup.LoadEnv(".env"); err != nil {
		logging.Warn("%v", err)
	}
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	// Initialize database
	dbStart := time.Now()
	db, err := database.Open(context.Background(), config.DatabasePath, database.Options{
		SeedPassword: config.SeedPassword,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	// Image processing
	var vipsErr error
	if config.VipsEnabled {
		vipsErr = media.InitVips()
	}
	startup.LogMediaInit(config.VipsEnabled, vipsErr)

	// Object storage
	store, err := storage.New(config.Storage)
	if err != nil {
		startup.LogFatal("Failed to initialize object storage: %v", err)
	}
	startup.LogStorageInit(config.Storage, store.Enabled())

	uploader, err := upload.New(db, store, media.NewThumbnailGenerator(config.ThumbnailSize), upload.Config{
		Dir:         config.UploadDir,
		MaxFiles:    config.MaxUploadFiles,
		MaxFileSize: config.MaxUploadBytes(),
	})
	if err != nil {
		startup.LogFatal("Failed to initialize upload service: %v", err)
	}

	h := handlers.New(db, store, uploader, config)
	router := h.Router()
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           buildHandler(router, config),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(db, collectorInterval)
		collector.Start()

		metricsSrv = newMetricsServer(config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, collector, db)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// buildHandler wraps the router in the middleware chain, outermost first:
// CORS, request logging, metrics, compression.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}
	handler = middleware.Logger(loggingConfig)(handler)
	return middleware.CORS(middleware.DefaultCORSConfig())(handler)
}

// newMetricsServer serves /metrics and a health check on a separate port.
func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.MetricsHandler())
	mux.HandleFunc("/health", h.HealthCheck)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if media.IsVipsAvailable() {
		startup.LogShutdownStep("Shutting down libvips")
		media.ShutdownVips()
		startup.LogShutdownStepComplete("libvips stopped")
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
