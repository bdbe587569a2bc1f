package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"jukebox/internal/database"
	"jukebox/internal/decoder"
	"jukebox/internal/handlers"
	"jukebox/internal/htpasswd"
	"jukebox/internal/library"
	"jukebox/internal/logging"
	"jukebox/internal/memory"
	"jukebox/internal/metrics"
	"jukebox/internal/middleware"
	"jukebox/internal/startup"
	"jukebox/internal/streaming"
	"jukebox/internal/transcoder"
	"jukebox/internal/web"
	"jukebox/internal/workers"
)

const (
	shutdownTimeout = 30 * time.Second
	// drainInterval is how often pipelines are cancelled while the server
	// waits for in-flight requests.
	drainInterval = 100 * time.Millisecond
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	startTime := time.Now()

	limit := memory.ConfigureLimit()

	config, err := startup.LoadConfig(args)
	if errors.Is(err, startup.ErrHelp) {
		startup.Usage(os.Stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		startup.Usage(os.Stderr)
		return 1
	}
	startup.LogMemoryConfig(limit.Source, limit.GoMemLimit)

	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)

	decoders := decoder.NewSelector(nil)
	metrics.InitializeMetrics(decoders.Extensions())

	// Scan cache
	var db *database.Database
	if config.CacheEnabled {
		dbStart := time.Now()
		db, err = database.New(context.Background(), config.CacheDB)
		if err != nil {
			logging.Warn("Scan cache unavailable, continuing without it: %v", err)
			db = nil
		} else {
			defer db.Close()
			lastScan, _, err := db.GetLastScan(context.Background())
			if err != nil {
				logging.Debug("Could not read last scan time: %v", err)
			}
			startup.LogCacheInit(db.Path(), time.Since(dbStart), lastScan)
		}
	}

	// Transcoder
	trans := transcoder.New(transcoder.Options{
		EncoderPath: config.EncoderPath,
		Decoders:    decoders,
		Shaper:      streaming.NewShaper(),
	})
	startup.LogTranscoderInit(trans)

	// Authentication
	var verifier middleware.Verifier
	if config.BasicAuthFile != "" {
		users, err := htpasswd.Load(config.BasicAuthFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		verifier = users
		startup.LogAuthInit(config.BasicAuthFile, users.Len())
	} else {
		startup.LogAuthInit("", 0)
	}

	h := handlers.New(nil, trans, config.Bitrate)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              config.Addr(),
		Handler:           buildHandler(config, router, verifier),
		ReadHeaderTimeout: 15 * time.Second,
		// Streams are paced to the bitrate and may last as long as a track.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.BindAddress + ":" + config.MetricsPort)
	}

	collector := metrics.NewCollector(&libraryStats{h: h, trans: trans}, cachePath(db), time.Minute)
	collector.Start()

	monitor := memory.NewMonitor(memory.DefaultMonitorConfig())
	monitor.Start()

	errCh := make(chan error, 3)

	ctx, cancelLoad := context.WithCancel(context.Background())
	defer cancelLoad()
	go func() {
		errCh <- loadLibrary(ctx, config, decoders, db, monitor, h)
	}()

	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()
	if metricsSrv != nil {
		go func() {
			logging.Info("Metrics server listening on %s", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	startup.LogServerStarted(startup.ServerConfig{
		Addr:            srv.Addr,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	reason := ""
	for reason == "" {
		select {
		case sig := <-sigChan:
			reason = sig.String()
		case err := <-errCh:
			if err == nil {
				continue
			}
			logging.Error("%v", err)
			reason = "fatal error"
			exitCode = 1
		}
	}

	shutdown(reason, srv, metricsSrv, trans, collector, monitor, cancelLoad)
	return exitCode
}

// loadLibrary scans the configured backend and publishes the result.
func loadLibrary(ctx context.Context, config *startup.Config, decoders *decoder.Selector, db *database.Database, monitor *memory.Monitor, h *handlers.Handlers) error {
	source := config.Path
	if config.Backend == library.BackendRhythmbox {
		source = config.RhythmboxDB
	}
	startup.LogLibraryInit(config.Backend, source)

	backend, err := library.NewBackend(library.Options{
		Backend:     config.Backend,
		Path:        config.Path,
		RhythmboxDB: config.RhythmboxDB,
		Decoders:    decoders,
		Cache:       db,
		Workers:     workers.ForIO(16),
		Memory:      monitor,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	lib, err := library.Load(ctx, backend)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to load library: %w", err)
	}

	h.SetLibrary(lib)
	startup.LogLibraryLoaded(lib.Len(), len(lib.Playlists()), time.Since(start))
	return nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Catalog
	r.HandleFunc("/getlibrary", h.GetLibrary).Methods(http.MethodGet)
	r.HandleFunc("/getplaylists", h.GetPlaylists).Methods(http.MethodGet)
	r.HandleFunc("/getcontent", h.GetContent).Methods(http.MethodGet)
	r.HandleFunc("/getart", h.GetArt).Methods(http.MethodGet)

	// Web client
	client := web.Handler()
	r.Handle("/", client).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/static/").Handler(client).Methods(http.MethodGet, http.MethodHead)

	return r
}

// buildHandler wraps the router in the middleware chain. The logger is
// outermost so it sees the user set by BasicAuth and the final status.
func buildHandler(config *startup.Config, router http.Handler, verifier middleware.Verifier) http.Handler {
	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(router)

	if verifier != nil {
		handler = middleware.BasicAuth(verifier, middleware.DefaultBasicAuthConfig())(handler)
	}

	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	return middleware.Logger(loggingConfig)(handler)
}

func newMetricsServer(addr string) *http.Server {
	router := http.NewServeMux()
	router.Handle("/metrics", handlers.MetricsHandler())
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func cachePath(db *database.Database) string {
	if db == nil {
		return ""
	}
	return db.Path()
}

// libraryStats adapts the handlers and transcoder to metrics.StatsProvider.
type libraryStats struct {
	h     *handlers.Handlers
	trans *transcoder.Transcoder
}

func (s *libraryStats) GetStats() metrics.Stats {
	stats := metrics.Stats{ActiveStreams: s.trans.ActiveSessions()}
	if lib := s.h.Library(); lib != nil {
		stats.Tracks = lib.Len()
		stats.Playlists = len(lib.Playlists())
	}
	return stats
}

func shutdown(reason string, srv, metricsSrv *http.Server, trans *transcoder.Transcoder, collector *metrics.Collector, monitor *memory.Monitor, cancelLoad context.CancelFunc) {
	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping library scan")
	cancelLoad()
	startup.LogShutdownStepComplete("Library scan stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	monitor.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server and transcoding pipelines")
	if err := drainServer(ctx, srv, trans.Cleanup); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}

// drainServer shuts srv down and keeps cancelling transcoding pipelines until
// Shutdown returns. A stream accepted just before the listener closed
// starts a pipeline after the first cleanup, and would otherwise hold
// Shutdown until ctx expires.
func drainServer(ctx context.Context, srv *http.Server, cleanup func()) error {
	srv.SetKeepAlivesEnabled(false)

	done := make(chan error, 1)
	go func() { done <- srv.Shutdown(ctx) }()

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for {
		cleanup()
		select {
		case err := <-done:
			if err != nil {
				cleanup()
			}
			return err
		case <-ticker.C:
		}
	}
}
