package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchher/monitoring-server/internal/archive"
	"github.com/watchher/monitoring-server/internal/export"
	"github.com/watchher/monitoring-server/internal/heatmap"
	"github.com/watchher/monitoring-server/internal/journal"
	"github.com/watchher/monitoring-server/internal/logger"
	"github.com/watchher/monitoring-server/internal/metrics"
	"github.com/watchher/monitoring-server/internal/server"
	"github.com/watchher/monitoring-server/internal/session"
	"github.com/watchher/monitoring-server/internal/source"
	"github.com/watchher/monitoring-server/internal/vision"
)

var (
	// Command-line flags
	httpAddr      = flag.String("http", ":8090", "HTTP server address")
	metricsAddr   = flag.String("metrics", ":9090", "Metrics server address")
	pprofAddr     = flag.String("pprof", ":6060", "pprof server address")
	perceptionURL = flag.String("perception", "http://localhost:8000", "Perception service base URL")
	exportDir     = flag.String("export-dir", "./exports", "Export output directory")
	journalDir    = flag.String("journal-dir", "./journals", "Risk event journal directory")
	archivePath   = flag.String("archive-db", "./watchher.db", "Session archive database path")
	cellSize      = flag.Int("cell-size", 50, "Heatmap grid cell size in pixels")
	historyCap    = flag.Int("history", 1000, "Risk event history capacity")
	targetFPS     = flag.Int("fps", 30, "Target frame processing rate")
	autoStart     = flag.String("source", "", "Start monitoring immediately: camera URL or file path")
	logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor      = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "WatchHer monitoring server starting...")
	logger.Info("Main", "Log level: %s", level)

	m := metrics.New()

	analyzer := vision.NewHTTPClient(*perceptionURL)
	if analyzer.Ready() {
		logger.Info("Main", "Perception service ready at %s", *perceptionURL)
	} else {
		logger.Warn("Main", "Perception service not reachable at %s, sessions will be rejected until it is", *perceptionURL)
	}

	jnl := journal.NewJournal(*journalDir)

	cfg := session.DefaultConfig()
	cfg.CellSize = *cellSize
	cfg.HistoryCapacity = *historyCap
	cfg.TargetFPS = *targetFPS
	manager := session.NewManager(cfg, analyzer, m, jnl)

	exporter, err := export.NewExporter(*exportDir)
	if err != nil {
		log.Fatalf("Failed to create export directory: %v", err)
	}

	store, err := archive.Open(*archivePath)
	if err != nil {
		log.Fatalf("Failed to open archive database: %v", err)
	}
	defer store.Close()

	manager.SetStopHook(func(r session.Record) {
		if err := store.RecordSession(r); err != nil {
			logger.Warn("Main", "archive session record: %v", err)
		}
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = *httpAddr
	srvCfg.ExportDir = *exportDir
	srvCfg.Viewport = heatmap.DefaultViewport
	srv := server.NewServer(srvCfg, manager, exporter, store, m)
	srv.Start()

	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: srv.Handler(),
	}

	// Start pprof server
	go func() {
		logger.Info("Main", "Starting pprof server on %s", *pprofAddr)
		if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
			logger.Warn("Main", "pprof server error: %v", err)
		}
	}()

	// Start metrics server
	go func() {
		logger.Info("Main", "Starting metrics server on %s", *metricsAddr)
		if err := m.StartServer(*metricsAddr); err != nil {
			logger.Warn("Main", "Metrics server error: %v", err)
		}
	}()

	// Start HTTP server
	go func() {
		logger.Info("Main", "Starting HTTP server on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Main", "HTTP server error: %v", err)
		}
	}()

	if *autoStart != "" {
		if err := startInitialSession(manager, *autoStart); err != nil {
			logger.Error("Main", "auto-start session: %v", err)
		}
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Main", "Shutting down...")

	srv.Stop()
	if _, err := manager.Stop(); err != nil && err != session.ErrNoSession {
		logger.Warn("Main", "stop session: %v", err)
	}
	if err := jnl.Close(); err != nil {
		logger.Warn("Main", "close journal: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Main", "HTTP shutdown: %v", err)
	}

	logger.Info("Main", "Server stopped")
}

// startInitialSession opens the configured source and starts monitoring.
// URLs become camera sources, everything else a looping file source.
func startInitialSession(manager *session.Manager, spec string) error {
	var (
		src source.Source
		err error
	)
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		src = source.NewCameraSource(spec)
	} else {
		src, err = source.NewFileSource(spec)
		if err != nil {
			return err
		}
	}

	sess, err := manager.Start(src)
	if err != nil {
		_ = src.Close()
		return err
	}
	logger.Info("Main", "monitoring session %s started on %s", sess.ID, spec)
	return nil
}
