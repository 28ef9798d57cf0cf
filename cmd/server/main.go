package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-grab-go/api"
	"github.com/yourusername/yt-grab-go/api/handlers"
	"github.com/yourusername/yt-grab-go/internal/app"
	"github.com/yourusername/yt-grab-go/internal/domain"
	"github.com/yourusername/yt-grab-go/internal/infrastructure"
	"github.com/yourusername/yt-grab-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: ./configs, ~/.yt-grab, /etc/yt-grab)")

func main() {
	flag.Parse()

	if err := runServer(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "yt-grab-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(path string) error {
	config, err := app.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := createDirectories(config); err != nil {
		return err
	}

	general, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer multiLog.Close()

	logAdapter := logger.NewLoggerAdapter(general, multiLog)
	defer logAdapter.Sync()
	log := logAdapter.General()

	log.Info("Starting yt-grab server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("downloads_dir", config.Download.DownloadsDir()),
		zap.String("history_backend", config.History.Backend))

	history, closeHistory, err := openHistory(config)
	if err != nil {
		return err
	}
	defer closeHistory()

	extractor := infrastructure.NewYTDLPExtractor(&config.Extractor, config.Download.DownloadsDir(), config.Download.LogsDir())
	if err := extractor.Available(); err != nil {
		log.Warn("yt-dlp not found; downloads will fail until it is installed", zap.Error(err))
	}

	var searcher domain.Searcher
	if config.Search.APIKey != "" {
		searcher = infrastructure.NewYouTubeSearcher(&config.Search)
	} else {
		log.Info("No YouTube API key configured, search disabled")
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	hub := app.NewProgressHub()
	downloadMgr := app.NewDownloadManager(extractor, searcher, history, notifier, hub, config, logAdapter)

	router := api.SetupRouter(api.RouterDeps{
		DownloadMgr: downloadMgr,
		Hub:         hub,
		Extractor:   extractor,
		Opener:      infrastructure.NewFolderOpener(),
		LogAdapter:  logAdapter,
		LogsDir:     config.Download.LogsDir(),
		CORSOrigins: config.Server.CORSOrigins,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	// In-flight downloads get a grace period before connections are dropped
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

// openHistory builds the configured history backend and its cleanup func
func openHistory(config *domain.Config) (domain.HistoryStore, func(), error) {
	switch config.History.Backend {
	case domain.HistoryBackendSQLite:
		store, err := infrastructure.NewSQLiteHistoryStore(config.History.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history database: %w", err)
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := infrastructure.NewJSONHistoryStore(config.History.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history file: %w", err)
		}
		return store, func() {}, nil
	}
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.DownloadsDir(),
		config.Download.LogsDir(),
		config.Download.ConfigDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
