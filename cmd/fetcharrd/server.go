package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	v1 "github.com/fetcharr/fetcharr/internal/api/v1"
	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/metrics"
	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/queue"
	"github.com/fetcharr/fetcharr/internal/transfer"
)

// drainTimeout bounds how long shutdown waits for in-flight downloads.
const drainTimeout = 30 * time.Second

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Ensure database and download directories exist
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Downloads.Root, 0755); err != nil {
		return fmt.Errorf("create download root: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	history, err := queue.NewHistory(db)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	// Managed yt-dlp binary; downloads one if none is on PATH.
	installCtx, installCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	err = transfer.EnsureInstalled(installCtx)
	installCancel()
	if err != nil {
		return fmt.Errorf("transfer engine: %w", err)
	}

	// === Components ===
	registry := provider.NewRegistry(cfg.Providers.Order)
	engine := transfer.NewEngine()
	promRegistry := prometheus.NewRegistry()

	manager := queue.NewManager(queue.Deps{
		Resolver:  engine,
		Providers: registry,
		Transfer:  engine,
		Grouper:   media.NewURLGrouper(),
		History:   history,
		Metrics:   metrics.New(promRegistry),
		Logger:    logger.With("component", "queue"),
	}, queue.Options{
		DestRoot:        cfg.Downloads.Root,
		MaxConcurrent:   cfg.Downloads.MaxConcurrent,
		HistorySize:     cfg.Downloads.HistorySize,
		PollInterval:    cfg.PollInterval(),
		ProviderTimeout: cfg.ProviderTimeout(),
	})

	// Replay journaled history so completed downloads survive restarts.
	if recent, err := history.Recent(cfg.Downloads.HistorySize); err != nil {
		logger.Warn("history replay failed", "error", err)
	} else {
		manager.RestoreCompleted(recent)
	}

	// === HTTP Setup ===
	mux := http.NewServeMux()

	apiV1 := v1.New(manager, registry, v1.Config{
		Version:         version,
		DefaultLanguage: cfg.Downloads.Language,
	})
	apiV1.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"database", cfg.Database.Path,
		"download_root", cfg.Downloads.Root,
		"max_concurrent", cfg.Downloads.MaxConcurrent,
		"providers", len(registry.Order()),
		"log_level", cfg.Server.LogLevel,
	)

	srv := &http.Server{Addr: addr, Handler: logRequests(mux, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		// Stop accepting requests first, then drain the queue.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		if err := manager.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	logger.Info("server stopped")
	return nil
}
