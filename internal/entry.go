// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/api"
	"github.com/starford/gebo/internal/backlink"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/ingest"
	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/noteservice"
	"github.com/starford/gebo/internal/notestore"
	"github.com/starford/gebo/internal/sse"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	notes, edges, svc, links, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer notes.Close()
	defer edges.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, links, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Seed directory ingest: initial import plus a file watcher.
	if cfg.Ingest.Enabled() {
		if err := os.MkdirAll(cfg.Ingest.Path, 0o755); err != nil {
			return fmt.Errorf("create ingest dir: %w", err)
		}
		importer := ingest.NewImporter(svc, cfg.Ingest.Path, cfg.Ingest.OwnerID, logger)
		if err := importer.ImportAll(gCtx); err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		}
		g.Go(func() error {
			if err := importer.Watch(gCtx, func(kind, noteID string) {
				broker.PublishNoteEvent(kind, noteID)
			}); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdio with the given options.
func RunMCP(_ context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	notes, edges, svc, links, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer notes.Close()
	defer edges.Close()

	logger.Info("Starting MCP server on stdio", slog.String("sqlite_path", cfg.SQLite.Path))
	return mcpserver.New(svc, links).ServeStdio()
}

// setup applies options and installs the JSON logger.
func setup(opts []Option) (*Config, *slog.Logger, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app.config, logger, nil
}

// buildServices opens the shared SQLite database as a note store and a
// graph store and wires the services on top of them.
func buildServices(cfg *Config) (*notestore.DB, *graph.DB, *noteservice.Service, *backlink.Service, error) {
	notes, err := notestore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init note store: %w", err)
	}
	edges, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		notes.Close()
		return nil, nil, nil, nil, fmt.Errorf("init graph store: %w", err)
	}

	links := backlink.NewService(notes, edges)
	svc := noteservice.NewService(notes, links)
	return notes, edges, svc, links, nil
}
