// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/noteweave/internal/api"
	"github.com/starford/noteweave/internal/index"
	"github.com/starford/noteweave/internal/mcpserver"
	"github.com/starford/noteweave/internal/noteservice"
	"github.com/starford/noteweave/internal/sse"
	"github.com/starford/noteweave/internal/storage"
)

const linksThrottle = 2 * time.Second

// Core holds the opened workspace, index and service shared by every
// command.
type Core struct {
	Store   *storage.Workspace
	DB      *index.DB
	Service *noteservice.Service
	Logger  *slog.Logger
}

// Close releases the index.
func (c *Core) Close() error {
	return c.DB.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	return NewLogger(a.config.App.LogLevel, a.logOutput)
}

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Open creates missing vault directories and opens the workspace and the
// index. The index is not synced.
func Open(_ context.Context, cfg *Config, logger *slog.Logger) (*Core, error) {
	for _, v := range cfg.Workspace.Vaults {
		if err := os.MkdirAll(v.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create vault dir %s: %w", v.Name, err)
		}
	}

	store, err := storage.NewWorkspace(cfg.Workspace.Vaults)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := noteservice.NewService(store, db, noteservice.Options{
		Policy:              cfg.Links.Disambiguation,
		MaxRefDepth:         cfg.Links.MaxRefDepth,
		NormalizeLegacyRefs: cfg.Links.NormalizeLegacyRefs,
		Logger:              logger,
	})
	return &Core{Store: store, DB: db, Service: svc, Logger: logger}, nil
}

// Sync brings the index up to date with the vaults.
func (c *Core) Sync(ctx context.Context) (index.SyncResult, error) {
	res, err := c.Service.Sync(ctx)
	if err != nil {
		return res, err
	}
	c.Logger.Info("sync done",
		slog.Int("indexed", res.Indexed),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("removed", res.Removed),
		slog.Int("failed", res.Failed))
	return res, nil
}

// Run starts the HTTP server and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Int("vaults", len(cfg.Workspace.Vaults)),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("disambiguation", string(cfg.Links.Disambiguation)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	core, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	if _, err := core.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(linksThrottle)
	defer broker.Close()

	apiRouter := api.NewRouter(core.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, core.DB, core.Store, logger, broker.PublishNoteEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been shut down so the
// watcher stops too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio while the watcher keeps the index
// current.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()
	slog.SetDefault(logger)

	core, err := Open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	if _, err := core.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(ctx, core.DB, core.Store, logger, nil); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(core.Service, app.version).ServeStdio()
}
