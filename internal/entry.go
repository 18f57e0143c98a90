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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ywmark/internal/api"
	"github.com/starford/ywmark/internal/checksum"
	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/index"
	"github.com/starford/ywmark/internal/library"
	"github.com/starford/ywmark/internal/mcpserver"
	"github.com/starford/ywmark/internal/sse"
	"github.com/starford/ywmark/internal/storage"
)

func newApplication(opts []Option, logOut io.Writer, jsonLogs bool) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(logOut, app.config.App.LogLevel, jsonLogs)
	}
	return app, nil
}

// NewLogger builds the structured logger: JSON for the long-running
// commands, text for interactive ones.
func NewLogger(w io.Writer, level slog.Level, jsonLogs bool) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// libraryRuntime is the shared state of `serve` and `mcp`.
type libraryRuntime struct {
	store *storage.FS
	db    *index.DB
	conv  *convert.Service
	lib   *library.Service
}

// openLibrary opens storage and the index, syncs the index and wires the
// conversion service. Every conversion run is recorded in the index and
// passed to observe.
func openLibrary(app *application, observe func(index.ConversionRow)) (*libraryRuntime, error) {
	cfg := app.config
	logger := app.logger
	opts := cfg.Conversion.Options()

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, store, opts, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	conv := convert.NewService(store,
		convert.WithLogger(logger),
		convert.WithLockFile(cfg.Conversion.LockFile),
		convert.WithObserver(func(_ context.Context, source string, res *convert.Result, convErr error) {
			row, recErr := db.RecordConversion(library.ConversionRow(source, res, convErr))
			if recErr != nil {
				logger.Warn("record conversion failed", slog.String("error", recErr.Error()))
			}
			if observe != nil {
				observe(row)
			}
		}),
	)

	return &libraryRuntime{
		store: store,
		db:    db,
		conv:  conv,
		lib:   library.NewService(conv, db, opts, logger),
	}, nil
}

// Run starts the HTTP API and the library watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout, true)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("lock_file", cfg.Conversion.LockFile),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2*time.Second, sse.WithHeartbeat(25*time.Second))
	defer broker.Close()

	rt, err := openLibrary(app, func(row index.ConversionRow) {
		broker.PublishConversion(row.Status == index.StatusFailed, row)
	})
	if err != nil {
		return err
	}
	defer rt.db.Close()

	apiRouter := api.NewRouter(rt.lib, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := rt.db.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start library watcher; edited Markdown is imported into its project.
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, index.WatchConfig{
			Root:     rt.store.Root(),
			Options:  cfg.Conversion.Options(),
			Session:  rt.conv.NewSession(cfg.Conversion.Options(), nil).WithLogger(logger),
			Debounce: cfg.Conversion.WatchDebounce,
		}, logger, func(kind, path string) {
			broker.PublishProjectEvent(kind, path)
		})
	})

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
		defer signal.Stop(quit)

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

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr, true)
	if err != nil {
		return err
	}
	slog.SetDefault(app.logger)

	rt, err := openLibrary(app, nil)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	app.logger.Info("MCP server starting", slog.String("library_path", rt.store.Root()))
	return mcpserver.New(rt.lib, app.version).ServeStdio()
}

// Convert runs one conversion of the file at source: a project is exported
// to Markdown next to it, a Markdown file is imported into the project next
// to it.
func Convert(ctx context.Context, source string, opts ...Option) (*convert.Result, error) {
	app, err := newApplication(opts, os.Stderr, false)
	if err != nil {
		return nil, err
	}
	store, name, err := fileStore(source)
	if err != nil {
		return nil, err
	}
	conv := convert.NewService(store,
		convert.WithLogger(app.logger),
		convert.WithLockFile(app.config.Conversion.LockFile))
	return conv.NewSession(app.config.Conversion.Options(), app.confirm).
		WithLogger(app.logger).
		Convert(ctx, name)
}

// Inspect decodes the file at path and returns its structure.
func Inspect(ctx context.Context, path string, opts ...Option) (*library.ProjectDetail, error) {
	app, err := newApplication(opts, os.Stderr, false)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, name, err := fileStore(path)
	if err != nil {
		return nil, err
	}
	data, err := store.Read(name)
	if err != nil {
		return nil, err
	}
	p, format, err := convert.Decode(name, data, app.config.Conversion.Options())
	if err != nil {
		return nil, err
	}
	return library.Describe(path, format.String(), checksum.Sum(data), p), nil
}

// fileStore roots a storage provider at the directory of path.
func fileStore(path string) (*storage.FS, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", path, err)
	}
	store, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return store, filepath.Base(abs), nil
}
