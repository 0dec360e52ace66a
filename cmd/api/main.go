package main

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

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/database"
	"github.com/Tomlord1122/todo-list/internal/events"
	"github.com/Tomlord1122/todo-list/internal/repository"
	"github.com/Tomlord1122/todo-list/internal/server"
	"github.com/Tomlord1122/todo-list/internal/service"
)

func gracefulShutdown(apiServer *http.Server, store io.Closer, stopHub context.CancelFunc, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	slog.Info("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		slog.Error("server forced to shutdown", "err", err)
	}

	// hijacked websocket connections are not tracked by Shutdown
	stopHub()

	if err := store.Close(); err != nil {
		slog.Error("closing todo storage", "err", err)
	} else {
		slog.Info("todo storage closed")
	}

	slog.Info("server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func openPersister(ctx context.Context, cfg *config.Config) (repository.Persister, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return repository.NewMemoryPersister(), nil
	case config.BackendFile:
		return repository.NewFilePersister(cfg.Storage.Path), nil
	case config.BackendSQLite:
		return repository.NewSQLitePersister(cfg.Storage.SQLitePath)
	case config.BackendPostgres:
		dbService, err := database.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if health := dbService.Health(ctx); health["status"] == "down" {
			dbService.Close()
			return nil, fmt.Errorf("postgres unavailable: %s", health["error"])
		}
		return repository.NewGormPersister(dbService)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func run(opts config.Options) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	level, _ := cfg.Log.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()

	// 1. Open storage and load the existing todos
	persister, err := openPersister(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	strategy, _ := repository.ParseIDStrategy(cfg.Storage.IDStrategy)
	store, err := repository.NewTodoStore(ctx, persister, strategy)
	if err != nil {
		persister.Close()
		return err
	}
	slog.Info("todo storage ready", "backend", persister.Name(), "id_strategy", strategy)

	// 2. Change feed, when enabled
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	var hub *events.Hub
	var notifier service.Notifier
	if cfg.Watch.Enabled {
		hub = events.NewHub(server.OriginChecker(cfg.CORS))
		go hub.Run(hubCtx)
		notifier = hub
		slog.Info("change feed enabled", "path", "/watch")
	}

	// 3. Service and HTTP server
	todoService := service.NewTodoService(store, notifier)
	chiServer := server.NewServer(cfg, todoService, hub)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	go gracefulShutdown(chiServer, store, stopHub, done)

	slog.Info("starting server", "addr", chiServer.Addr)
	err = chiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	slog.Info("graceful shutdown complete")
	return nil
}

func main() {
	var opts config.Options

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Serve the todo-list HTTP API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML config file (default: ./todo.yaml if present)")
	cmd.Flags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "env files to load before reading the environment")

	if err := cmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
