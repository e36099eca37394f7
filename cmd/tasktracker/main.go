package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xenon007/tasktracker/internal/auth"
	"github.com/xenon007/tasktracker/internal/config"
	"github.com/xenon007/tasktracker/internal/server"
	"github.com/xenon007/tasktracker/internal/storage/sqlstore"
	"github.com/xenon007/tasktracker/internal/util"
)

type rootOptions struct {
	configPath string
	addr       string
	driver     string
	dsn        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Multi-user project and task tracker backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", util.EnvOrDefault("TASKTRACKER_CONFIG", "config.yaml"), "Path to YAML config file")
	root.PersistentFlags().StringVar(&opts.driver, "db-driver", "", "Database driver (sqlite3 or postgres)")
	root.PersistentFlags().StringVar(&opts.dsn, "db", "", "Database DSN or sqlite file path")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serve.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrate(opts)
		},
	}

	root.AddCommand(serve, migrate)
	return root
}

// loadConfig resolves and fully validates the configuration for serving.
func loadConfig(opts *rootOptions) (config.Config, *slog.Logger, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(cfg.Log), nil
}

// resolveConfig merges file, env and flag settings, in that order of precedence.
func resolveConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.Database.DSN = opts.dsn
	}
	return cfg, nil
}

// runMigrate applies the schema. Only the database section has to be valid.
func runMigrate(opts *rootOptions) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg.Log)

	store, err := sqlstore.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	logger.Info("schema applied", slog.String("driver", cfg.Database.Driver))
	return store.Close()
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	store, err := sqlstore.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	identity := auth.NewService(store, auth.NewTokens(cfg.Auth), cfg.Auth, logger)
	srv := server.New(cfg.Server, store, identity, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Engine(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			serveErr <- err
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
