package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/knjigarna/internal/api"
	"github.com/erazemk/knjigarna/internal/config"
	"github.com/erazemk/knjigarna/internal/imaging"
	"github.com/erazemk/knjigarna/internal/jobs"
	"github.com/erazemk/knjigarna/internal/store"
)

func newServeCmd() *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides config)")
	return cmd
}

func serve(cfg *config.Config) error {
	closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Path)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return err
	}
	defer database.Close()

	// First run: no users yet.
	count, err := store.CountUsers(ctx, database)
	if err != nil {
		slog.Error("failed to count users", "error", err)
		return err
	}
	if count == 0 {
		password, err := bootstrap(ctx, database, "admin", "admin@knjigarna.local")
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			return err
		}
		printInitResult(cfg.Database.Path, "admin", password)
		fmt.Println()
	}

	slog.Info("database ready", "path", cfg.Database.Path)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			slog.Error("failed to get JWT secret", "error", err)
			return err
		}
	}

	if !cfg.Jobs.Disabled {
		scheduler, err := jobs.New(database, jobs.Config{
			RestockSchedule:  cfg.Jobs.RestockSchedule,
			PurgeSchedule:    cfg.Jobs.PurgeSchedule,
			RestockThreshold: cfg.Jobs.RestockThreshold,
		})
		if err != nil {
			slog.Error("failed to set up jobs", "error", err)
			return err
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	handler := api.NewRouter(database, api.Options{
		JWTSecret:        jwtSecret,
		TokenTTL:         cfg.Auth.TokenTTL,
		RestockThreshold: cfg.Jobs.RestockThreshold,
		Cover:            imaging.DefaultOptions(),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
