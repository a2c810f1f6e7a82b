package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder-dev/stackstatus/internal/config"
	"github.com/calder-dev/stackstatus/internal/server"
	"github.com/calder-dev/stackstatus/internal/snapshot"
	"github.com/calder-dev/stackstatus/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stackstatus",
		Short:        "Dev stack health and progress snapshot server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(snapshotCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stackstatus %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func serveCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the snapshot server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the config file when it changes")
	return cmd
}

func runServe(watch bool) error {
	logger := slog.Default()

	// 1. Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Info("config loaded",
		"services", len(cfg.Services),
		"sizes", len(cfg.Sizes),
		"policy", cfg.Refresh.Policy,
	)

	// 2. Build the snapshot pipeline
	builder := snapshot.New(cfg, snapshot.Factories{}, logger)
	srv := server.New(builder, cfg.Refresh, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Router(),
	}

	// 3. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 4. Start the refresh loop (no-op under on-demand policy)
	srv.Start(ctx)

	// 5. Optionally watch the config file for edits
	watchErr := make(chan error, 1)
	if watch {
		go func() {
			watchErr <- config.Watch(ctx, cfgFile, logger, func(next *config.Config) {
				srv.SetBuilder(snapshot.New(next, snapshot.Factories{}, logger))
			})
		}()
	}

	// 6. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 7. Wait for signal or failure
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	case err := <-watchErr:
		if err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
	}

	// 8. Graceful shutdown: abandon in-flight probes, drain HTTP
	srv.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func snapshotCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build one snapshot and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return executeSnapshot(cmd, cfg, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}
