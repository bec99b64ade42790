// Command server runs the medstock inventory service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/rl1809/medstock/internal/adapter/handler"
	"github.com/rl1809/medstock/internal/adapter/storage"
	"github.com/rl1809/medstock/internal/config"
	"github.com/rl1809/medstock/internal/core/service"
	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/metrics"
)

const (
	appName         = "medstock"
	version         = "0.1.0"
	shutdownTimeout = 5 * time.Second
	healthInterval  = 15 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Inventory management web service",
		Long: `medstock serves a small inventory API backed by whole-collection
record stores (JSON files by default, or Redis / MySQL / SQLite).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
		},
	})

	return cmd
}

func run(ctx context.Context, configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, closeStore, err := storage.Open(ctx, cfg.Storage, logger, m)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error(context.Background(), "close record store", "error", err)
		}
	}()

	users := service.NewUserDirectory(store, cfg.Storage.UsersCollection, logger.With("collection", cfg.Storage.UsersCollection))
	inventory := service.NewInventoryDirectory(store, cfg.Storage.InventoryCollection, logger.With("collection", cfg.Storage.InventoryCollection))
	auth := service.NewAuthService(users)

	httpHandler := handler.NewHTTPHandler(auth, inventory, store, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler.NewRouter(httpHandler, handler.NewPages(cfg.Web.Dir), m, reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	var (
		grpcServer *grpc.Server
		reporter   *handler.HealthReporter
	)
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.GRPC.Address)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}

		grpcServer = grpc.NewServer()
		reporter = handler.NewHealthReporter(store, logger)
		reporter.Register(grpcServer)
		go reporter.Run(ctx, healthInterval)

		go func() {
			logger.Info(ctx, "gRPC server listening", "addr", cfg.GRPC.Address)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", cfg.HTTP.Address)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	case err := <-errCh:
		logger.Error(context.Background(), "server failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP shutdown", "error", err)
	}
	logger.Info(shutdownCtx, "HTTP server stopped")

	if grpcServer != nil {
		reporter.Shutdown()
		grpcServer.GracefulStop()
		logger.Info(shutdownCtx, "gRPC server stopped")
	}

	return nil
}
