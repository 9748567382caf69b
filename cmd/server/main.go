package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"

	grpcadapter "github.com/simaogato/wealthflow-recurring/internal/adapter/grpc"
	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository"
	"github.com/simaogato/wealthflow-recurring/internal/config"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/logging"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/forecast"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/importer"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/maintenance"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recurring server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 2. Setup Database
	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	// 3. Initialize Services (Use Cases)
	clock := domain.SystemClock{Location: loc}
	recurringEngine := engine.NewEngine(stores.Rules, stores.Transactions, logger.With().Str("component", "engine").Logger())
	ruleService := recurring.NewRecurringService(stores.Rules, stores.Rules)
	forecastService := forecast.NewForecastService(stores.Rules)
	ruleImporter := importer.NewImporter(ruleService, logger.With().Str("component", "importer").Logger())

	// 4. Maintenance: one pass now, then on the configured schedule
	runner := maintenance.NewRunner(recurringEngine, stores.Rules, clock, logger.With().Str("component", "maintenance").Logger())
	runner.Location = loc
	if cfg.ProcessOnStart {
		if _, err := runner.RunOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("Startup maintenance pass failed")
		}
	}
	if cfg.MaintenanceEnabled() {
		if err := runner.Start(ctx, cfg.MaintenanceSchedule); err != nil {
			return err
		}
		defer runner.Stop()
		logger.Info().Str("schedule", cfg.MaintenanceSchedule).Msg("Maintenance scheduled")
	}

	// 5. Start gRPC Server
	grpcAdapter := grpcadapter.NewServer(recurringEngine, ruleService, stores.Transactions, forecastService, ruleImporter, clock)
	grpcServer := grpcadapter.NewGRPCServer(grpcAdapter, cfg.APIToken, logger.With().Str("component", "grpc").Logger())

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	return waitForShutdown(ctx, grpcServer, serveErr, logger)
}

// waitForShutdown waits for SIGTERM/SIGINT (ctx cancellation) or a serve failure
// and gracefully shuts down the server
func waitForShutdown(ctx context.Context, grpcServer *grpclib.Server, serveErr <-chan error, logger zerolog.Logger) error {
	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to serve gRPC server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down gracefully...")
	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")
	return nil
}
