// Command attestor-daemon runs the attestor core as a long-lived
// service: the ledger engine behind the AttestorService gRPC surface and
// the HTTP health/metrics endpoint. The Arrow Flight export server is not
// started by this command; the Flight address is only logged at startup.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attestor-io/core/internal/config"
	"github.com/attestor-io/core/internal/events"
	"github.com/attestor-io/core/internal/logging"
	"github.com/attestor-io/core/internal/storage/postgres"
	"github.com/attestor-io/core/internal/telemetry"
	"github.com/attestor-io/core/internal/wire"
	"github.com/attestor-io/core/pkg/ledger"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger := logging.NewComponentLogger(cfg.ServiceName, cfg.ServiceVersion)
	logger.LogStartup(logging.StartupConfig{
		ServiceType:   "attestor-daemon",
		GRPCAddress:   cfg.GRPCAddress,
		FlightAddress: cfg.FlightAddress,
		HealthPort:    cfg.HealthPort,
		PostgresDSN:   cfg.PostgresDSN,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := postgres.NewClient(ctx, postgres.Options{
		DSN:          cfg.PostgresDSN,
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer dbClient.Close()

	if err := dbClient.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	txRepo := postgres.NewTransactionRepository(dbClient)
	attRepo := postgres.NewAttestationRepository(dbClient)

	broker, err := events.NewBroker(cfg.EventBrokerEndpoint, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("event broker unavailable, continuing without event publication")
		broker = nil
	}
	if broker != nil {
		defer broker.Close()
	}

	engine := ledger.New()

	dispatcher := wire.NewDispatcher(engine, txRepo, attRepo, broker, logger, cfg.StalenessThreshold)

	grpcServer, err := wire.NewServer(cfg.GRPCAddress, dispatcher, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gRPC server")
	}
	go func() {
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	healthServer := telemetry.NewHealthServer(logger, cfg.HealthPort, cfg.ServiceVersion)
	healthServer.RegisterComponent("ledger_engine")
	healthServer.RegisterComponent("postgres")
	healthServer.RegisterComponent("event_broker")
	healthServer.UpdateComponentHealth("ledger_engine", true, nil, nil)
	healthServer.UpdateComponentHealth("postgres", true, nil, nil)
	healthServer.UpdateComponentHealth("event_broker", broker != nil, nil, nil)
	healthServer.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	grpcServer.GracefulStop()
	if err := healthServer.Stop(stopCtx); err != nil {
		logger.Error().Err(err).Msg("error stopping health server")
	}

	logger.Info().Msg("attestor daemon stopped")
}
