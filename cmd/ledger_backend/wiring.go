package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/SscSPs/exchange_ledger/internal/adapters/cache/redis"
	"github.com/SscSPs/exchange_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/exchange_ledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/exchange_ledger/internal/adapters/gateway"
	"github.com/SscSPs/exchange_ledger/internal/adapters/messaging/kafka"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/exchange_ledger/internal/platform/config"
	"github.com/SscSPs/exchange_ledger/pkg/database"
)

// buildRepositories selects the ledger store. The returned func releases its connections.
func buildRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var rateStore portsrepo.RateQuoteStore = memory.NewRateStore(nil)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return portsrepo.RepositoryProvider{}, closeAll, err
		}
		closers = append(closers, func() { _ = client.Close() })
		rateStore = redis.NewRateStore(client)
		logger.Info("Rate quotes cached in redis")
	}

	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using the in-memory ledger store. Balances are lost on restart.")
		return portsrepo.RepositoryProvider{
			LedgerRepo: memory.NewLedgerStore(memory.WithLockWait(cfg.LockWaitTimeout)),
			OwnerRepo:  memory.NewOwnerStore(),
			RateStore:  rateStore,
		}, closeAll, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		closeAll()
		return portsrepo.RepositoryProvider{}, func() {}, fmt.Errorf("failed to initialize database pool: %w", err)
	}
	closers = append(closers, func() { database.ClosePgxPool(dbPool) })
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		closeAll()
		return portsrepo.RepositoryProvider{}, func() {}, err
	}

	return pgsql.NewRepositoryProvider(dbPool, cfg.LockWaitTimeout, rateStore), closeAll, nil
}

func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

func buildGateways(cfg *config.Config) *gateway.Registry {
	return gateway.NewRegistry(gateway.NewHTTPGateway(gateway.HTTPGatewayConfig{
		Name:          cfg.DefaultGateway,
		BaseURL:       cfg.GatewayBaseURL,
		APIKey:        cfg.GatewayAPIKey,
		WebhookSecret: cfg.GatewayWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	}))
}

func buildRateSource(cfg *config.Config) (portsgw.RateSource, error) {
	if cfg.RateSourceURL != "" {
		return gateway.NewHTTPRateSource(cfg.RateSourceURL, cfg.GatewayTimeout), nil
	}
	return gateway.ParseStaticRates(cfg.StaticRates)
}

// buildPublisher returns a nil publisher when no brokers are configured; entries are then
// only visible through the API.
func buildPublisher(cfg *config.Config, logger *slog.Logger) (portsgw.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, func() {}
	}
	publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEntryTopic)
	logger.Info("Publishing entry events", slog.String("topic", cfg.KafkaEntryTopic))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", slog.String("error", err.Error()))
		}
	}
}
