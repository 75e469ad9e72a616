package services

import (
	"log/slog"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/platform/config"
)

// ExternalDependencies are the collaborators outside the ledger the services talk to.
type ExternalDependencies struct {
	Gateways   portsgw.GatewayRegistry
	RateSource portsgw.RateSource
	Publisher  portsgw.EventPublisher
	Metrics    *Metrics
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, deps ExternalDependencies) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Rates = NewRateCache(
		repos.RateStore,
		deps.RateSource,
		WithMaxAge(cfg.RateMaxAge),
		WithGracePeriod(cfg.RateGracePeriod),
		WithHotPairs(parseHotPairs(cfg.RateHotPairs)),
		WithRecentWindow(cfg.RateRecentWindow),
		WithFetchTimeout(cfg.GatewayTimeout),
		WithRateMetrics(deps.Metrics),
	)

	// Reconciliation first: the ledger uses it to fail withdrawals whose payout never started.
	container.Reconciliation = NewReconciliationService(
		repos.LedgerRepo,
		deps.Gateways,
		WithReconciliationPublisher(deps.Publisher),
		WithReconciliationMetrics(deps.Metrics),
	)

	container.Ledger = NewLedgerService(
		repos.LedgerRepo,
		repos.OwnerRepo,
		WithRateService(container.Rates),
		WithSettlementResolver(container.Reconciliation),
		WithGatewayRegistry(deps.Gateways),
		WithEventPublisher(deps.Publisher),
		WithAssetScale(cfg.AssetScale),
		WithDefaultGateway(cfg.DefaultGateway),
		WithPayoutTimeout(cfg.GatewayTimeout),
		WithLedgerMetrics(deps.Metrics),
	)

	return container
}

// NewPollerFromConfig builds the reconciliation poller.
func NewPollerFromConfig(cfg *config.Config, reader portsrepo.LedgerReader, resolver portssvc.SettlementResolverSvc, gateways portsgw.GatewayRegistry, metrics *Metrics, logger *slog.Logger) *ReconciliationPoller {
	return NewReconciliationPoller(
		reader,
		resolver,
		gateways,
		WithPollInterval(cfg.ReconcilePollInterval),
		WithPendingAfter(cfg.ReconcilePendingAfter),
		WithExpireAfter(cfg.ReconcileExpireAfter),
		WithBatchSize(cfg.ReconcileBatchSize),
		WithPollerMetrics(metrics),
		WithPollerLogger(logger),
	)
}

func parseHotPairs(raw []string) []domain.CurrencyPair {
	pairs := make([]domain.CurrencyPair, 0, len(raw))
	for _, s := range raw {
		p, err := domain.ParseCurrencyPair(s)
		if err != nil {
			slog.Warn("Ignoring invalid hot pair", slog.String("pair", s), slog.String("error", err.Error()))
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs
}
