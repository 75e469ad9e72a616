package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

// PollStats summarizes one reconciliation pass.
type PollStats struct {
	Scanned          int
	Resolved         int
	Expired          int
	StillPending     int
	AlreadyProcessed int
	Errors           int
}

// ReconciliationPoller asks gateways directly about settlements that have been
// pending too long. It is the fallback for lost or never-sent notifications and
// goes through the same Resolve path as they do.
type ReconciliationPoller struct {
	BaseService
	reader       portsrepo.LedgerReader
	resolver     portssvc.SettlementResolverSvc
	gateways     portsgw.GatewayRegistry
	interval     time.Duration
	pendingAfter time.Duration
	expireAfter  time.Duration
	batchSize    int
	logger       *slog.Logger
}

// PollerOption configures the poller.
type PollerOption func(*ReconciliationPoller)

// WithPollInterval sets how often the poller runs.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *ReconciliationPoller) {
		p.interval = d
	}
}

// WithPendingAfter sets how old a pending settlement must be before it is polled.
func WithPendingAfter(d time.Duration) PollerOption {
	return func(p *ReconciliationPoller) {
		p.pendingAfter = d
	}
}

// WithExpireAfter fails settlements the gateway still reports pending after d. Zero disables expiry.
func WithExpireAfter(d time.Duration) PollerOption {
	return func(p *ReconciliationPoller) {
		p.expireAfter = d
	}
}

// WithBatchSize caps how many settlements one pass looks at.
func WithBatchSize(n int) PollerOption {
	return func(p *ReconciliationPoller) {
		p.batchSize = n
	}
}

// WithPollerClock overrides the clock.
func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *ReconciliationPoller) {
		p.now = now
	}
}

// WithPollerMetrics sets the metrics sink.
func WithPollerMetrics(m *Metrics) PollerOption {
	return func(p *ReconciliationPoller) {
		p.metrics = m
	}
}

// WithPollerLogger sets the base logger used for each pass.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *ReconciliationPoller) {
		p.logger = logger
	}
}

// NewReconciliationPoller creates a poller.
func NewReconciliationPoller(reader portsrepo.LedgerReader, resolver portssvc.SettlementResolverSvc, gateways portsgw.GatewayRegistry, opts ...PollerOption) *ReconciliationPoller {
	p := &ReconciliationPoller{
		reader:       reader,
		resolver:     resolver,
		gateways:     gateways,
		interval:     time.Minute,
		pendingAfter: 5 * time.Minute,
		batchSize:    100,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls every interval until ctx is cancelled.
func (p *ReconciliationPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Reconciliation poller started", slog.Duration("interval", p.interval), slog.Duration("pending_after", p.pendingAfter), slog.Duration("expire_after", p.expireAfter))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Reconciliation poller stopped")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("Reconciliation pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce performs a single reconciliation pass.
func (p *ReconciliationPoller) RunOnce(ctx context.Context) (PollStats, error) {
	ctx = middleware.WithLogger(ctx, p.logger.With(slog.String("component", "reconciliation_poller")))
	var stats PollStats

	now := p.Now()
	pending, err := p.reader.ListPendingSettlements(ctx, now.Add(-p.pendingAfter), p.batchSize)
	if err != nil {
		return stats, err
	}
	p.metrics.pollerPending(len(pending))

	for _, ps := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Scanned++
		p.reconcile(ctx, ps, now, &stats)
	}

	if stats.Scanned > 0 {
		p.LogInfo(ctx, "Reconciliation pass finished",
			slog.Int("scanned", stats.Scanned),
			slog.Int("resolved", stats.Resolved),
			slog.Int("expired", stats.Expired),
			slog.Int("still_pending", stats.StillPending),
			slog.Int("already_processed", stats.AlreadyProcessed),
			slog.Int("errors", stats.Errors))
	}
	return stats, nil
}

func (p *ReconciliationPoller) reconcile(ctx context.Context, ps domain.PendingSettlement, now time.Time, stats *PollStats) {
	ref := ps.Ref
	attrs := []any{slog.String("gateway", ref.GatewayName), slog.String("reference", ref.ExternalReference), slog.String("entry_id", ref.EntryID)}

	gw, ok := p.gateways.Get(ref.GatewayName)
	if !ok {
		stats.Errors++
		p.GetLogger(ctx).Warn("Pending settlement references an unknown gateway", attrs...)
		return
	}
	result, err := gw.VerifyByReference(ctx, ref.ExternalReference)
	if err != nil {
		stats.Errors++
		p.LogError(ctx, err, "Gateway verification failed", attrs...)
		return
	}

	req := dto.ResolveSettlementRequest{
		GatewayName:       ref.GatewayName,
		ExternalReference: ref.ExternalReference,
		Outcome:           domain.CollapseGatewayStatus(result.Status),
		Amount:            result.Amount,
		Payload:           result.Raw,
	}
	if req.Outcome == domain.OutcomePending {
		createdAt := ref.CreatedAt
		if ps.Entry != nil {
			createdAt = ps.Entry.CreatedAt
		}
		if p.expireAfter <= 0 || now.Sub(createdAt) < p.expireAfter {
			stats.StillPending++
			return
		}
		req.Outcome = domain.OutcomeFailure
		req.Reason = string(domain.ReasonPollTimeout)
		req.Amount = nil
	} else {
		req.Reason = string(req.Outcome.DefaultReason())
	}

	_, err = p.resolver.Resolve(ctx, req)
	switch {
	case err == nil && req.Reason == string(domain.ReasonPollTimeout):
		stats.Expired++
	case err == nil:
		stats.Resolved++
	case apperrors.IsBenign(err):
		stats.AlreadyProcessed++
	default:
		stats.Errors++
	}
}
