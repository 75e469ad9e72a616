package services

import (
	"context"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

// SettlementResolverSvc finalizes pending settlements. It is the only path that
// completes or fails a deposit or withdrawal.
type SettlementResolverSvc interface {
	// Resolve applies a gateway outcome. A settlement already finalized returns the
	// entry together with apperrors.ErrAlreadyProcessed.
	Resolve(ctx context.Context, req dto.ResolveSettlementRequest) (*domain.LedgerEntry, error)
}

// ReconciliationSvcFacade is the gateway reconciliation worker.
type ReconciliationSvcFacade interface {
	SettlementResolverSvc

	// HandleNotification verifies and applies a gateway callback.
	HandleNotification(ctx context.Context, notification domain.RawNotification) (*domain.LedgerEntry, error)

	// Cancel fails a pending deposit or withdrawal administratively.
	Cancel(ctx context.Context, entryID string) (*domain.LedgerEntry, error)
}

// RateSvcFacade is the rate cache.
type RateSvcFacade interface {
	// GetRate returns a quote fresh enough to trade on or apperrors.ErrRateUnavailable.
	GetRate(ctx context.Context, base, quote string) (domain.RateQuote, error)

	// Refresh fetches a pair from the source and stores it.
	Refresh(ctx context.Context, pair domain.CurrencyPair) error

	// HotPairs returns configured pairs plus those requested recently.
	HotPairs() []domain.CurrencyPair
}
