package gateways

import (
	"context"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
)

// SettlementGateway answers questions about references it issued or received.
type SettlementGateway interface {
	// VerifyByReference asks the gateway for the current status of a reference.
	VerifyByReference(ctx context.Context, reference string) (*domain.VerificationResult, error)
}

// TransferGateway pays funds out to an external destination.
type TransferGateway interface {
	// InitiateTransfer starts a payout. The outcome arrives later via notification or poll.
	InitiateTransfer(ctx context.Context, instruction domain.TransferInstruction) error
}

// NotificationVerifier authenticates inbound callbacks.
type NotificationVerifier interface {
	// Verify returns apperrors.ErrUntrustedNotification when the notification is not authentic.
	Verify(notification domain.RawNotification) error
}

// PaymentGateway is a complete gateway integration.
type PaymentGateway interface {
	Name() string
	SettlementGateway
	TransferGateway
	NotificationVerifier
}

// GatewayRegistry resolves gateways by name.
type GatewayRegistry interface {
	Get(name string) (PaymentGateway, bool)
	Names() []string
}

// RateSource fetches live exchange rates.
type RateSource interface {
	FetchRate(ctx context.Context, pair domain.CurrencyPair) (domain.RateQuote, error)
}

// EventPublisher emits ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.EntryEvent) error
}

// NotificationQueue hands inbound notifications to the reconciliation worker.
type NotificationQueue interface {
	Enqueue(ctx context.Context, notification domain.RawNotification) error
}
