package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

// reconciliationService finalizes pending deposits and withdrawals exactly once,
// whatever path the gateway outcome arrives by.
type reconciliationService struct {
	BaseService
	ledgerRepo portsrepo.LedgerRepositoryFacade
	gateways   portsgw.GatewayRegistry
	publisher  portsgw.EventPublisher
	balances   *BalanceAccessor
}

// ReconciliationServiceOption configures the reconciliation service.
type ReconciliationServiceOption func(*reconciliationService)

// WithReconciliationPublisher sets where finalized-entry events go.
func WithReconciliationPublisher(publisher portsgw.EventPublisher) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.publisher = publisher
	}
}

// WithReconciliationClock overrides the clock.
func WithReconciliationClock(now func() time.Time) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.now = now
	}
}

// WithReconciliationMetrics sets the metrics sink.
func WithReconciliationMetrics(m *Metrics) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.metrics = m
	}
}

// NewReconciliationService creates the reconciliation worker.
func NewReconciliationService(ledgerRepo portsrepo.LedgerRepositoryFacade, gateways portsgw.GatewayRegistry, opts ...ReconciliationServiceOption) portssvc.ReconciliationSvcFacade {
	s := &reconciliationService{
		ledgerRepo: ledgerRepo,
		gateways:   gateways,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.balances = NewBalanceAccessor(s.Now)
	return s
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// Resolve applies a gateway outcome to the entry bound to (gateway, reference).
//
// Lock order is settlement reference, then entry, then account, so concurrent
// resolves of the same reference serialize on the reference and the loser sees
// a finalized entry.
func (s *reconciliationService) Resolve(ctx context.Context, req dto.ResolveSettlementRequest) (*domain.LedgerEntry, error) {
	req.GatewayName = strings.TrimSpace(req.GatewayName)
	req.ExternalReference = strings.TrimSpace(req.ExternalReference)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	outcome, err := domain.ParseOutcome(string(req.Outcome))
	if err != nil {
		return nil, err
	}
	reason, err := domain.ParseResolutionReason(req.Reason)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = outcome.DefaultReason()
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount must be positive when supplied")
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return nil, apperrors.NewValidationError("payload must be valid JSON")
	}

	refKey := domain.RefKey{GatewayName: req.GatewayName, ExternalReference: req.ExternalReference}
	logAttrs := []any{slog.String("gateway", refKey.GatewayName), slog.String("reference", refKey.ExternalReference), slog.String("outcome", string(outcome))}

	var entry *domain.LedgerEntry
	finalized := false
	err = s.ledgerRepo.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		ref, err := uow.FindSettlementRefForUpdate(ctx, refKey)
		if err != nil {
			return err
		}
		entry, err = uow.FindEntryForUpdate(ctx, ref.EntryID)
		if err != nil {
			return err
		}
		if entry.Status.IsFinal() {
			return fmt.Errorf("%w: entry %s is already %s", apperrors.ErrAlreadyProcessed, entry.EntryID, entry.Status)
		}
		target, final := outcome.TargetStatus()
		if !final {
			return nil
		}
		if req.Amount != nil && !req.Amount.Equal(entry.Source.Amount) {
			return apperrors.NewValidationError(fmt.Sprintf("gateway amount %s does not match entry amount %s", req.Amount.String(), entry.Source.Amount.String()))
		}
		key, ok := entry.SettlementAccount()
		if !ok {
			return fmt.Errorf("entry %s of type %s cannot be settled", entry.EntryID, entry.Type)
		}

		switch {
		case entry.Type == domain.EntryTypeDeposit && outcome == domain.OutcomeSuccess:
			err = s.balances.Credit(ctx, uow, key, entry.Destination.Amount)
		case entry.Type == domain.EntryTypeWithdrawal && outcome == domain.OutcomeSuccess:
			err = s.balances.CommitReserved(ctx, uow, key, entry.Source.Amount)
		case entry.Type == domain.EntryTypeWithdrawal && outcome == domain.OutcomeFailure:
			err = s.balances.ReleaseReserved(ctx, uow, key, entry.Source.Amount)
		}
		if err != nil {
			return err
		}

		if err := entry.Finalize(target, reason, req.Payload, s.Now()); err != nil {
			return err
		}
		if err := uow.FinalizeEntry(ctx, entry); err != nil {
			return err
		}
		finalized = true
		return nil
	})

	entryType := "unknown"
	if entry != nil {
		entryType = string(entry.Type)
	}
	if err != nil {
		if apperrors.IsBenign(err) {
			s.metrics.resolution(entryType, "already_processed")
			s.LogOutcome(ctx, err, "Settlement already processed", logAttrs...)
			return entry, err
		}
		if errors.Is(err, apperrors.ErrBusy) {
			s.metrics.busy("resolve")
		}
		s.metrics.resolution(entryType, "error")
		s.LogOutcome(ctx, err, "Failed to resolve settlement", logAttrs...)
		return nil, err
	}
	if !finalized {
		s.metrics.resolution(entryType, "still_pending")
		s.LogDebug(ctx, "Settlement still pending", logAttrs...)
		return entry, nil
	}

	s.metrics.resolution(entryType, string(entry.Status))
	s.LogInfo(ctx, "Settlement resolved", append(logAttrs, slog.String("entry_id", entry.EntryID), slog.String("status", string(entry.Status)), slog.String("reason", string(reason)))...)
	s.publishFinalized(ctx, entry)
	return entry, nil
}

func (s *reconciliationService) publishFinalized(ctx context.Context, entry *domain.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	event := domain.EntryEvent{
		EventID:    uuid.NewString(),
		Type:       domain.EventEntryFinalized,
		Entry:      entry.Clone(),
		OccurredAt: s.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.LogError(ctx, err, "Failed to publish entry finalized event", slog.String("entry_id", entry.EntryID))
	}
}

// HandleNotification verifies an inbound gateway callback before anything else
// and then feeds its outcome to Resolve.
func (s *reconciliationService) HandleNotification(ctx context.Context, notification domain.RawNotification) (*domain.LedgerEntry, error) {
	name := strings.TrimSpace(notification.GatewayName)
	if s.gateways == nil {
		return nil, fmt.Errorf("%w: no gateways configured", apperrors.ErrUntrustedNotification)
	}
	gw, ok := s.gateways.Get(name)
	if !ok {
		s.GetLogger(ctx).Warn("Notification for unknown gateway", slog.String("gateway", name))
		return nil, fmt.Errorf("%w: unknown gateway %q", apperrors.ErrUntrustedNotification, name)
	}
	if err := gw.Verify(notification); err != nil {
		s.GetLogger(ctx).Warn("Rejected unverified notification", slog.String("gateway", name), slog.String("error", err.Error()))
		if !errors.Is(err, apperrors.ErrUntrustedNotification) {
			err = fmt.Errorf("%w: %v", apperrors.ErrUntrustedNotification, err)
		}
		return nil, err
	}

	parsed, err := domain.ParseGatewayNotification(notification.Body)
	if err != nil {
		s.LogOutcome(ctx, err, "Verified notification has an unusable body", slog.String("gateway", name))
		return nil, err
	}

	return s.Resolve(ctx, dto.ResolveSettlementRequest{
		GatewayName:       name,
		ExternalReference: parsed.Reference,
		Outcome:           domain.CollapseGatewayStatus(parsed.Status),
		Amount:            parsed.Amount,
		Payload:           json.RawMessage(notification.Body),
	})
}

// Cancel fails a pending deposit or withdrawal with reason cancelled.
func (s *reconciliationService) Cancel(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return nil, apperrors.NewValidationError("entry id is required")
	}
	ref, err := s.ledgerRepo.FindSettlementRefByEntryID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if _, lookupErr := s.ledgerRepo.FindEntryByID(ctx, entryID); lookupErr == nil {
				return nil, apperrors.NewValidationError(fmt.Sprintf("entry %s has no gateway settlement to cancel", entryID))
			}
		}
		return nil, err
	}
	return s.Resolve(ctx, dto.ResolveSettlementRequest{
		GatewayName:       ref.GatewayName,
		ExternalReference: ref.ExternalReference,
		Outcome:           domain.OutcomeFailure,
		Reason:            string(domain.ReasonCancelled),
	})
}
