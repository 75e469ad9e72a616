package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsgw "github.com/SscSPs/exchange_ledger/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

const (
	defaultAssetScale = 8
	defaultPageSize   = 20
	maxPageSize       = 100

	defaultPayoutTimeout = 30 * time.Second
)

// ledgerService is the transaction engine: every balance-moving operation starts here.
type ledgerService struct {
	BaseService
	ledgerRepo     portsrepo.LedgerRepositoryFacade
	ownerRepo      portsrepo.OwnerRepositoryFacade
	rates          portssvc.RateSvcFacade
	resolver       portssvc.SettlementResolverSvc
	gateways       portsgw.GatewayRegistry
	publisher      portsgw.EventPublisher
	balances       *BalanceAccessor
	assetScale     int32
	defaultGateway string
	payoutTimeout  time.Duration
	newID          func() string
}

// LedgerServiceOption configures the ledger service.
type LedgerServiceOption func(*ledgerService)

// WithRateService sets the rate cache used by exchanges.
func WithRateService(rates portssvc.RateSvcFacade) LedgerServiceOption {
	return func(s *ledgerService) {
		s.rates = rates
	}
}

// WithSettlementResolver sets the resolver used when a payout cannot be initiated.
func WithSettlementResolver(resolver portssvc.SettlementResolverSvc) LedgerServiceOption {
	return func(s *ledgerService) {
		s.resolver = resolver
	}
}

// WithGatewayRegistry sets the gateways deposits and withdrawals settle through.
func WithGatewayRegistry(gateways portsgw.GatewayRegistry) LedgerServiceOption {
	return func(s *ledgerService) {
		s.gateways = gateways
	}
}

// WithEventPublisher sets where entry events go after commit.
func WithEventPublisher(publisher portsgw.EventPublisher) LedgerServiceOption {
	return func(s *ledgerService) {
		s.publisher = publisher
	}
}

// WithAssetScale sets the number of decimal places converted amounts are truncated to.
func WithAssetScale(scale int32) LedgerServiceOption {
	return func(s *ledgerService) {
		s.assetScale = scale
	}
}

// WithDefaultGateway sets the gateway used when a request names none.
func WithDefaultGateway(name string) LedgerServiceOption {
	return func(s *ledgerService) {
		s.defaultGateway = name
	}
}

// WithPayoutTimeout bounds the call that starts a payout. The call does not inherit the
// caller's cancellation.
func WithPayoutTimeout(d time.Duration) LedgerServiceOption {
	return func(s *ledgerService) {
		if d > 0 {
			s.payoutTimeout = d
		}
	}
}

// WithLedgerClock overrides the clock.
func WithLedgerClock(now func() time.Time) LedgerServiceOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// WithLedgerMetrics sets the metrics sink.
func WithLedgerMetrics(m *Metrics) LedgerServiceOption {
	return func(s *ledgerService) {
		s.metrics = m
	}
}

// WithIDGenerator overrides entry and reference id generation.
func WithIDGenerator(newID func() string) LedgerServiceOption {
	return func(s *ledgerService) {
		s.newID = newID
	}
}

// NewLedgerService creates the transaction engine.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade, ownerRepo portsrepo.OwnerRepositoryFacade, opts ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	s := &ledgerService{
		ledgerRepo: ledgerRepo,
		ownerRepo:  ownerRepo,
		assetScale:    defaultAssetScale,
		payoutTimeout: defaultPayoutTimeout,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.balances = NewBalanceAccessor(s.Now)
	return s
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError(fmt.Sprintf("amount must be positive, got %s", amount.String()))
	}
	return nil
}

func (s *ledgerService) validateScale(amount decimal.Decimal) error {
	if !amount.Truncate(s.assetScale).Equal(amount) {
		return apperrors.NewValidationError(fmt.Sprintf("amount %s has more than %d decimal places", amount.String(), s.assetScale))
	}
	return nil
}

func (s *ledgerService) resolveGatewayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultGateway
	}
	if name == "" {
		return "", apperrors.NewValidationError("gateway name is required")
	}
	if s.gateways != nil {
		if _, ok := s.gateways.Get(name); !ok {
			return "", apperrors.NewValidationError(fmt.Sprintf("unknown gateway %q", name))
		}
	}
	return name, nil
}

// runInTx runs fn and records lock contention.
func (s *ledgerService) runInTx(ctx context.Context, op string, fn func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error) error {
	err := s.ledgerRepo.RunInTx(ctx, fn)
	if errors.Is(err, apperrors.ErrBusy) {
		s.metrics.busy(op)
	}
	return err
}

func (s *ledgerService) publish(ctx context.Context, eventType domain.EventType, entry *domain.LedgerEntry) {
	s.metrics.entryRecorded(string(entry.Type), string(entry.Status))
	if s.publisher == nil {
		return
	}
	event := domain.EntryEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Entry:      entry.Clone(),
		OccurredAt: s.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The entry is committed; a lost event is recoverable from the ledger itself.
		s.LogError(ctx, err, "Failed to publish entry event", slog.String("entry_id", entry.EntryID), slog.String("event_type", string(eventType)))
	}
}

// Deposit records a pending deposit. The balance is untouched until the gateway confirms it.
func (s *ledgerService) Deposit(ctx context.Context, ownerID string, req dto.CreateDepositRequest) (*domain.LedgerEntry, error) {
	key, err := domain.NewAccountKey(ownerID, req.Asset)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.validateScale(req.Amount); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.GatewayReference)
	if reference == "" {
		return nil, apperrors.NewValidationError("gateway reference is required")
	}
	gatewayName, err := s.resolveGatewayName(req.GatewayName)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	amount := domain.AssetAmount{AssetCode: key.AssetCode, Amount: req.Amount}
	entry := &domain.LedgerEntry{
		EntryID:           s.newID(),
		Type:              domain.EntryTypeDeposit,
		Status:            domain.EntryStatusPending,
		CreditAccount:     &key,
		Source:            amount,
		Destination:       amount,
		GatewayName:       gatewayName,
		ExternalReference: reference,
		Payload:           req.Payload,
		CreatedAt:         now,
	}

	err = s.runInTx(ctx, "deposit", func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		if err := uow.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return uow.InsertSettlementRef(ctx, domain.ExternalSettlementRef{
			GatewayName:       gatewayName,
			ExternalReference: reference,
			EntryID:           entry.EntryID,
			CreatedAt:         now,
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to record deposit", slog.String("owner_id", key.OwnerID), slog.String("reference", reference))
		return nil, err
	}

	s.LogInfo(ctx, "Deposit recorded", slog.String("entry_id", entry.EntryID), slog.String("owner_id", key.OwnerID), slog.String("asset", key.AssetCode), slog.String("amount", req.Amount.String()))
	s.publish(ctx, domain.EventEntryRecorded, entry)
	return entry, nil
}

// Withdraw reserves funds, records a pending withdrawal and asks the gateway to pay out.
// If the payout cannot be initiated the entry is failed through the resolver and the
// reservation released; the failed entry is returned.
func (s *ledgerService) Withdraw(ctx context.Context, ownerID string, req dto.CreateWithdrawalRequest) (*domain.LedgerEntry, error) {
	key, err := domain.NewAccountKey(ownerID, req.Asset)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.validateScale(req.Amount); err != nil {
		return nil, err
	}
	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return nil, apperrors.NewValidationError("destination is required")
	}
	gatewayName, err := s.resolveGatewayName("")
	if err != nil {
		return nil, err
	}

	now := s.Now()
	amount := domain.AssetAmount{AssetCode: key.AssetCode, Amount: req.Amount}
	entry := &domain.LedgerEntry{
		EntryID:           s.newID(),
		Type:              domain.EntryTypeWithdrawal,
		Status:            domain.EntryStatusPending,
		DebitAccount:      &key,
		Source:            amount,
		Destination:       amount,
		GatewayName:       gatewayName,
		ExternalReference: s.newID(),
		DestinationAddr:   destination,
		Payload:           req.Payload,
		CreatedAt:         now,
	}

	err = s.runInTx(ctx, "withdraw", func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		if err := uow.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if err := uow.InsertSettlementRef(ctx, domain.ExternalSettlementRef{
			GatewayName:       gatewayName,
			ExternalReference: entry.ExternalReference,
			EntryID:           entry.EntryID,
			CreatedAt:         now,
		}); err != nil {
			return err
		}
		return s.balances.Reserve(ctx, uow, key, req.Amount)
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to record withdrawal", slog.String("owner_id", key.OwnerID), slog.String("asset", key.AssetCode))
		return nil, err
	}

	s.LogInfo(ctx, "Withdrawal reserved", slog.String("entry_id", entry.EntryID), slog.String("reference", entry.ExternalReference))
	s.publish(ctx, domain.EventEntryRecorded, entry)

	initErr := s.initiatePayout(ctx, entry)
	switch {
	case initErr == nil:
		return entry, nil
	case errors.Is(initErr, apperrors.ErrTransferRejected):
		s.LogError(ctx, initErr, "Payout rejected, failing withdrawal", slog.String("entry_id", entry.EntryID))
		failed, err := s.failInitiation(ctx, entry)
		if err != nil {
			return entry, nil
		}
		return failed, nil
	default:
		// The gateway may have accepted the payout. The reservation stays and the
		// poller or the gateway callback settles the entry.
		s.LogError(ctx, initErr, "Payout outcome unknown, withdrawal left pending", slog.String("entry_id", entry.EntryID), slog.String("reference", entry.ExternalReference))
		return entry, nil
	}
}

func (s *ledgerService) initiatePayout(ctx context.Context, entry *domain.LedgerEntry) error {
	if s.gateways == nil {
		return fmt.Errorf("%w: no gateway registry configured", apperrors.ErrTransferRejected)
	}
	gw, ok := s.gateways.Get(entry.GatewayName)
	if !ok {
		return fmt.Errorf("%w: gateway %q not registered", apperrors.ErrTransferRejected, entry.GatewayName)
	}
	payoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.payoutTimeout)
	defer cancel()
	return gw.InitiateTransfer(payoutCtx, domain.TransferInstruction{
		Reference:   entry.ExternalReference,
		OwnerID:     entry.DebitAccount.OwnerID,
		AssetCode:   entry.Source.AssetCode,
		Amount:      entry.Source.Amount,
		Destination: entry.DestinationAddr,
	})
}

func (s *ledgerService) failInitiation(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if s.resolver == nil {
		// The poller picks it up later; the reservation stays until then.
		return nil, errors.New("no settlement resolver configured")
	}
	failed, err := s.resolver.Resolve(ctx, dto.ResolveSettlementRequest{
		GatewayName:       entry.GatewayName,
		ExternalReference: entry.ExternalReference,
		Outcome:           domain.OutcomeFailure,
		Reason:            string(domain.ReasonInitiationFailed),
	})
	if err != nil && !apperrors.IsBenign(err) {
		s.LogError(ctx, err, "Failed to resolve withdrawal after initiation failure", slog.String("entry_id", entry.EntryID))
		return nil, err
	}
	return failed, nil
}

// Exchange converts Amount of FromAsset into ToAsset for the same owner at the cached rate.
func (s *ledgerService) Exchange(ctx context.Context, ownerID string, req dto.CreateExchangeRequest) (*domain.LedgerEntry, error) {
	fromKey, err := domain.NewAccountKey(ownerID, req.FromAsset)
	if err != nil {
		return nil, err
	}
	toKey, err := domain.NewAccountKey(ownerID, req.ToAsset)
	if err != nil {
		return nil, err
	}
	if fromKey.AssetCode == toKey.AssetCode {
		return nil, apperrors.NewValidationError("from and to assets must differ")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.validateScale(req.Amount); err != nil {
		return nil, err
	}
	if s.rates == nil {
		return nil, fmt.Errorf("%w: no rate service configured", apperrors.ErrRateUnavailable)
	}

	// Fetch the rate before taking any lock so network latency never extends lock hold time.
	quote, err := s.rates.GetRate(ctx, fromKey.AssetCode, toKey.AssetCode)
	if err != nil {
		s.LogOutcome(ctx, err, "Exchange rejected, no rate", slog.String("from", fromKey.AssetCode), slog.String("to", toKey.AssetCode))
		return nil, err
	}
	converted := quote.Convert(req.Amount, s.assetScale)
	if !converted.IsPositive() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("amount %s converts to zero %s", req.Amount.String(), toKey.AssetCode))
	}

	now := s.Now()
	rate := quote.Rate
	entry := &domain.LedgerEntry{
		EntryID:       s.newID(),
		Type:          domain.EntryTypeExchange,
		Status:        domain.EntryStatusCompleted,
		DebitAccount:  &fromKey,
		CreditAccount: &toKey,
		Source:        domain.AssetAmount{AssetCode: fromKey.AssetCode, Amount: req.Amount},
		Destination:   domain.AssetAmount{AssetCode: toKey.AssetCode, Amount: converted},
		Rate:          &rate,
		Payload:       req.Payload,
		CreatedAt:     now,
		FinalizedAt:   &now,
	}

	err = s.runInTx(ctx, "exchange", func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		if err := s.balances.ApplyPostings(ctx, uow, entry); err != nil {
			return err
		}
		return uow.InsertEntry(ctx, entry)
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Exchange failed", slog.String("owner_id", ownerID), slog.String("from", fromKey.AssetCode), slog.String("to", toKey.AssetCode))
		return nil, err
	}

	s.LogInfo(ctx, "Exchange completed",
		slog.String("entry_id", entry.EntryID),
		slog.String("from", fromKey.AssetCode),
		slog.String("to", toKey.AssetCode),
		slog.String("amount", req.Amount.String()),
		slog.String("converted", converted.String()),
		slog.String("rate", rate.String()))
	s.publish(ctx, domain.EventEntryFinalized, entry)
	return entry, nil
}

// Transfer moves an asset between two registered owners.
func (s *ledgerService) Transfer(ctx context.Context, senderID string, req dto.CreateTransferRequest) (*domain.LedgerEntry, error) {
	fromKey, err := domain.NewAccountKey(senderID, req.Asset)
	if err != nil {
		return nil, err
	}
	receiverID := strings.TrimSpace(req.ReceiverID)
	if receiverID == "" || receiverID == fromKey.OwnerID {
		return nil, fmt.Errorf("%w: receiver must be another owner", apperrors.ErrInvalidRecipient)
	}
	toKey := domain.AccountKey{OwnerID: receiverID, AssetCode: fromKey.AssetCode}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.validateScale(req.Amount); err != nil {
		return nil, err
	}
	if _, err := s.ownerRepo.FindOwnerByID(ctx, receiverID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: owner %s is not registered", apperrors.ErrInvalidRecipient, receiverID)
		}
		s.LogError(ctx, err, "Failed to look up transfer receiver", slog.String("receiver_id", receiverID))
		return nil, err
	}

	now := s.Now()
	amount := domain.AssetAmount{AssetCode: fromKey.AssetCode, Amount: req.Amount}
	entry := &domain.LedgerEntry{
		EntryID:       s.newID(),
		Type:          domain.EntryTypeTransfer,
		Status:        domain.EntryStatusCompleted,
		DebitAccount:  &fromKey,
		CreditAccount: &toKey,
		Source:        amount,
		Destination:   amount,
		Payload:       req.Payload,
		CreatedAt:     now,
		FinalizedAt:   &now,
	}

	err = s.runInTx(ctx, "transfer", func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		if err := s.balances.ApplyPostings(ctx, uow, entry); err != nil {
			return err
		}
		return uow.InsertEntry(ctx, entry)
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Transfer failed", slog.String("sender_id", fromKey.OwnerID), slog.String("receiver_id", receiverID))
		return nil, err
	}

	s.LogInfo(ctx, "Transfer completed", slog.String("entry_id", entry.EntryID), slog.String("receiver_id", receiverID), slog.String("amount", req.Amount.String()))
	s.publish(ctx, domain.EventEntryFinalized, entry)
	return entry, nil
}

// Reverse appends a compensating entry for a completed entry. The original is never edited.
// A second reversal of the same entry returns the existing reversal with ErrAlreadyProcessed.
func (s *ledgerService) Reverse(ctx context.Context, entryID string, req dto.ReverseEntryRequest, actorID string) (*domain.LedgerEntry, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return nil, apperrors.NewValidationError("entry id is required")
	}

	var reversal *domain.LedgerEntry
	err := s.runInTx(ctx, "reverse", func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		original, err := uow.FindEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		existing, err := uow.FindReversalOf(ctx, entryID)
		if err == nil {
			reversal = existing
			return fmt.Errorf("%w: entry %s already reversed by %s", apperrors.ErrAlreadyProcessed, entryID, existing.EntryID)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		rev, err := original.Reversal(s.newID(), req.Payload, s.Now())
		if err != nil {
			return err
		}
		if err := s.balances.ApplyPostings(ctx, uow, rev); err != nil {
			return err
		}
		if err := uow.InsertEntry(ctx, rev); err != nil {
			return err
		}
		reversal = rev
		return nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Reversal not applied", slog.String("entry_id", entryID), slog.String("actor_id", actorID))
		if apperrors.IsBenign(err) {
			return reversal, err
		}
		return nil, err
	}

	s.LogInfo(ctx, "Entry reversed", slog.String("entry_id", entryID), slog.String("reversal_id", reversal.EntryID), slog.String("actor_id", actorID), slog.String("reason", req.Reason))
	s.publish(ctx, domain.EventEntryFinalized, reversal)
	return reversal, nil
}

// GetEntry retrieves one entry.
func (s *ledgerService) GetEntry(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, apperrors.NewValidationError("entry id is required")
	}
	entry, err := s.ledgerRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get entry", slog.String("entry_id", entryID))
		}
		return nil, err
	}
	return entry, nil
}

// ListEntriesByOwner returns one page of entries touching the owner, newest first.
func (s *ledgerService) ListEntriesByOwner(ctx context.Context, ownerID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.NewValidationError("owner id is required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	entries, next, err := s.ledgerRepo.ListEntriesByOwner(ctx, ownerID, limit, params.NextToken)
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to list entries", slog.String("owner_id", ownerID))
		return nil, err
	}
	return &dto.ListEntriesResponse{Entries: dto.ToLedgerEntryResponses(entries), NextToken: next}, nil
}

// GetBalances returns every account the owner holds.
func (s *ledgerService) GetBalances(ctx context.Context, ownerID string) ([]domain.Account, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.NewValidationError("owner id is required")
	}
	accounts, err := s.ledgerRepo.FindAccountsByOwner(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to get balances", slog.String("owner_id", ownerID))
		return nil, err
	}
	return accounts, nil
}

// AuditAccount recomputes the account from its entries: the stored total must equal the
// sum of postings, and reserved must equal the sum of pending withdrawals.
func (s *ledgerService) AuditAccount(ctx context.Context, ownerID, assetCode string) (*dto.AccountAudit, error) {
	key, err := domain.NewAccountKey(ownerID, assetCode)
	if err != nil {
		return nil, err
	}
	account, err := s.ledgerRepo.FindAccount(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load account for audit", slog.String("account", key.String()))
		}
		return nil, err
	}
	entries, err := s.ledgerRepo.ListEntriesByAccount(ctx, key)
	if err != nil {
		s.LogError(ctx, err, "Failed to load entries for audit", slog.String("account", key.String()))
		return nil, err
	}

	computed := decimal.Zero
	pending := decimal.Zero
	for i := range entries {
		e := &entries[i]
		for _, p := range e.Postings() {
			if p.Key == key {
				computed = computed.Add(p.Amount)
			}
		}
		if e.Type == domain.EntryTypeWithdrawal && e.Status == domain.EntryStatusPending && e.DebitAccount != nil && *e.DebitAccount == key {
			pending = pending.Add(e.Source.Amount)
		}
	}

	audit := &dto.AccountAudit{
		OwnerID:         key.OwnerID,
		AssetCode:       key.AssetCode,
		StoredTotal:     account.Total(),
		ComputedTotal:   computed,
		StoredReserved:  account.Reserved,
		PendingReserved: pending,
		EntriesScanned:  len(entries),
	}
	audit.Balanced = audit.StoredTotal.Equal(computed) && audit.StoredReserved.Equal(pending)
	if !audit.Balanced {
		s.GetLogger(ctx).Warn("Account audit mismatch",
			slog.String("account", key.String()),
			slog.String("stored_total", audit.StoredTotal.String()),
			slog.String("computed_total", computed.String()),
			slog.String("stored_reserved", audit.StoredReserved.String()),
			slog.String("pending_reserved", pending.String()))
	}
	return audit, nil
}

// RegisterOwner adds ownerID to the registry. Registering twice is not an error.
func (s *ledgerService) RegisterOwner(ctx context.Context, ownerID string) (*domain.Owner, bool, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, false, apperrors.NewValidationError("owner id is required")
	}
	owner := domain.Owner{OwnerID: ownerID, CreatedAt: s.Now()}
	err := s.ownerRepo.SaveOwner(ctx, owner)
	if err == nil {
		s.LogInfo(ctx, "Owner registered", slog.String("owner_id", ownerID))
		return &owner, true, nil
	}
	if !errors.Is(err, apperrors.ErrDuplicate) {
		s.LogError(ctx, err, "Failed to register owner", slog.String("owner_id", ownerID))
		return nil, false, err
	}
	existing, err := s.ownerRepo.FindOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
