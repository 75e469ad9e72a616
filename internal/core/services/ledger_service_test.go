package services_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/exchange_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/exchange_ledger/internal/core/ports/services"
	"github.com/SscSPs/exchange_ledger/internal/core/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

const gatewayName = "paygate"

type LedgerServiceTestSuite struct {
	suite.Suite
	clock      *testClock
	store      *memory.LedgerStore
	owners     *memory.OwnerStore
	gateway    *MockGateway
	rateSource *MockRateSource
	publisher  *recordingPublisher
	recon      portssvc.ReconciliationSvcFacade
	service    portssvc.LedgerSvcFacade
	refCounter int
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.clock = newTestClock()
	suite.store = memory.NewLedgerStore(memory.WithLockWait(time.Second), memory.WithClock(suite.clock.Now))
	suite.owners = memory.NewOwnerStore()
	suite.gateway = &MockGateway{name: gatewayName}
	suite.rateSource = new(MockRateSource)
	suite.publisher = &recordingPublisher{}
	suite.refCounter = 0
	suite.build(suite.store)
}

func (suite *LedgerServiceTestSuite) build(store portsrepo.LedgerRepositoryFacade) {
	gateways := registry{gatewayName: suite.gateway}
	rates := services.NewRateCache(memory.NewRateStore(suite.clock.Now), suite.rateSource, services.WithRateClock(suite.clock.Now))
	suite.recon = services.NewReconciliationService(store, gateways,
		services.WithReconciliationPublisher(suite.publisher),
		services.WithReconciliationClock(suite.clock.Now),
	)
	suite.service = services.NewLedgerService(store, suite.owners,
		services.WithRateService(rates),
		services.WithSettlementResolver(suite.recon),
		services.WithGatewayRegistry(gateways),
		services.WithEventPublisher(suite.publisher),
		services.WithDefaultGateway(gatewayName),
		services.WithLedgerClock(suite.clock.Now),
	)
}

// fund deposits amount and confirms it through the resolver.
func (suite *LedgerServiceTestSuite) fund(owner, asset, amount string) {
	suite.refCounter++
	ref := fmt.Sprintf("fund-%d", suite.refCounter)
	ctx := context.Background()
	_, err := suite.service.Deposit(ctx, owner, dto.CreateDepositRequest{Asset: asset, Amount: dec(amount), GatewayReference: ref})
	suite.Require().NoError(err)
	_, err = suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: ref, Outcome: domain.OutcomeSuccess})
	suite.Require().NoError(err)
}

func (suite *LedgerServiceTestSuite) balance(owner, asset string) (available, reserved decimal.Decimal) {
	acc, err := suite.store.FindAccount(context.Background(), domain.AccountKey{OwnerID: owner, AssetCode: asset})
	if errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, decimal.Zero
	}
	suite.Require().NoError(err)
	return acc.Available, acc.Reserved
}

func (suite *LedgerServiceTestSuite) assertBalance(owner, asset, available, reserved string) {
	a, r := suite.balance(owner, asset)
	suite.True(a.Equal(dec(available)), "%s/%s available: want %s got %s", owner, asset, available, a)
	suite.True(r.Equal(dec(reserved)), "%s/%s reserved: want %s got %s", owner, asset, reserved, r)
}

func (suite *LedgerServiceTestSuite) assertAudited(owner, asset string) {
	audit, err := suite.service.AuditAccount(context.Background(), owner, asset)
	suite.Require().NoError(err)
	suite.True(audit.Balanced, "audit of %s/%s: %+v", owner, asset, audit)
}

func (suite *LedgerServiceTestSuite) registerOwner(id string) {
	_, _, err := suite.service.RegisterOwner(context.Background(), id)
	suite.Require().NoError(err)
}

// --- Deposits ---

func (suite *LedgerServiceTestSuite) TestDeposit_PendingUntilResolved() {
	ctx := context.Background()

	entry, err := suite.service.Deposit(ctx, "alice", dto.CreateDepositRequest{Asset: "usd", Amount: dec("100"), GatewayReference: "abc"})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusPending, entry.Status)
	suite.Equal(gatewayName, entry.GatewayName)
	suite.Equal("USD", entry.CreditAccount.AssetCode)
	suite.assertBalance("alice", "USD", "0", "0")

	resolved, err := suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: "abc", Outcome: domain.OutcomeSuccess})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusCompleted, resolved.Status)
	suite.Equal(domain.ReasonGatewayConfirmed, resolved.ResolutionReason)
	suite.assertBalance("alice", "USD", "100", "0")

	again, err := suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: "abc", Outcome: domain.OutcomeSuccess})
	suite.ErrorIs(err, apperrors.ErrAlreadyProcessed)
	suite.Require().NotNil(again)
	suite.Equal(entry.EntryID, again.EntryID)
	suite.assertBalance("alice", "USD", "100", "0")

	_, err = suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: "abc", Outcome: domain.OutcomeFailure})
	suite.ErrorIs(err, apperrors.ErrAlreadyProcessed)
	suite.assertBalance("alice", "USD", "100", "0")

	suite.Equal([]domain.EventType{domain.EventEntryRecorded, domain.EventEntryFinalized}, suite.publisher.types())
	suite.assertAudited("alice", "USD")
}

func (suite *LedgerServiceTestSuite) TestDeposit_DuplicateReference() {
	ctx := context.Background()
	req := dto.CreateDepositRequest{Asset: "USD", Amount: dec("10"), GatewayReference: "dup"}

	_, err := suite.service.Deposit(ctx, "alice", req)
	suite.Require().NoError(err)
	_, err = suite.service.Deposit(ctx, "bob", req)
	suite.ErrorIs(err, apperrors.ErrDuplicateReference)
}

func (suite *LedgerServiceTestSuite) TestDeposit_Validation() {
	ctx := context.Background()
	cases := []dto.CreateDepositRequest{
		{Asset: "USD", Amount: dec("0"), GatewayReference: "a"},
		{Asset: "USD", Amount: dec("-1"), GatewayReference: "b"},
		{Asset: "USD", Amount: dec("1.123456789"), GatewayReference: "c"},
		{Asset: "USD", Amount: dec("1"), GatewayReference: " "},
		{Asset: "USD", Amount: dec("1"), GatewayReference: "d", GatewayName: "nowhere"},
		{Asset: "", Amount: dec("1"), GatewayReference: "e"},
	}
	for _, req := range cases {
		_, err := suite.service.Deposit(ctx, "alice", req)
		suite.ErrorIs(err, apperrors.ErrValidation, "request %+v", req)
	}
	_, err := suite.service.Deposit(ctx, "", dto.CreateDepositRequest{Asset: "USD", Amount: dec("1"), GatewayReference: "f"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- Exchanges ---

func (suite *LedgerServiceTestSuite) TestExchange_ConvertsAtCachedRate() {
	ctx := context.Background()
	suite.fund("alice", "FLR", "1000")
	suite.rateSource.On("FetchRate", mock.Anything, domain.CurrencyPair{Base: "FLR", Quote: "USD"}).Return(quote("FLR", "USD", "0.25"), nil).Once()

	entry, err := suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "USD", Amount: dec("500")})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusCompleted, entry.Status)
	suite.True(entry.Destination.Amount.Equal(dec("125")))
	suite.Require().NotNil(entry.Rate)
	suite.True(entry.Rate.Equal(dec("0.25")))
	suite.assertBalance("alice", "FLR", "500", "0")
	suite.assertBalance("alice", "USD", "125", "0")

	// Second exchange within max age is served from the cache.
	_, err = suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "USD", Amount: dec("100")})
	suite.Require().NoError(err)
	suite.assertBalance("alice", "USD", "150", "0")

	suite.rateSource.AssertExpectations(suite.T())
	suite.assertAudited("alice", "FLR")
	suite.assertAudited("alice", "USD")
}

func (suite *LedgerServiceTestSuite) TestExchange_InsufficientFundsLeavesBalances() {
	ctx := context.Background()
	suite.fund("alice", "FLR", "100")
	suite.rateSource.On("FetchRate", mock.Anything, mock.Anything).Return(quote("FLR", "USD", "0.25"), nil)

	_, err := suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "USD", Amount: dec("500")})
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.assertBalance("alice", "FLR", "100", "0")
	suite.assertBalance("alice", "USD", "0", "0")
}

func (suite *LedgerServiceTestSuite) TestExchange_RateUnavailable() {
	ctx := context.Background()
	suite.fund("alice", "FLR", "100")
	suite.rateSource.On("FetchRate", mock.Anything, mock.Anything).Return(domain.RateQuote{}, errors.New("upstream down"))

	_, err := suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "USD", Amount: dec("10")})
	suite.ErrorIs(err, apperrors.ErrRateUnavailable)
	suite.assertBalance("alice", "FLR", "100", "0")
}

func (suite *LedgerServiceTestSuite) TestExchange_RejectsSameAssetAndDustResult() {
	ctx := context.Background()
	suite.fund("alice", "FLR", "100")

	_, err := suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "flr", Amount: dec("10")})
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.rateSource.On("FetchRate", mock.Anything, mock.Anything).Return(quote("FLR", "BTC", "0.000000001"), nil)
	_, err = suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "BTC", Amount: dec("1")})
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.assertBalance("alice", "FLR", "100", "0")
}

func (suite *LedgerServiceTestSuite) TestExchange_ConcurrentNeverOverdraws() {
	ctx := context.Background()
	suite.fund("alice", "FLR", "100")
	suite.rateSource.On("FetchRate", mock.Anything, mock.Anything).Return(quote("FLR", "USD", "0.25"), nil)

	// Amounts in (0, 100] with two decimals, so any single exchange may drain the account.
	rng := rand.New(rand.NewSource(7))
	amounts := make([]decimal.Decimal, 25)
	for i := range amounts {
		amounts[i] = decimal.New(rng.Int63n(10000)+1, -2)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	spent := decimal.Zero
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount decimal.Decimal) {
			defer wg.Done()
			_, err := suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "USD", Amount: amount})
			if err == nil {
				mu.Lock()
				spent = spent.Add(amount)
				mu.Unlock()
				return
			}
			suite.True(errors.Is(err, apperrors.ErrInsufficientFunds) || errors.Is(err, apperrors.ErrBusy), "unexpected error: %v", err)
		}(amount)
	}
	wg.Wait()

	suite.True(spent.LessThanOrEqual(dec("100")), "spent %s", spent)
	flr, _ := suite.balance("alice", "FLR")
	usd, _ := suite.balance("alice", "USD")
	suite.False(flr.IsNegative())
	suite.True(flr.Equal(dec("100").Sub(spent)), "FLR %s after spending %s", flr, spent)
	suite.True(usd.Equal(spent.Mul(dec("0.25"))), "USD %s after spending %s", usd, spent)
	suite.assertAudited("alice", "FLR")
}

// --- Withdrawals ---

func (suite *LedgerServiceTestSuite) TestWithdraw_ReserveThenFail() {
	ctx := context.Background()
	suite.fund("alice", "USD", "100")
	suite.gateway.On("InitiateTransfer", mock.Anything, mock.AnythingOfType("domain.TransferInstruction")).Return(nil).Once()

	entry, err := suite.service.Withdraw(ctx, "alice", dto.CreateWithdrawalRequest{Asset: "USD", Amount: dec("50"), Destination: "acct-123"})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusPending, entry.Status)
	suite.NotEmpty(entry.ExternalReference)
	suite.assertBalance("alice", "USD", "50", "50")
	suite.assertAudited("alice", "USD")

	failed, err := suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: entry.ExternalReference, Outcome: domain.OutcomeFailure})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusFailed, failed.Status)
	suite.Equal(domain.ReasonGatewayRejected, failed.ResolutionReason)
	suite.assertBalance("alice", "USD", "100", "0")
	suite.assertAudited("alice", "USD")
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestWithdraw_ReserveThenSucceed() {
	ctx := context.Background()
	suite.fund("alice", "USD", "100")
	suite.gateway.On("InitiateTransfer", mock.Anything, mock.MatchedBy(func(in domain.TransferInstruction) bool {
		return in.OwnerID == "alice" && in.Amount.Equal(dec("40")) && in.Destination == "acct-123"
	})).Return(nil).Once()

	entry, err := suite.service.Withdraw(ctx, "alice", dto.CreateWithdrawalRequest{Asset: "USD", Amount: dec("40"), Destination: "acct-123"})
	suite.Require().NoError(err)

	done, err := suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: entry.ExternalReference, Outcome: domain.OutcomeSuccess, Amount: decPtr("40")})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusCompleted, done.Status)
	suite.assertBalance("alice", "USD", "60", "0")
	suite.assertAudited("alice", "USD")
}

func (suite *LedgerServiceTestSuite) TestWithdraw_InitiationFailureReleasesReservation() {
	ctx := context.Background()
	suite.fund("alice", "USD", "100")
	suite.gateway.On("InitiateTransfer", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: status 422", apperrors.ErrTransferRejected)).Once()

	entry, err := suite.service.Withdraw(ctx, "alice", dto.CreateWithdrawalRequest{Asset: "USD", Amount: dec("50"), Destination: "acct-123"})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusFailed, entry.Status)
	suite.Equal(domain.ReasonInitiationFailed, entry.ResolutionReason)
	suite.assertBalance("alice", "USD", "100", "0")
}

func (suite *LedgerServiceTestSuite) TestWithdraw_UnknownPayoutOutcomeStaysPending() {
	suite.fund("alice", "USD", "100")
	// The payout call gets its own deadline even when the caller's context is already done.
	detached := mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline && ctx.Err() == nil
	})

	for i, initErr := range []error{context.DeadlineExceeded, errors.New("connection reset by peer")} {
		suite.gateway.On("InitiateTransfer", detached, mock.Anything).Return(initErr).Once()

		callerCtx, cancel := context.WithCancel(context.Background())
		entry, err := suite.service.Withdraw(callerCtx, "alice", dto.CreateWithdrawalRequest{Asset: "USD", Amount: dec("50"), Destination: "acct-123"})
		cancel()
		suite.Require().NoError(err)
		suite.Equal(domain.EntryStatusPending, entry.Status)
		suite.Empty(entry.ResolutionReason)
		left := []string{"50", "0"}[i]
		suite.assertBalance("alice", "USD", left, "50")

		// The gateway had accepted the payout after all.
		done, err := suite.recon.Resolve(context.Background(), dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: entry.ExternalReference, Outcome: domain.OutcomeSuccess, Amount: decPtr("50")})
		suite.Require().NoError(err)
		suite.Equal(domain.EntryStatusCompleted, done.Status)
		suite.assertBalance("alice", "USD", left, "0")
	}
	suite.assertBalance("alice", "USD", "0", "0")
	suite.assertAudited("alice", "USD")
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestWithdraw_InsufficientFunds() {
	ctx := context.Background()
	suite.fund("alice", "USD", "10")

	_, err := suite.service.Withdraw(ctx, "alice", dto.CreateWithdrawalRequest{Asset: "USD", Amount: dec("50"), Destination: "acct-123"})
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.assertBalance("alice", "USD", "10", "0")
	suite.gateway.AssertNotCalled(suite.T(), "InitiateTransfer", mock.Anything, mock.Anything)
}

// --- Transfers ---

func (suite *LedgerServiceTestSuite) TestTransfer() {
	ctx := context.Background()
	suite.fund("alice", "USD", "100")
	suite.registerOwner("bob")

	_, err := suite.service.Transfer(ctx, "alice", dto.CreateTransferRequest{ReceiverID: "carol", Asset: "USD", Amount: dec("10")})
	suite.ErrorIs(err, apperrors.ErrInvalidRecipient)
	_, err = suite.service.Transfer(ctx, "alice", dto.CreateTransferRequest{ReceiverID: "alice", Asset: "USD", Amount: dec("10")})
	suite.ErrorIs(err, apperrors.ErrInvalidRecipient)
	_, err = suite.service.Transfer(ctx, "alice", dto.CreateTransferRequest{ReceiverID: "bob", Asset: "USD", Amount: dec("1000")})
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	entry, err := suite.service.Transfer(ctx, "alice", dto.CreateTransferRequest{ReceiverID: "bob", Asset: "USD", Amount: dec("30")})
	suite.Require().NoError(err)
	suite.Equal(domain.EntryTypeTransfer, entry.Type)
	suite.assertBalance("alice", "USD", "70", "0")
	suite.assertBalance("bob", "USD", "30", "0")
	suite.assertAudited("alice", "USD")
	suite.assertAudited("bob", "USD")
}

func (suite *LedgerServiceTestSuite) TestTransfer_BusyWhenAccountHeld() {
	ctx := context.Background()
	suite.fund("alice", "USD", "100")
	suite.registerOwner("bob")

	short := memory.NewLedgerStore(memory.WithLockWait(20*time.Millisecond), memory.WithClock(suite.clock.Now))
	suite.build(short)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = short.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
			if _, err := uow.LockAccounts(ctx, []domain.AccountKey{{OwnerID: "alice", AssetCode: "USD"}}); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	_, err := suite.service.Transfer(ctx, "alice", dto.CreateTransferRequest{ReceiverID: "bob", Asset: "USD", Amount: dec("1")})
	close(release)
	suite.ErrorIs(err, apperrors.ErrBusy)
	suite.True(apperrors.IsRetryable(err))
}

// --- Reversals ---

func (suite *LedgerServiceTestSuite) TestReverse_ExchangeOnce() {
	ctx := context.Background()
	suite.fund("alice", "FLR", "500")
	suite.rateSource.On("FetchRate", mock.Anything, mock.Anything).Return(quote("FLR", "USD", "0.25"), nil)

	entry, err := suite.service.Exchange(ctx, "alice", dto.CreateExchangeRequest{FromAsset: "FLR", ToAsset: "USD", Amount: dec("500")})
	suite.Require().NoError(err)

	rev, err := suite.service.Reverse(ctx, entry.EntryID, dto.ReverseEntryRequest{Reason: "customer request"}, "admin-1")
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusReversed, rev.Status)
	suite.Equal(entry.EntryID, rev.ReversesEntryID)
	suite.assertBalance("alice", "FLR", "500", "0")
	suite.assertBalance("alice", "USD", "0", "0")

	original, err := suite.service.GetEntry(ctx, entry.EntryID)
	suite.Require().NoError(err)
	suite.Equal(domain.EntryStatusCompleted, original.Status)

	again, err := suite.service.Reverse(ctx, entry.EntryID, dto.ReverseEntryRequest{}, "admin-1")
	suite.ErrorIs(err, apperrors.ErrAlreadyProcessed)
	suite.Require().NotNil(again)
	suite.Equal(rev.EntryID, again.EntryID)
	suite.assertBalance("alice", "FLR", "500", "0")

	_, err = suite.service.Reverse(ctx, rev.EntryID, dto.ReverseEntryRequest{}, "admin-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.assertAudited("alice", "FLR")
	suite.assertAudited("alice", "USD")
}

func (suite *LedgerServiceTestSuite) TestReverse_Rejections() {
	ctx := context.Background()
	pending, err := suite.service.Deposit(ctx, "alice", dto.CreateDepositRequest{Asset: "USD", Amount: dec("10"), GatewayReference: "pending-ref"})
	suite.Require().NoError(err)

	_, err = suite.service.Reverse(ctx, pending.EntryID, dto.ReverseEntryRequest{}, "admin-1")
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.Reverse(ctx, "missing", dto.ReverseEntryRequest{}, "admin-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	// A transfer whose receiver already spent the funds cannot be reversed.
	suite.fund("alice", "USD", "50")
	suite.registerOwner("bob")
	suite.registerOwner("carol")
	tr, err := suite.service.Transfer(ctx, "alice", dto.CreateTransferRequest{ReceiverID: "bob", Asset: "USD", Amount: dec("50")})
	suite.Require().NoError(err)
	_, err = suite.service.Transfer(ctx, "bob", dto.CreateTransferRequest{ReceiverID: "carol", Asset: "USD", Amount: dec("50")})
	suite.Require().NoError(err)
	_, err = suite.service.Reverse(ctx, tr.EntryID, dto.ReverseEntryRequest{}, "admin-1")
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.assertBalance("alice", "USD", "0", "0")
}

// --- Reads ---

func (suite *LedgerServiceTestSuite) TestListEntriesAndBalances() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		suite.fund("alice", "USD", "1")
		suite.clock.Advance(time.Second)
	}
	suite.fund("alice", "EUR", "3")

	page, err := suite.service.ListEntriesByOwner(ctx, "alice", dto.ListEntriesParams{Limit: 4})
	suite.Require().NoError(err)
	suite.Len(page.Entries, 4)
	suite.Require().NotNil(page.NextToken)
	suite.Equal("EUR", page.Entries[0].SourceAsset)

	rest, err := suite.service.ListEntriesByOwner(ctx, "alice", dto.ListEntriesParams{Limit: 4, NextToken: page.NextToken})
	suite.Require().NoError(err)
	suite.Len(rest.Entries, 2)
	suite.Nil(rest.NextToken)

	accounts, err := suite.service.GetBalances(ctx, "alice")
	suite.Require().NoError(err)
	suite.Require().Len(accounts, 2)
	suite.Equal("EUR", accounts[0].Key.AssetCode)
	suite.True(accounts[1].Available.Equal(dec("5")))
}

func (suite *LedgerServiceTestSuite) TestRegisterOwner_Idempotent() {
	ctx := context.Background()
	first, created, err := suite.service.RegisterOwner(ctx, "dave")
	suite.Require().NoError(err)
	suite.True(created)

	second, created, err := suite.service.RegisterOwner(ctx, "dave")
	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(first.OwnerID, second.OwnerID)
}

// TestConservation runs a random mix of operations and checks that every asset's
// total equals what was deposited minus what was paid out, and that every account audits clean.
func (suite *LedgerServiceTestSuite) TestConservation() {
	ctx := context.Background()
	owners := []string{"alice", "bob", "carol"}
	for _, o := range owners {
		suite.registerOwner(o)
		suite.fund(o, "USD", "1000")
	}
	suite.gateway.On("InitiateTransfer", mock.Anything, mock.Anything).Return(nil)

	deposited := dec("3000")
	paidOut := decimal.Zero
	var pendingWithdrawals []*domain.LedgerEntry
	var completed []string

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		from := owners[rng.Intn(len(owners))]
		to := owners[rng.Intn(len(owners))]
		amount := decimal.NewFromInt(int64(rng.Intn(120) + 1))
		switch rng.Intn(4) {
		case 0, 1:
			e, err := suite.service.Transfer(ctx, from, dto.CreateTransferRequest{ReceiverID: to, Asset: "USD", Amount: amount})
			if err == nil {
				completed = append(completed, e.EntryID)
			}
		case 2:
			e, err := suite.service.Withdraw(ctx, from, dto.CreateWithdrawalRequest{Asset: "USD", Amount: amount, Destination: "ext"})
			if err == nil {
				pendingWithdrawals = append(pendingWithdrawals, e)
			}
		case 3:
			if len(pendingWithdrawals) == 0 {
				continue
			}
			w := pendingWithdrawals[0]
			pendingWithdrawals = pendingWithdrawals[1:]
			outcome := domain.OutcomeFailure
			if rng.Intn(2) == 0 {
				outcome = domain.OutcomeSuccess
			}
			_, err := suite.recon.Resolve(ctx, dto.ResolveSettlementRequest{GatewayName: gatewayName, ExternalReference: w.ExternalReference, Outcome: outcome})
			suite.Require().NoError(err)
			if outcome == domain.OutcomeSuccess {
				paidOut = paidOut.Add(w.Source.Amount)
			}
		}
		if len(completed) > 0 && rng.Intn(10) == 0 {
			_, _ = suite.service.Reverse(ctx, completed[rng.Intn(len(completed))], dto.ReverseEntryRequest{}, "admin")
		}
	}

	total := decimal.Zero
	for _, o := range owners {
		a, r := suite.balance(o, "USD")
		suite.False(a.IsNegative())
		suite.False(r.IsNegative())
		total = total.Add(a).Add(r)
		suite.assertAudited(o, "USD")
	}
	suite.True(total.Equal(deposited.Sub(paidOut)), "total %s, deposited %s, paid out %s", total, deposited, paidOut)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
