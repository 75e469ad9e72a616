package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/exchange_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/core/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

func TestReconciliationPoller_RunOnce(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := memory.NewLedgerStore(memory.WithClock(clock.Now))
	gw := &MockGateway{name: gatewayName}
	gateways := registry{gatewayName: gw}
	recon := services.NewReconciliationService(store, gateways, services.WithReconciliationClock(clock.Now))
	ledger := services.NewLedgerService(store, memory.NewOwnerStore(),
		services.WithSettlementResolver(recon),
		services.WithGatewayRegistry(gateways),
		services.WithDefaultGateway(gatewayName),
		services.WithLedgerClock(clock.Now),
	)

	for _, ref := range []string{"confirmed", "rejected", "slow", "stuck", "flaky"} {
		_, err := ledger.Deposit(ctx, "alice", dto.CreateDepositRequest{Asset: "USD", Amount: dec("10"), GatewayReference: ref})
		require.NoError(t, err)
	}
	clock.Advance(10 * time.Minute)
	_, err := ledger.Deposit(ctx, "alice", dto.CreateDepositRequest{Asset: "USD", Amount: dec("10"), GatewayReference: "recent"})
	require.NoError(t, err)
	clock.Advance(time.Minute)

	gw.On("VerifyByReference", mock.Anything, "confirmed").Return(&domain.VerificationResult{Reference: "confirmed", Status: "success", Amount: decPtr("10"), Raw: json.RawMessage(`{"status":"success"}`)}, nil)
	gw.On("VerifyByReference", mock.Anything, "rejected").Return(&domain.VerificationResult{Reference: "rejected", Status: "declined"}, nil)
	gw.On("VerifyByReference", mock.Anything, "slow").Return(&domain.VerificationResult{Reference: "slow", Status: "processing"}, nil)
	gw.On("VerifyByReference", mock.Anything, "stuck").Return(&domain.VerificationResult{Reference: "stuck", Status: "pending"}, nil)
	gw.On("VerifyByReference", mock.Anything, "flaky").Return(nil, errors.New("timeout"))

	poller := services.NewReconciliationPoller(store, recon, gateways,
		services.WithPendingAfter(5*time.Minute),
		services.WithPollerClock(clock.Now),
	)
	stats, err := poller.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.PollStats{Scanned: 5, Resolved: 2, StillPending: 2, Errors: 1}, stats)
	gw.AssertNotCalled(t, "VerifyByReference", mock.Anything, "recent")

	acc, err := store.FindAccount(ctx, domain.AccountKey{OwnerID: "alice", AssetCode: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "10", acc.Available.String())

	// With expiry on, settlements the gateway still reports pending are failed.
	expiring := services.NewReconciliationPoller(store, recon, gateways,
		services.WithPendingAfter(5*time.Minute),
		services.WithExpireAfter(10*time.Minute),
		services.WithPollerClock(clock.Now),
	)
	stats, err = expiring.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Expired)
	assert.Equal(t, 1, stats.Errors)

	pending, err := store.ListPendingSettlements(ctx, clock.Now(), 10)
	require.NoError(t, err)
	refs := make([]string, 0, len(pending))
	for _, p := range pending {
		refs = append(refs, p.Ref.ExternalReference)
	}
	assert.ElementsMatch(t, []string{"flaky", "recent"}, refs)

	entry, err := store.FindEntryByID(ctx, entryIDForReference(t, store, "stuck"))
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusFailed, entry.Status)
	assert.Equal(t, domain.ReasonPollTimeout, entry.ResolutionReason)
}

func entryIDForReference(t *testing.T, store *memory.LedgerStore, reference string) string {
	t.Helper()
	entries, _, err := store.ListEntriesByOwner(context.Background(), "alice", 100, nil)
	require.NoError(t, err)
	for _, e := range entries {
		if e.ExternalReference == reference {
			return e.EntryID
		}
	}
	t.Fatalf("no entry for reference %s", reference)
	return ""
}
