package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(owner, asset string) domain.AccountKey {
	return domain.AccountKey{OwnerID: owner, AssetCode: asset}
}

func pendingDeposit(id, owner string, at time.Time) *domain.LedgerEntry {
	k := key(owner, "USD")
	return &domain.LedgerEntry{
		EntryID:           id,
		Type:              domain.EntryTypeDeposit,
		Status:            domain.EntryStatusPending,
		CreditAccount:     &k,
		Source:            domain.AssetAmount{AssetCode: "USD", Amount: decimal.NewFromInt(10)},
		Destination:       domain.AssetAmount{AssetCode: "USD", Amount: decimal.NewFromInt(10)},
		GatewayName:       "paygate",
		ExternalReference: "ref-" + id,
		CreatedAt:         at,
	}
}

func TestKeyedLocker_BusyAfterWait(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "a", time.Second))
	err := l.Acquire(ctx, "a", 20*time.Millisecond)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	require.NoError(t, l.Acquire(ctx, "b", time.Second))
	l.Release("a")
	l.Release("b")
	assert.Equal(t, 0, l.size())
}

func TestKeyedLocker_HandsOverToWaiter(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, "a", time.Second))

	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx, "a", time.Second) }()

	time.Sleep(10 * time.Millisecond)
	l.Release("a")
	require.NoError(t, <-done)
	l.Release("a")
	assert.Equal(t, 0, l.size())
}

func TestKeyedLocker_ContextCancelled(t *testing.T) {
	l := NewKeyedLocker()
	require.NoError(t, l.Acquire(context.Background(), "a", time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx, "a", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLedgerStore_RollbackOnError(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		accs, err := uow.LockAccounts(ctx, []domain.AccountKey{key("alice", "USD")})
		if err != nil {
			return err
		}
		acc := accs[key("alice", "USD")]
		if err := acc.Credit(decimal.NewFromInt(5), time.Now()); err != nil {
			return err
		}
		if err := uow.SaveAccount(ctx, acc); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.FindAccount(ctx, key("alice", "USD"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLedgerStore_CommitAccountAndEntry(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	now := time.Now().UTC()

	err := s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		accs, err := uow.LockAccounts(ctx, []domain.AccountKey{key("alice", "USD")})
		if err != nil {
			return err
		}
		acc := accs[key("alice", "USD")]
		if err := acc.Credit(decimal.NewFromInt(5), now); err != nil {
			return err
		}
		if err := uow.SaveAccount(ctx, acc); err != nil {
			return err
		}
		return uow.InsertEntry(ctx, pendingDeposit("e1", "alice", now))
	})
	require.NoError(t, err)

	acc, err := s.FindAccount(ctx, key("alice", "USD"))
	require.NoError(t, err)
	assert.True(t, acc.Available.Equal(decimal.NewFromInt(5)))

	e, err := s.FindEntryByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusPending, e.Status)
	assert.Equal(t, 0, s.locks.size())
}

func TestLedgerStore_SaveAccountRequiresLock(t *testing.T) {
	s := NewLedgerStore()
	err := s.RunInTx(context.Background(), func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		return uow.SaveAccount(ctx, domain.NewAccount(key("bob", "USD"), time.Now()))
	})
	assert.Error(t, err)
}

func TestLedgerStore_DuplicateSettlementRef(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	ref := domain.ExternalSettlementRef{GatewayName: "paygate", ExternalReference: "abc", EntryID: "e1"}

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		if err := uow.InsertEntry(ctx, pendingDeposit("e1", "alice", time.Now())); err != nil {
			return err
		}
		return uow.InsertSettlementRef(ctx, ref)
	}))

	err := s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		ref.EntryID = "e2"
		return uow.InsertSettlementRef(ctx, ref)
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateReference)

	got, err := s.FindSettlementRefByEntryID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ExternalReference)
}

func TestLedgerStore_ReversalIsUnique(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	now := time.Now().UTC()
	insert := func(id string) error {
		return s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
			e := pendingDeposit(id, "alice", now)
			e.ReversesEntryID = "orig"
			return uow.InsertEntry(ctx, e)
		})
	}
	require.NoError(t, insert("r1"))
	assert.ErrorIs(t, insert("r2"), apperrors.ErrAlreadyProcessed)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		rev, err := uow.FindReversalOf(ctx, "orig")
		if err != nil {
			return err
		}
		assert.Equal(t, "r1", rev.EntryID)
		return nil
	}))
}

func TestLedgerStore_EntryLockBlocksSecondWriter(t *testing.T) {
	s := NewLedgerStore(WithLockWait(20 * time.Millisecond))
	ctx := context.Background()
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		return uow.InsertEntry(ctx, pendingDeposit("e1", "alice", time.Now()))
	}))

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
			if _, err := uow.FindEntryForUpdate(ctx, "e1"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	err := s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		_, err := uow.FindEntryForUpdate(ctx, "e1")
		return err
	})
	close(release)
	wg.Wait()
	assert.ErrorIs(t, err, apperrors.ErrBusy)
}

func TestLedgerStore_ListEntriesByOwnerPages(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"e1", "e2", "e3", "e4", "e5"}
	for i, id := range ids {
		e := pendingDeposit(id, "alice", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
			return uow.InsertEntry(ctx, e)
		}))
	}
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
		return uow.InsertEntry(ctx, pendingDeposit("other", "bob", base))
	}))

	page1, next, err := s.ListEntriesByOwner(ctx, "alice", 2, nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "e5", page1[0].EntryID)
	assert.Equal(t, "e4", page1[1].EntryID)

	page2, next, err := s.ListEntriesByOwner(ctx, "alice", 2, next)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "e3", page2[0].EntryID)

	page3, next, err := s.ListEntriesByOwner(ctx, "alice", 2, next)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, page3, 1)
	assert.Equal(t, "e1", page3[0].EntryID)

	bad := "%%%"
	_, _, err = s.ListEntriesByOwner(ctx, "alice", 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLedgerStore_ListPendingSettlements(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "older", "fresh"} {
		at := base.Add(-time.Duration(i) * time.Hour)
		if id == "fresh" {
			at = base.Add(time.Hour)
		}
		e := pendingDeposit(id, "alice", at)
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error {
			if err := uow.InsertEntry(ctx, e); err != nil {
				return err
			}
			return uow.InsertSettlementRef(ctx, domain.ExternalSettlementRef{
				GatewayName: e.GatewayName, ExternalReference: e.ExternalReference, EntryID: e.EntryID, CreatedAt: at,
			})
		}))
	}

	pending, err := s.ListPendingSettlements(ctx, base.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "older", pending[0].Entry.EntryID)
	assert.Equal(t, "old", pending[1].Entry.EntryID)

	limited, err := s.ListPendingSettlements(ctx, base.Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOwnerStore(t *testing.T) {
	s := NewOwnerStore()
	ctx := context.Background()
	require.NoError(t, s.SaveOwner(ctx, domain.Owner{OwnerID: "alice"}))
	assert.ErrorIs(t, s.SaveOwner(ctx, domain.Owner{OwnerID: "alice"}), apperrors.ErrDuplicate)

	o, err := s.FindOwnerByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", o.OwnerID)

	_, err = s.FindOwnerByID(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRateStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewRateStore(func() time.Time { return now })
	ctx := context.Background()
	pair := domain.CurrencyPair{Base: "FLR", Quote: "USD"}

	require.NoError(t, s.SaveQuote(ctx, domain.RateQuote{Base: "FLR", Quote: "USD", Rate: decimal.RequireFromString("0.25"), FetchedAt: now}, time.Minute))
	q, err := s.GetQuote(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, "0.25", q.Rate.String())

	now = now.Add(2 * time.Minute)
	_, err = s.GetQuote(ctx, pair)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
