package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// BalanceAccessor is the only code that mutates account balances. Every method runs
// inside a unit of work; the account is locked through it before being touched.
type BalanceAccessor struct {
	now func() time.Time
}

// NewBalanceAccessor creates a BalanceAccessor. A nil clock uses UTC wall time.
func NewBalanceAccessor(now func() time.Time) *BalanceAccessor {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BalanceAccessor{now: now}
}

type accountMutation func(acc *domain.Account, amount decimal.Decimal, now time.Time) error

func (b *BalanceAccessor) apply(ctx context.Context, uow portsrepo.LedgerUnitOfWork, key domain.AccountKey, amount decimal.Decimal, op string, mutate accountMutation) error {
	locked, err := uow.LockAccounts(ctx, []domain.AccountKey{key})
	if err != nil {
		return err
	}
	acc, ok := locked[key]
	if !ok {
		return fmt.Errorf("%s: account %s was not returned by lock", op, key)
	}
	if err := mutate(acc, amount, b.now()); err != nil {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return uow.SaveAccount(ctx, acc)
}

// Reserve moves amount from available to reserved.
func (b *BalanceAccessor) Reserve(ctx context.Context, uow portsrepo.LedgerUnitOfWork, key domain.AccountKey, amount decimal.Decimal) error {
	return b.apply(ctx, uow, key, amount, "reserve", (*domain.Account).Reserve)
}

// CommitReserved permanently removes reserved funds.
func (b *BalanceAccessor) CommitReserved(ctx context.Context, uow portsrepo.LedgerUnitOfWork, key domain.AccountKey, amount decimal.Decimal) error {
	return b.apply(ctx, uow, key, amount, "commit reserved", (*domain.Account).CommitReserved)
}

// ReleaseReserved returns reserved funds to available.
func (b *BalanceAccessor) ReleaseReserved(ctx context.Context, uow portsrepo.LedgerUnitOfWork, key domain.AccountKey, amount decimal.Decimal) error {
	return b.apply(ctx, uow, key, amount, "release reserved", (*domain.Account).ReleaseReserved)
}

// Credit increases available.
func (b *BalanceAccessor) Credit(ctx context.Context, uow portsrepo.LedgerUnitOfWork, key domain.AccountKey, amount decimal.Decimal) error {
	return b.apply(ctx, uow, key, amount, "credit", (*domain.Account).Credit)
}

// Debit removes amount from available immediately, as a reserve committed in the same unit.
func (b *BalanceAccessor) Debit(ctx context.Context, uow portsrepo.LedgerUnitOfWork, key domain.AccountKey, amount decimal.Decimal) error {
	if err := b.Reserve(ctx, uow, key, amount); err != nil {
		return err
	}
	return b.CommitReserved(ctx, uow, key, amount)
}

// ApplyPostings debits the entry's debit account by the source amount and credits its
// credit account by the destination amount. Used for internal movements and reversals.
func (b *BalanceAccessor) ApplyPostings(ctx context.Context, uow portsrepo.LedgerUnitOfWork, entry *domain.LedgerEntry) error {
	var keys []domain.AccountKey
	if entry.DebitAccount != nil {
		keys = append(keys, *entry.DebitAccount)
	}
	if entry.CreditAccount != nil {
		keys = append(keys, *entry.CreditAccount)
	}
	// Lock both legs up front in key order.
	if _, err := uow.LockAccounts(ctx, domain.SortedUniqueKeys(keys...)); err != nil {
		return err
	}
	if entry.DebitAccount != nil {
		if err := b.Debit(ctx, uow, *entry.DebitAccount, entry.Source.Amount); err != nil {
			return err
		}
	}
	if entry.CreditAccount != nil {
		if err := b.Credit(ctx, uow, *entry.CreditAccount, entry.Destination.Amount); err != nil {
			return err
		}
	}
	return nil
}
