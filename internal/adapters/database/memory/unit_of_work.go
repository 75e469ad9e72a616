package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
)

type unitOfWork struct {
	store *LedgerStore

	held      map[string]struct{}
	heldOrder []string

	accounts   map[domain.AccountKey]*domain.Account
	dirty      map[domain.AccountKey]*domain.Account
	newEntries []*domain.LedgerEntry
	finalized  map[string]*domain.LedgerEntry
	newRefs    []domain.ExternalSettlementRef
}

var _ portsrepo.LedgerUnitOfWork = (*unitOfWork)(nil)

func newUnitOfWork(s *LedgerStore) *unitOfWork {
	return &unitOfWork{
		store:     s,
		held:      make(map[string]struct{}),
		accounts:  make(map[domain.AccountKey]*domain.Account),
		dirty:     make(map[domain.AccountKey]*domain.Account),
		finalized: make(map[string]*domain.LedgerEntry),
	}
}

// acquire is a no-op when the unit already holds key.
func (u *unitOfWork) acquire(ctx context.Context, key string) error {
	if _, ok := u.held[key]; ok {
		return nil
	}
	if err := u.store.locks.Acquire(ctx, key, u.store.lockWait); err != nil {
		return err
	}
	u.held[key] = struct{}{}
	u.heldOrder = append(u.heldOrder, key)
	return nil
}

func (u *unitOfWork) releaseAll() {
	for i := len(u.heldOrder) - 1; i >= 0; i-- {
		u.store.locks.Release(u.heldOrder[i])
	}
	u.held = nil
	u.heldOrder = nil
}

func (u *unitOfWork) LockAccounts(ctx context.Context, keys []domain.AccountKey) (map[domain.AccountKey]*domain.Account, error) {
	out := make(map[domain.AccountKey]*domain.Account, len(keys))
	for _, key := range domain.SortedUniqueKeys(keys...) {
		if err := u.acquire(ctx, accountLockKey(key)); err != nil {
			return nil, err
		}
		acc, ok := u.accounts[key]
		if !ok {
			u.store.mu.RLock()
			committed, exists := u.store.accounts[key]
			u.store.mu.RUnlock()
			if exists {
				acc = committed.Clone()
			} else {
				acc = domain.NewAccount(key, u.store.now())
			}
			u.accounts[key] = acc
		}
		out[key] = acc
	}
	return out, nil
}

func (u *unitOfWork) SaveAccount(_ context.Context, account *domain.Account) error {
	if _, ok := u.held[accountLockKey(account.Key)]; !ok {
		return fmt.Errorf("account %s saved without being locked", account.Key)
	}
	if account.Available.IsNegative() || account.Reserved.IsNegative() {
		return fmt.Errorf("%w: account %s would go negative", apperrors.ErrInsufficientFunds, account.Key)
	}
	u.accounts[account.Key] = account
	u.dirty[account.Key] = account
	return nil
}

func (u *unitOfWork) InsertEntry(_ context.Context, entry *domain.LedgerEntry) error {
	u.store.mu.RLock()
	_, exists := u.store.entries[entry.EntryID]
	_, reversed := u.store.reversals[entry.ReversesEntryID]
	u.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: entry %s", apperrors.ErrDuplicate, entry.EntryID)
	}
	if entry.ReversesEntryID != "" && reversed {
		return fmt.Errorf("%w: entry %s already reversed", apperrors.ErrAlreadyProcessed, entry.ReversesEntryID)
	}
	for _, staged := range u.newEntries {
		if staged.EntryID == entry.EntryID {
			return fmt.Errorf("%w: entry %s", apperrors.ErrDuplicate, entry.EntryID)
		}
	}
	u.newEntries = append(u.newEntries, entry.Clone())
	return nil
}

func (u *unitOfWork) stagedEntry(entryID string) (*domain.LedgerEntry, bool) {
	if e, ok := u.finalized[entryID]; ok {
		return e, true
	}
	for _, e := range u.newEntries {
		if e.EntryID == entryID {
			return e, true
		}
	}
	return nil, false
}

func (u *unitOfWork) FinalizeEntry(_ context.Context, entry *domain.LedgerEntry) error {
	if _, ok := u.held[entryLockKey(entry.EntryID)]; !ok {
		return fmt.Errorf("entry %s finalized without being locked", entry.EntryID)
	}
	u.finalized[entry.EntryID] = entry.Clone()
	return nil
}

func (u *unitOfWork) FindEntryForUpdate(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	if err := u.acquire(ctx, entryLockKey(entryID)); err != nil {
		return nil, err
	}
	if e, ok := u.stagedEntry(entryID); ok {
		return e.Clone(), nil
	}
	u.store.mu.RLock()
	e, ok := u.store.entries[entryID]
	u.store.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("entry %s not found", entryID))
	}
	return e.Clone(), nil
}

func (u *unitOfWork) InsertSettlementRef(ctx context.Context, ref domain.ExternalSettlementRef) error {
	key := ref.Key()
	if err := u.acquire(ctx, refLockKey(key)); err != nil {
		return err
	}
	u.store.mu.RLock()
	_, exists := u.store.refs[key]
	u.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicateReference, key)
	}
	for _, staged := range u.newRefs {
		if staged.Key() == key {
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateReference, key)
		}
	}
	u.newRefs = append(u.newRefs, ref)
	return nil
}

func (u *unitOfWork) FindSettlementRefForUpdate(ctx context.Context, key domain.RefKey) (*domain.ExternalSettlementRef, error) {
	if err := u.acquire(ctx, refLockKey(key)); err != nil {
		return nil, err
	}
	for _, staged := range u.newRefs {
		if staged.Key() == key {
			ref := staged
			return &ref, nil
		}
	}
	u.store.mu.RLock()
	ref, ok := u.store.refs[key]
	u.store.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("settlement reference %s not found", key))
	}
	out := *ref
	return &out, nil
}

func (u *unitOfWork) FindReversalOf(_ context.Context, entryID string) (*domain.LedgerEntry, error) {
	for _, e := range u.newEntries {
		if e.ReversesEntryID == entryID {
			return e.Clone(), nil
		}
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	if id, ok := u.store.reversals[entryID]; ok {
		return u.store.entries[id].Clone(), nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("no reversal of entry %s", entryID))
}
