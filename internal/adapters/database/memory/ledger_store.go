package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/exchange_ledger/internal/utils/pagination"
)

const defaultLockWait = 2 * time.Second

// LedgerStore is an in-memory ledger store. It locks per account, per entry and
// per settlement reference; there is no store-wide lock held across a unit of work.
// Changes are staged in the unit of work and applied at commit.
type LedgerStore struct {
	locks    *KeyedLocker
	lockWait time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	accounts  map[domain.AccountKey]*domain.Account
	entries   map[string]*domain.LedgerEntry
	order     []string
	refs      map[domain.RefKey]*domain.ExternalSettlementRef
	refByID   map[string]domain.RefKey
	reversals map[string]string
}

// Option configures a LedgerStore.
type Option func(*LedgerStore)

// WithLockWait bounds how long a unit of work waits for any single lock.
func WithLockWait(d time.Duration) Option {
	return func(s *LedgerStore) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

// WithClock overrides the clock used for account timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerStore) {
		s.now = now
	}
}

// NewLedgerStore creates an empty store.
func NewLedgerStore(opts ...Option) *LedgerStore {
	s := &LedgerStore{
		locks:     NewKeyedLocker(),
		lockWait:  defaultLockWait,
		now:       func() time.Time { return time.Now().UTC() },
		accounts:  make(map[domain.AccountKey]*domain.Account),
		entries:   make(map[string]*domain.LedgerEntry),
		refs:      make(map[domain.RefKey]*domain.ExternalSettlementRef),
		refByID:   make(map[string]domain.RefKey),
		reversals: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portsrepo.LedgerRepositoryFacade = (*LedgerStore)(nil)

func accountLockKey(k domain.AccountKey) string { return "account:" + k.String() }
func entryLockKey(id string) string             { return "entry:" + id }
func refLockKey(k domain.RefKey) string         { return "ref:" + k.String() }

// RunInTx runs fn in a unit of work. Staged changes are applied only if fn succeeds.
func (s *LedgerStore) RunInTx(ctx context.Context, fn func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error) error {
	uow := newUnitOfWork(s)
	defer uow.releaseAll()

	if err := fn(ctx, uow); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(uow)
}

func (s *LedgerStore) commit(u *unitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range u.newEntries {
		if _, exists := s.entries[e.EntryID]; exists {
			return fmt.Errorf("%w: entry %s", apperrors.ErrDuplicate, e.EntryID)
		}
		if e.ReversesEntryID != "" {
			if _, exists := s.reversals[e.ReversesEntryID]; exists {
				return fmt.Errorf("%w: entry %s already reversed", apperrors.ErrAlreadyProcessed, e.ReversesEntryID)
			}
		}
	}

	for _, e := range u.newEntries {
		s.entries[e.EntryID] = e
		s.order = append(s.order, e.EntryID)
		if e.ReversesEntryID != "" {
			s.reversals[e.ReversesEntryID] = e.EntryID
		}
	}
	for id, e := range u.finalized {
		s.entries[id] = e
	}
	for _, r := range u.newRefs {
		ref := r
		s.refs[ref.Key()] = &ref
		s.refByID[ref.EntryID] = ref.Key()
	}
	for key, acc := range u.dirty {
		s.accounts[key] = acc.Clone()
	}
	return nil
}

// FindEntryByID retrieves a single entry.
func (s *LedgerStore) FindEntryByID(_ context.Context, entryID string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("entry %s not found", entryID))
	}
	return e.Clone(), nil
}

func touchesOwner(e *domain.LedgerEntry, ownerID string) bool {
	return (e.DebitAccount != nil && e.DebitAccount.OwnerID == ownerID) ||
		(e.CreditAccount != nil && e.CreditAccount.OwnerID == ownerID)
}

func touchesAccount(e *domain.LedgerEntry, key domain.AccountKey) bool {
	return (e.DebitAccount != nil && *e.DebitAccount == key) ||
		(e.CreditAccount != nil && *e.CreditAccount == key)
}

// ListEntriesByOwner returns entries touching the owner, newest first.
func (s *LedgerStore) ListEntriesByOwner(_ context.Context, ownerID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		cursor = &c
	}

	s.mu.RLock()
	matched := make([]*domain.LedgerEntry, 0)
	for _, id := range s.order {
		e := s.entries[id]
		if !touchesOwner(e, ownerID) {
			continue
		}
		if cursor != nil && !cursor.Before(e.CreatedAt, e.EntryID) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].EntryID > matched[j].EntryID
	})

	var next *string
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
		last := matched[len(matched)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		next = &token
	}
	out := make([]domain.LedgerEntry, len(matched))
	for i, e := range matched {
		out[i] = *e.Clone()
	}
	return out, next, nil
}

// ListEntriesByAccount returns every entry touching the account in insertion order.
func (s *LedgerStore) ListEntriesByAccount(_ context.Context, key domain.AccountKey) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, id := range s.order {
		e := s.entries[id]
		if touchesAccount(e, key) {
			out = append(out, *e.Clone())
		}
	}
	return out, nil
}

// FindAccountsByOwner returns the owner's accounts ordered by asset.
func (s *LedgerStore) FindAccountsByOwner(_ context.Context, ownerID string) ([]domain.Account, error) {
	s.mu.RLock()
	out := make([]domain.Account, 0)
	for key, acc := range s.accounts {
		if key.OwnerID == ownerID {
			out = append(out, *acc.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key.AssetCode < out[j].Key.AssetCode })
	return out, nil
}

// FindAccount returns one account.
func (s *LedgerStore) FindAccount(_ context.Context, key domain.AccountKey) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[key]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", key))
	}
	return acc.Clone(), nil
}

// FindSettlementRefByEntryID returns the reference bound to an entry.
func (s *LedgerStore) FindSettlementRefByEntryID(_ context.Context, entryID string) (*domain.ExternalSettlementRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.refByID[entryID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no settlement reference for entry %s", entryID))
	}
	ref := *s.refs[key]
	return &ref, nil
}

// ListPendingSettlements returns pending settlements created before olderThan, oldest first.
func (s *LedgerStore) ListPendingSettlements(_ context.Context, olderThan time.Time, limit int) ([]domain.PendingSettlement, error) {
	s.mu.RLock()
	var out []domain.PendingSettlement
	for _, ref := range s.refs {
		e, ok := s.entries[ref.EntryID]
		if !ok || e.Status != domain.EntryStatusPending || !e.CreatedAt.Before(olderThan) {
			continue
		}
		out = append(out, domain.PendingSettlement{Ref: *ref, Entry: e.Clone()})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Entry.CreatedAt.Equal(out[j].Entry.CreatedAt) {
			return out[i].Entry.CreatedAt.Before(out[j].Entry.CreatedAt)
		}
		return out[i].Entry.EntryID < out[j].Entry.EntryID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
