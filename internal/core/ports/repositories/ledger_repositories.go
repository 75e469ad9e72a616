package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
)

// LedgerUnitOfWork is the set of operations available inside one atomic unit.
// Everything done through it commits together or not at all.
//
// Locks are taken in a fixed order to stay deadlock free: settlement reference,
// then entry, then accounts sorted by AccountKey. Locking something already held
// by the same unit is a no-op. Lock waits longer than the configured timeout
// fail with apperrors.ErrBusy.
type LedgerUnitOfWork interface {
	// LockAccounts locks the given accounts, creating missing ones with zero balances.
	LockAccounts(ctx context.Context, keys []domain.AccountKey) (map[domain.AccountKey]*domain.Account, error)

	// SaveAccount stages the new state of an account locked by this unit.
	SaveAccount(ctx context.Context, account *domain.Account) error

	// InsertEntry appends a new entry.
	InsertEntry(ctx context.Context, entry *domain.LedgerEntry) error

	// FinalizeEntry persists the status transition of a pending entry.
	FinalizeEntry(ctx context.Context, entry *domain.LedgerEntry) error

	// FindEntryForUpdate loads and locks an entry.
	FindEntryForUpdate(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// InsertSettlementRef records a gateway reference. apperrors.ErrDuplicateReference when taken.
	InsertSettlementRef(ctx context.Context, ref domain.ExternalSettlementRef) error

	// FindSettlementRefForUpdate loads and locks a settlement reference.
	FindSettlementRefForUpdate(ctx context.Context, key domain.RefKey) (*domain.ExternalSettlementRef, error)

	// FindReversalOf returns the entry reversing entryID, or apperrors.ErrNotFound.
	FindReversalOf(ctx context.Context, entryID string) (*domain.LedgerEntry, error)
}

// TxRunner executes fn in a single atomic unit. A non-nil error from fn rolls back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, uow LedgerUnitOfWork) error) error
}

// LedgerReader defines read operations that run outside any unit of work.
type LedgerReader interface {
	// FindEntryByID retrieves a single entry.
	FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// ListEntriesByOwner returns entries touching the owner, newest first, using token-based pagination.
	ListEntriesByOwner(ctx context.Context, ownerID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// ListEntriesByAccount returns every entry touching the account, oldest first.
	ListEntriesByAccount(ctx context.Context, key domain.AccountKey) ([]domain.LedgerEntry, error)

	// FindAccountsByOwner returns all accounts of an owner ordered by asset.
	FindAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)

	// FindAccount returns one account or apperrors.ErrNotFound.
	FindAccount(ctx context.Context, key domain.AccountKey) (*domain.Account, error)

	// FindSettlementRefByEntryID returns the reference bound to an entry.
	FindSettlementRefByEntryID(ctx context.Context, entryID string) (*domain.ExternalSettlementRef, error)

	// ListPendingSettlements returns pending deposits and withdrawals created before olderThan, oldest first.
	ListPendingSettlements(ctx context.Context, olderThan time.Time, limit int) ([]domain.PendingSettlement, error)
}

// LedgerRepositoryFacade combines the ledger store's capabilities.
type LedgerRepositoryFacade interface {
	TxRunner
	LedgerReader
}

// OwnerRepositoryFacade is the registry of owners.
type OwnerRepositoryFacade interface {
	// SaveOwner registers an owner. apperrors.ErrDuplicate when already registered.
	SaveOwner(ctx context.Context, owner domain.Owner) error

	// FindOwnerByID returns a registered owner or apperrors.ErrNotFound.
	FindOwnerByID(ctx context.Context, ownerID string) (*domain.Owner, error)
}

// RateQuoteStore caches rate quotes. It is never the source of truth.
type RateQuoteStore interface {
	// GetQuote returns the last stored quote for the pair or apperrors.ErrNotFound.
	GetQuote(ctx context.Context, pair domain.CurrencyPair) (*domain.RateQuote, error)

	// SaveQuote stores a quote, keeping it for at least ttl.
	SaveQuote(ctx context.Context, quote domain.RateQuote, ttl time.Duration) error
}
