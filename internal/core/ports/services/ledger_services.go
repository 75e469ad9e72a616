package services

import (
	"context"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/dto"
)

// LedgerWriterSvc defines the balance-moving operations.
type LedgerWriterSvc interface {
	// Deposit records a pending deposit awaiting gateway confirmation.
	Deposit(ctx context.Context, ownerID string, req dto.CreateDepositRequest) (*domain.LedgerEntry, error)

	// Withdraw reserves funds and initiates a payout.
	Withdraw(ctx context.Context, ownerID string, req dto.CreateWithdrawalRequest) (*domain.LedgerEntry, error)

	// Exchange converts between two assets of the same owner at the cached rate.
	Exchange(ctx context.Context, ownerID string, req dto.CreateExchangeRequest) (*domain.LedgerEntry, error)

	// Transfer moves an asset to another registered owner.
	Transfer(ctx context.Context, senderID string, req dto.CreateTransferRequest) (*domain.LedgerEntry, error)

	// Reverse creates a compensating entry for a completed entry.
	Reverse(ctx context.Context, entryID string, req dto.ReverseEntryRequest, actorID string) (*domain.LedgerEntry, error)
}

// LedgerReaderSvc defines ledger queries.
type LedgerReaderSvc interface {
	// GetEntry retrieves a single entry.
	GetEntry(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// ListEntriesByOwner retrieves a page of the owner's entries.
	ListEntriesByOwner(ctx context.Context, ownerID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)

	// GetBalances returns every account the owner holds.
	GetBalances(ctx context.Context, ownerID string) ([]domain.Account, error)

	// AuditAccount recomputes an account from its entries and compares with the stored balance.
	AuditAccount(ctx context.Context, ownerID, assetCode string) (*dto.AccountAudit, error)
}

// OwnerSvc manages the owner registry.
type OwnerSvc interface {
	// RegisterOwner registers ownerID. It returns the owner and whether it was newly created.
	RegisterOwner(ctx context.Context, ownerID string) (*domain.Owner, bool, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces.
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
	OwnerSvc
}
