package pgsql

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
)

// NewRepositoryProvider wires the Postgres repositories. Rate quotes are a cache,
// never ledger state, so their store is supplied by the caller.
func NewRepositoryProvider(dbPool *pgxpool.Pool, lockWait time.Duration, rateStore portsrepo.RateQuoteStore) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo: newPgxLedgerRepository(dbPool, lockWait),
		OwnerRepo:  newPgxOwnerRepository(dbPool),
		RateStore:  rateStore,
	}
}
