package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/exchange_ledger/internal/models"
	"github.com/SscSPs/exchange_ledger/internal/utils/mapping"
)

type PgxOwnerRepository struct {
	BaseRepository
}

func newPgxOwnerRepository(pool *pgxpool.Pool) *PgxOwnerRepository {
	return &PgxOwnerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxOwnerRepository implements portsrepo.OwnerRepositoryFacade
var _ portsrepo.OwnerRepositoryFacade = (*PgxOwnerRepository)(nil)

func (r *PgxOwnerRepository) SaveOwner(ctx context.Context, owner domain.Owner) error {
	m := mapping.ToModelOwner(owner)
	_, err := r.Pool.Exec(ctx, `INSERT INTO owners (owner_id, created_at) VALUES ($1, $2);`, m.OwnerID, m.CreatedAt)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to save owner %s", owner.OwnerID))
	}
	return nil
}

func (r *PgxOwnerRepository) FindOwnerByID(ctx context.Context, ownerID string) (*domain.Owner, error) {
	var m models.Owner
	err := r.Pool.QueryRow(ctx, `SELECT owner_id, created_at FROM owners WHERE owner_id = $1;`, ownerID).Scan(&m.OwnerID, &m.CreatedAt)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("owner %s not found", ownerID))
	}
	owner := mapping.ToDomainOwner(m)
	return &owner, nil
}
