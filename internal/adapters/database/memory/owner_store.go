package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
)

// OwnerStore is an in-memory owner registry.
type OwnerStore struct {
	mu     sync.RWMutex
	owners map[string]domain.Owner
}

// NewOwnerStore creates an empty registry.
func NewOwnerStore() *OwnerStore {
	return &OwnerStore{owners: make(map[string]domain.Owner)}
}

var _ portsrepo.OwnerRepositoryFacade = (*OwnerStore)(nil)

func (s *OwnerStore) SaveOwner(_ context.Context, owner domain.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.owners[owner.OwnerID]; exists {
		return fmt.Errorf("%w: owner %s", apperrors.ErrDuplicate, owner.OwnerID)
	}
	s.owners[owner.OwnerID] = owner
	return nil
}

func (s *OwnerStore) FindOwnerByID(_ context.Context, ownerID string) (*domain.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[ownerID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("owner %s not found", ownerID))
	}
	return &owner, nil
}
