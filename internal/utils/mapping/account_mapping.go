package mapping

import (
	"fmt"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		OwnerID:   d.Key.OwnerID,
		AssetCode: d.Key.AssetCode,
		Available: d.Available.String(),
		Reserved:  d.Reserved.String(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) (domain.Account, error) {
	available, err := decimal.NewFromString(m.Available)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s/%s available %q: %w", m.OwnerID, m.AssetCode, m.Available, err)
	}
	reserved, err := decimal.NewFromString(m.Reserved)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s/%s reserved %q: %w", m.OwnerID, m.AssetCode, m.Reserved, err)
	}
	return domain.Account{
		Key:       domain.AccountKey{OwnerID: m.OwnerID, AssetCode: m.AssetCode},
		Available: available,
		Reserved:  reserved,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// ToModelOwner converts a domain Owner to a model Owner
func ToModelOwner(d domain.Owner) models.Owner {
	return models.Owner{OwnerID: d.OwnerID, CreatedAt: d.CreatedAt}
}

// ToDomainOwner converts a model Owner to a domain Owner
func ToDomainOwner(m models.Owner) domain.Owner {
	return domain.Owner{OwnerID: m.OwnerID, CreatedAt: m.CreatedAt}
}

// ToModelSettlementRef converts a domain ExternalSettlementRef to a model SettlementRef
func ToModelSettlementRef(d domain.ExternalSettlementRef) models.SettlementRef {
	return models.SettlementRef{
		GatewayName:       d.GatewayName,
		ExternalReference: d.ExternalReference,
		EntryID:           d.EntryID,
		CreatedAt:         d.CreatedAt,
	}
}

// ToDomainSettlementRef converts a model SettlementRef to a domain ExternalSettlementRef
func ToDomainSettlementRef(m models.SettlementRef) domain.ExternalSettlementRef {
	return domain.ExternalSettlementRef{
		GatewayName:       m.GatewayName,
		ExternalReference: m.ExternalReference,
		EntryID:           m.EntryID,
		CreatedAt:         m.CreatedAt,
	}
}
