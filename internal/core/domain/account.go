package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// AccountKey identifies one balance: an owner holding one asset.
type AccountKey struct {
	OwnerID   string `json:"ownerID"`
	AssetCode string `json:"assetCode"`
}

// NormalizeAsset upper-cases and trims an asset code.
func NormalizeAsset(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewAccountKey validates and normalizes an account key.
func NewAccountKey(ownerID, assetCode string) (AccountKey, error) {
	ownerID = strings.TrimSpace(ownerID)
	assetCode = NormalizeAsset(assetCode)
	if ownerID == "" {
		return AccountKey{}, apperrors.NewValidationError("owner id is required")
	}
	if assetCode == "" {
		return AccountKey{}, apperrors.NewValidationError("asset code is required")
	}
	return AccountKey{OwnerID: ownerID, AssetCode: assetCode}, nil
}

func (k AccountKey) String() string {
	return k.OwnerID + "/" + k.AssetCode
}

// Less orders keys by owner, then asset. All multi-account locking follows this order.
func (k AccountKey) Less(other AccountKey) bool {
	if k.OwnerID != other.OwnerID {
		return k.OwnerID < other.OwnerID
	}
	return k.AssetCode < other.AssetCode
}

// SortedUniqueKeys returns keys deduplicated and in lock order.
func SortedUniqueKeys(keys ...AccountKey) []AccountKey {
	seen := make(map[AccountKey]struct{}, len(keys))
	out := make([]AccountKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Account is the mutable balance record for an AccountKey.
// Available and Reserved never go negative.
type Account struct {
	Key       AccountKey      `json:"key"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewAccount returns a zero balance account.
func NewAccount(key AccountKey, now time.Time) *Account {
	return &Account{
		Key:       key,
		Available: decimal.Zero,
		Reserved:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Total is available plus reserved.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Reserved)
}

// Clone returns a detached copy.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError(fmt.Sprintf("amount must be positive, got %s", amount.String()))
	}
	return nil
}

// Reserve moves amount from available to reserved.
func (a *Account) Reserve(amount decimal.Decimal, now time.Time) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if a.Available.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s available, needs %s", apperrors.ErrInsufficientFunds, a.Key, a.Available, amount)
	}
	a.Available = a.Available.Sub(amount)
	a.Reserved = a.Reserved.Add(amount)
	a.UpdatedAt = now
	return nil
}

// CommitReserved permanently removes amount from reserved.
func (a *Account) CommitReserved(amount decimal.Decimal, now time.Time) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if a.Reserved.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s reserved, cannot commit %s", apperrors.ErrInsufficientFunds, a.Key, a.Reserved, amount)
	}
	a.Reserved = a.Reserved.Sub(amount)
	a.UpdatedAt = now
	return nil
}

// ReleaseReserved moves amount from reserved back to available.
func (a *Account) ReleaseReserved(amount decimal.Decimal, now time.Time) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if a.Reserved.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s reserved, cannot release %s", apperrors.ErrInsufficientFunds, a.Key, a.Reserved, amount)
	}
	a.Reserved = a.Reserved.Sub(amount)
	a.Available = a.Available.Add(amount)
	a.UpdatedAt = now
	return nil
}

// Credit increases available.
func (a *Account) Credit(amount decimal.Decimal, now time.Time) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	a.Available = a.Available.Add(amount)
	a.UpdatedAt = now
	return nil
}
