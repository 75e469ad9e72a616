package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// EntryType is the kind of movement a ledger entry records.
type EntryType string

const (
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
	EntryTypeExchange   EntryType = "exchange"
	EntryTypeTransfer   EntryType = "transfer"
)

// ParseEntryType rejects anything outside the closed set.
func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(s); t {
	case EntryTypeDeposit, EntryTypeWithdrawal, EntryTypeExchange, EntryTypeTransfer:
		return t, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown entry type %q", s))
}

// IsSettled reports whether entries of this type are finalized by a gateway.
func (t EntryType) IsSettled() bool {
	return t == EntryTypeDeposit || t == EntryTypeWithdrawal
}

// EntryStatus is the lifecycle state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusReversed  EntryStatus = "reversed"
)

// ParseEntryStatus rejects anything outside the closed set.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch st := EntryStatus(s); st {
	case EntryStatusPending, EntryStatusCompleted, EntryStatusFailed, EntryStatusReversed:
		return st, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown entry status %q", s))
}

// IsFinal reports whether no further transition is possible.
func (s EntryStatus) IsFinal() bool {
	return s != EntryStatusPending
}

// CanTransitionTo only allows pending to completed or failed.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	return s == EntryStatusPending && (next == EntryStatusCompleted || next == EntryStatusFailed)
}

// ResolutionReason records why a pending entry was finalized.
type ResolutionReason string

const (
	ReasonGatewayConfirmed ResolutionReason = "gateway_confirmed"
	ReasonGatewayRejected  ResolutionReason = "gateway_rejected"
	ReasonCancelled        ResolutionReason = "cancelled"
	ReasonInitiationFailed ResolutionReason = "initiation_failed"
	ReasonPollTimeout      ResolutionReason = "poll_timeout"
)

// ParseResolutionReason rejects unknown reasons. Empty is allowed and means unspecified.
func ParseResolutionReason(s string) (ResolutionReason, error) {
	switch r := ResolutionReason(s); r {
	case "", ReasonGatewayConfirmed, ReasonGatewayRejected, ReasonCancelled, ReasonInitiationFailed, ReasonPollTimeout:
		return r, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown resolution reason %q", s))
}

// AssetAmount is an amount of a single asset.
type AssetAmount struct {
	AssetCode string          `json:"assetCode"`
	Amount    decimal.Decimal `json:"amount"`
}

// LedgerEntry is an immutable record of one movement. Only Status, ResolutionReason,
// ResolutionPayload and FinalizedAt change, and only once, from pending.
type LedgerEntry struct {
	EntryID           string           `json:"entryID"`
	Type              EntryType        `json:"type"`
	Status            EntryStatus      `json:"status"`
	DebitAccount      *AccountKey      `json:"debitAccount,omitempty"`
	CreditAccount     *AccountKey      `json:"creditAccount,omitempty"`
	Source            AssetAmount      `json:"source"`
	Destination       AssetAmount      `json:"destination"`
	Rate              *decimal.Decimal `json:"rate,omitempty"`
	GatewayName       string           `json:"gatewayName,omitempty"`
	ExternalReference string           `json:"externalReference,omitempty"`
	DestinationAddr   string           `json:"destinationAddress,omitempty"`
	ReversesEntryID   string           `json:"reversesEntryID,omitempty"`
	ResolutionReason  ResolutionReason `json:"resolutionReason,omitempty"`
	Payload           json.RawMessage  `json:"payload,omitempty"`
	ResolutionPayload json.RawMessage  `json:"resolutionPayload,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	FinalizedAt       *time.Time       `json:"finalizedAt,omitempty"`
}

// IsReversal reports whether this entry compensates another one.
func (e *LedgerEntry) IsReversal() bool {
	return e.ReversesEntryID != ""
}

// OwnerIDs lists the owners touched by the entry.
func (e *LedgerEntry) OwnerIDs() []string {
	var ids []string
	if e.DebitAccount != nil {
		ids = append(ids, e.DebitAccount.OwnerID)
	}
	if e.CreditAccount != nil && (e.DebitAccount == nil || e.CreditAccount.OwnerID != e.DebitAccount.OwnerID) {
		ids = append(ids, e.CreditAccount.OwnerID)
	}
	return ids
}

// SettlementAccount is the single account a deposit or withdrawal settles against.
func (e *LedgerEntry) SettlementAccount() (AccountKey, bool) {
	switch e.Type {
	case EntryTypeDeposit:
		if e.CreditAccount != nil {
			return *e.CreditAccount, true
		}
	case EntryTypeWithdrawal:
		if e.DebitAccount != nil {
			return *e.DebitAccount, true
		}
	}
	return AccountKey{}, false
}

// Finalize applies a legal transition and stamps the resolution.
func (e *LedgerEntry) Finalize(next EntryStatus, reason ResolutionReason, payload json.RawMessage, now time.Time) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: entry %s is %s", apperrors.ErrAlreadyProcessed, e.EntryID, e.Status)
	}
	e.Status = next
	e.ResolutionReason = reason
	e.ResolutionPayload = payload
	e.FinalizedAt = &now
	return nil
}

// Clone returns a copy that shares no pointers with e.
func (e *LedgerEntry) Clone() *LedgerEntry {
	c := *e
	if e.DebitAccount != nil {
		k := *e.DebitAccount
		c.DebitAccount = &k
	}
	if e.CreditAccount != nil {
		k := *e.CreditAccount
		c.CreditAccount = &k
	}
	if e.Rate != nil {
		r := *e.Rate
		c.Rate = &r
	}
	if e.FinalizedAt != nil {
		f := *e.FinalizedAt
		c.FinalizedAt = &f
	}
	c.Payload = append(json.RawMessage(nil), e.Payload...)
	c.ResolutionPayload = append(json.RawMessage(nil), e.ResolutionPayload...)
	return &c
}

// Posting is the signed effect of an entry on one account's total balance.
type Posting struct {
	Key    AccountKey
	Amount decimal.Decimal
}

// Postings returns the effect this entry has on account totals (available + reserved).
// Pending withdrawals move funds inside one account and so post nothing.
func (e *LedgerEntry) Postings() []Posting {
	if e.Status != EntryStatusCompleted && e.Status != EntryStatusReversed {
		return nil
	}
	var out []Posting
	if e.DebitAccount != nil {
		out = append(out, Posting{Key: *e.DebitAccount, Amount: e.Source.Amount.Neg()})
	}
	if e.CreditAccount != nil {
		out = append(out, Posting{Key: *e.CreditAccount, Amount: e.Destination.Amount})
	}
	return out
}

// Reversal builds the compensating entry for a completed entry.
func (e *LedgerEntry) Reversal(entryID string, payload json.RawMessage, now time.Time) (*LedgerEntry, error) {
	if e.Status != EntryStatusCompleted {
		return nil, apperrors.NewValidationError(fmt.Sprintf("entry %s is %s, only completed entries can be reversed", e.EntryID, e.Status))
	}
	if e.IsReversal() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("entry %s is itself a reversal", e.EntryID))
	}
	r := &LedgerEntry{
		EntryID:         entryID,
		Type:            e.Type,
		Status:          EntryStatusReversed,
		Source:          e.Destination,
		Destination:     e.Source,
		GatewayName:     e.GatewayName,
		ReversesEntryID: e.EntryID,
		Payload:         payload,
		CreatedAt:       now,
		FinalizedAt:     &now,
	}
	if e.CreditAccount != nil {
		k := *e.CreditAccount
		r.DebitAccount = &k
	}
	if e.DebitAccount != nil {
		k := *e.DebitAccount
		r.CreditAccount = &k
	}
	if e.Rate != nil && !e.Rate.IsZero() {
		inv := decimal.NewFromInt(1).DivRound(*e.Rate, 16)
		r.Rate = &inv
	}
	return r, nil
}
