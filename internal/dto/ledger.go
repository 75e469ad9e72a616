package dto

import (
	"encoding/json"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateDepositRequest records an incoming payment awaiting gateway confirmation.
type CreateDepositRequest struct {
	Asset            string          `json:"asset" binding:"required,assetcode"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	GatewayName      string          `json:"gatewayName" binding:"omitempty,max=64"`
	GatewayReference string          `json:"gatewayReference" binding:"required,max=128"`
	Payload          json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// CreateWithdrawalRequest reserves funds and asks the transfer gateway to pay them out.
type CreateWithdrawalRequest struct {
	Asset       string          `json:"asset" binding:"required,assetcode"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Destination string          `json:"destination" binding:"required,max=256"`
	Payload     json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// CreateExchangeRequest converts between two assets of the same owner.
type CreateExchangeRequest struct {
	FromAsset string          `json:"fromAsset" binding:"required,assetcode"`
	ToAsset   string          `json:"toAsset" binding:"required,assetcode,nefield=FromAsset"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Payload   json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// CreateTransferRequest moves an asset to another registered owner.
type CreateTransferRequest struct {
	ReceiverID string          `json:"receiverID" binding:"required,max=128"`
	Asset      string          `json:"asset" binding:"required,assetcode"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Payload    json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// ReverseEntryRequest carries an optional note attached to the compensating entry.
type ReverseEntryRequest struct {
	Reason  string          `json:"reason" binding:"omitempty,max=256"`
	Payload json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
}

// ResolveSettlementRequest finalizes a pending deposit or withdrawal.
type ResolveSettlementRequest struct {
	GatewayName       string           `json:"gatewayName" binding:"required,max=64"`
	ExternalReference string           `json:"externalReference" binding:"required,max=128"`
	Outcome           domain.Outcome   `json:"outcome" binding:"required,oneof=success failure pending"`
	Reason            string           `json:"reason" binding:"omitempty,oneof=gateway_confirmed gateway_rejected cancelled initiation_failed poll_timeout"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Payload           json.RawMessage  `json:"payload,omitempty" swaggertype:"object"`
}

// ListEntriesParams is the query string for entry listing.
type ListEntriesParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// LedgerEntryResponse is the API view of a ledger entry.
type LedgerEntryResponse struct {
	EntryID           string           `json:"entryID"`
	Type              string           `json:"type"`
	Status            string           `json:"status"`
	DebitAccount      *AccountKeyDTO   `json:"debitAccount,omitempty"`
	CreditAccount     *AccountKeyDTO   `json:"creditAccount,omitempty"`
	SourceAsset       string           `json:"sourceAsset"`
	SourceAmount      decimal.Decimal  `json:"sourceAmount"`
	DestinationAsset  string           `json:"destinationAsset"`
	DestinationAmount decimal.Decimal  `json:"destinationAmount"`
	Rate              *decimal.Decimal `json:"rate,omitempty"`
	GatewayName       string           `json:"gatewayName,omitempty"`
	ExternalReference string           `json:"externalReference,omitempty"`
	Destination       string           `json:"destination,omitempty"`
	ReversesEntryID   string           `json:"reversesEntryID,omitempty"`
	ResolutionReason  string           `json:"resolutionReason,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	FinalizedAt       *time.Time       `json:"finalizedAt,omitempty"`
}

// AccountKeyDTO identifies an account in responses.
type AccountKeyDTO struct {
	OwnerID   string `json:"ownerID"`
	AssetCode string `json:"assetCode"`
}

// ListEntriesResponse is one page of entries.
type ListEntriesResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}

// ResolveResponse reports the state of a settlement after a resolve attempt.
type ResolveResponse struct {
	Status string              `json:"status"`
	Entry  LedgerEntryResponse `json:"entry"`
}

// BalanceResponse is one asset balance.
type BalanceResponse struct {
	AssetCode string          `json:"assetCode"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// BalancesResponse lists every asset an owner holds.
type BalancesResponse struct {
	OwnerID  string            `json:"ownerID"`
	Balances []BalanceResponse `json:"balances"`
}

// OwnerResponse is a registered owner.
type OwnerResponse struct {
	OwnerID   string    `json:"ownerID"`
	CreatedAt time.Time `json:"createdAt"`
}

// RateResponse is an exchange rate quote.
type RateResponse struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// AccountAudit compares stored balances with balances recomputed from entries.
type AccountAudit struct {
	OwnerID         string          `json:"ownerID"`
	AssetCode       string          `json:"assetCode"`
	StoredTotal     decimal.Decimal `json:"storedTotal"`
	ComputedTotal   decimal.Decimal `json:"computedTotal"`
	StoredReserved  decimal.Decimal `json:"storedReserved"`
	PendingReserved decimal.Decimal `json:"pendingReserved"`
	EntriesScanned  int             `json:"entriesScanned"`
	Balanced        bool            `json:"balanced"`
}

func toAccountKeyDTO(k *domain.AccountKey) *AccountKeyDTO {
	if k == nil {
		return nil
	}
	return &AccountKeyDTO{OwnerID: k.OwnerID, AssetCode: k.AssetCode}
}

// ToLedgerEntryResponse converts a domain.LedgerEntry to its API view.
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:           e.EntryID,
		Type:              string(e.Type),
		Status:            string(e.Status),
		DebitAccount:      toAccountKeyDTO(e.DebitAccount),
		CreditAccount:     toAccountKeyDTO(e.CreditAccount),
		SourceAsset:       e.Source.AssetCode,
		SourceAmount:      e.Source.Amount,
		DestinationAsset:  e.Destination.AssetCode,
		DestinationAmount: e.Destination.Amount,
		Rate:              e.Rate,
		GatewayName:       e.GatewayName,
		ExternalReference: e.ExternalReference,
		Destination:       e.DestinationAddr,
		ReversesEntryID:   e.ReversesEntryID,
		ResolutionReason:  string(e.ResolutionReason),
		CreatedAt:         e.CreatedAt,
		FinalizedAt:       e.FinalizedAt,
	}
}

// ToLedgerEntryResponses converts a slice of entries.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses
}

// ToBalancesResponse converts an owner's accounts.
func ToBalancesResponse(ownerID string, accounts []domain.Account) BalancesResponse {
	resp := BalancesResponse{OwnerID: ownerID, Balances: make([]BalanceResponse, len(accounts))}
	for i := range accounts {
		a := &accounts[i]
		resp.Balances[i] = BalanceResponse{
			AssetCode: a.Key.AssetCode,
			Available: a.Available,
			Reserved:  a.Reserved,
			Total:     a.Total(),
			UpdatedAt: a.UpdatedAt,
		}
	}
	return resp
}

// ToRateResponse converts a quote.
func ToRateResponse(q domain.RateQuote) RateResponse {
	return RateResponse{Base: q.Base, Quote: q.Quote, Rate: q.Rate, FetchedAt: q.FetchedAt}
}

// ToOwnerResponse converts an owner.
func ToOwnerResponse(o *domain.Owner) OwnerResponse {
	return OwnerResponse{OwnerID: o.OwnerID, CreatedAt: o.CreatedAt}
}
