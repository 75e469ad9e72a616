package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	"github.com/SscSPs/exchange_ledger/internal/models"
	"github.com/shopspring/decimal"
)

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func toJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func accountKeyFrom(owner, asset *string) *domain.AccountKey {
	if owner == nil || asset == nil {
		return nil
	}
	return &domain.AccountKey{OwnerID: *owner, AssetCode: *asset}
}

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d *domain.LedgerEntry) models.LedgerEntry {
	m := models.LedgerEntry{
		EntryID:            d.EntryID,
		EntryType:          string(d.Type),
		Status:             string(d.Status),
		SourceAsset:        d.Source.AssetCode,
		SourceAmount:       d.Source.Amount.String(),
		DestinationAsset:   d.Destination.AssetCode,
		DestinationAmount:  d.Destination.Amount.String(),
		GatewayName:        optString(d.GatewayName),
		ExternalReference:  optString(d.ExternalReference),
		DestinationAddress: optString(d.DestinationAddr),
		ReversesEntryID:    optString(d.ReversesEntryID),
		ResolutionReason:   optString(string(d.ResolutionReason)),
		Payload:            optJSON(d.Payload),
		ResolutionPayload:  optJSON(d.ResolutionPayload),
		CreatedAt:          d.CreatedAt,
		FinalizedAt:        d.FinalizedAt,
	}
	if d.DebitAccount != nil {
		m.DebitOwnerID = optString(d.DebitAccount.OwnerID)
		m.DebitAssetCode = optString(d.DebitAccount.AssetCode)
	}
	if d.CreditAccount != nil {
		m.CreditOwnerID = optString(d.CreditAccount.OwnerID)
		m.CreditAssetCode = optString(d.CreditAccount.AssetCode)
	}
	if d.Rate != nil {
		m.Rate = optString(d.Rate.String())
	}
	return m
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) (*domain.LedgerEntry, error) {
	source, err := decimal.NewFromString(m.SourceAmount)
	if err != nil {
		return nil, fmt.Errorf("entry %s source amount %q: %w", m.EntryID, m.SourceAmount, err)
	}
	destination, err := decimal.NewFromString(m.DestinationAmount)
	if err != nil {
		return nil, fmt.Errorf("entry %s destination amount %q: %w", m.EntryID, m.DestinationAmount, err)
	}
	d := &domain.LedgerEntry{
		EntryID:           m.EntryID,
		Type:              domain.EntryType(m.EntryType),
		Status:            domain.EntryStatus(m.Status),
		DebitAccount:      accountKeyFrom(m.DebitOwnerID, m.DebitAssetCode),
		CreditAccount:     accountKeyFrom(m.CreditOwnerID, m.CreditAssetCode),
		Source:            domain.AssetAmount{AssetCode: m.SourceAsset, Amount: source},
		Destination:       domain.AssetAmount{AssetCode: m.DestinationAsset, Amount: destination},
		GatewayName:       derefString(m.GatewayName),
		ExternalReference: derefString(m.ExternalReference),
		DestinationAddr:   derefString(m.DestinationAddress),
		ReversesEntryID:   derefString(m.ReversesEntryID),
		ResolutionReason:  domain.ResolutionReason(derefString(m.ResolutionReason)),
		Payload:           toJSON(m.Payload),
		ResolutionPayload: toJSON(m.ResolutionPayload),
		CreatedAt:         m.CreatedAt,
		FinalizedAt:       m.FinalizedAt,
	}
	if m.Rate != nil {
		rate, err := decimal.NewFromString(*m.Rate)
		if err != nil {
			return nil, fmt.Errorf("entry %s rate %q: %w", m.EntryID, *m.Rate, err)
		}
		d.Rate = &rate
	}
	return d, nil
}
