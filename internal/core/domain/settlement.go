package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ExternalSettlementRef binds a gateway reference to exactly one entry.
// (GatewayName, ExternalReference) is unique across the ledger.
type ExternalSettlementRef struct {
	GatewayName       string    `json:"gatewayName"`
	ExternalReference string    `json:"externalReference"`
	EntryID           string    `json:"entryID"`
	CreatedAt         time.Time `json:"createdAt"`
}

// RefKey is the identity of a settlement reference.
type RefKey struct {
	GatewayName       string
	ExternalReference string
}

func (r RefKey) String() string {
	return r.GatewayName + ":" + r.ExternalReference
}

// Key returns the identity of the reference.
func (r ExternalSettlementRef) Key() RefKey {
	return RefKey{GatewayName: r.GatewayName, ExternalReference: r.ExternalReference}
}

// Outcome is a gateway status collapsed to what the ledger acts on.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

// ParseOutcome rejects anything outside the closed set.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToLower(strings.TrimSpace(s))); o {
	case OutcomeSuccess, OutcomeFailure, OutcomePending:
		return o, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown outcome %q", s))
}

// CollapseGatewayStatus maps the many status strings gateways use onto an Outcome.
// Unknown statuses are treated as pending so they never finalize an entry.
func CollapseGatewayStatus(status string) Outcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "succeeded", "completed", "complete", "confirmed", "paid", "settled":
		return OutcomeSuccess
	case "failed", "failure", "error", "rejected", "declined", "cancelled", "canceled", "reversed", "abandoned":
		return OutcomeFailure
	default:
		return OutcomePending
	}
}

// TargetStatus is the entry status an outcome finalizes to.
func (o Outcome) TargetStatus() (EntryStatus, bool) {
	switch o {
	case OutcomeSuccess:
		return EntryStatusCompleted, true
	case OutcomeFailure:
		return EntryStatusFailed, true
	}
	return EntryStatusPending, false
}

// DefaultReason is the resolution reason used when a caller does not supply one.
func (o Outcome) DefaultReason() ResolutionReason {
	if o == OutcomeFailure {
		return ReasonGatewayRejected
	}
	return ReasonGatewayConfirmed
}

// RawNotification is an inbound gateway callback exactly as received.
type RawNotification struct {
	GatewayName string `json:"gatewayName"`
	Body        []byte `json:"body"`
	Signature   string `json:"signature"`
}

// GatewayNotification is the parsed body of a verified callback.
type GatewayNotification struct {
	Event     string           `json:"event"`
	Reference string           `json:"reference"`
	Status    string           `json:"status"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// ParseGatewayNotification decodes a callback body. It accepts both a flat body and one
// nested under "data", which is how most payment gateways wrap their events.
func ParseGatewayNotification(body []byte) (GatewayNotification, error) {
	var envelope struct {
		GatewayNotification
		Data *GatewayNotification `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return GatewayNotification{}, apperrors.NewValidationError("notification body is not valid JSON")
	}
	n := envelope.GatewayNotification
	if envelope.Data != nil {
		if n.Event == "" {
			n.Event = envelope.Data.Event
		}
		if n.Reference == "" {
			n.Reference = envelope.Data.Reference
		}
		if n.Status == "" {
			n.Status = envelope.Data.Status
		}
		if n.Amount == nil {
			n.Amount = envelope.Data.Amount
		}
	}
	if strings.TrimSpace(n.Reference) == "" {
		return GatewayNotification{}, apperrors.NewValidationError("notification reference is required")
	}
	return n, nil
}

// VerificationResult is what a gateway reports when asked about a reference.
type VerificationResult struct {
	Reference string           `json:"reference"`
	Status    string           `json:"status"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Raw       json.RawMessage  `json:"raw,omitempty"`
}

// PendingSettlement is a pending deposit or withdrawal waiting on its gateway.
type PendingSettlement struct {
	Ref   ExternalSettlementRef
	Entry *LedgerEntry
}

// TransferInstruction asks a transfer gateway to pay out a withdrawal.
type TransferInstruction struct {
	Reference   string          `json:"reference"`
	OwnerID     string          `json:"ownerID"`
	AssetCode   string          `json:"assetCode"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}
