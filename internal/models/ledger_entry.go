package models

import "time"

// LedgerEntry is a row of the ledger_entries table.
type LedgerEntry struct {
	EntryID            string     `db:"entry_id"`
	EntryType          string     `db:"entry_type"`
	Status             string     `db:"status"`
	DebitOwnerID       *string    `db:"debit_owner_id"`
	DebitAssetCode     *string    `db:"debit_asset_code"`
	CreditOwnerID      *string    `db:"credit_owner_id"`
	CreditAssetCode    *string    `db:"credit_asset_code"`
	SourceAsset        string     `db:"source_asset"`
	SourceAmount       string     `db:"source_amount"`
	DestinationAsset   string     `db:"destination_asset"`
	DestinationAmount  string     `db:"destination_amount"`
	Rate               *string    `db:"rate"`
	GatewayName        *string    `db:"gateway_name"`
	ExternalReference  *string    `db:"external_reference"`
	DestinationAddress *string    `db:"destination_address"`
	ReversesEntryID    *string    `db:"reverses_entry_id"`
	ResolutionReason   *string    `db:"resolution_reason"`
	Payload            []byte     `db:"payload"`
	ResolutionPayload  []byte     `db:"resolution_payload"`
	CreatedAt          time.Time  `db:"created_at"`
	FinalizedAt        *time.Time `db:"finalized_at"`
}
