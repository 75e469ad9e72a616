package models

import "time"

// SettlementRef is a row of the settlement_refs table.
type SettlementRef struct {
	GatewayName       string    `db:"gateway_name"`
	ExternalReference string    `db:"external_reference"`
	EntryID           string    `db:"entry_id"`
	CreatedAt         time.Time `db:"created_at"`
}

// Owner is a row of the owners table.
type Owner struct {
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}
