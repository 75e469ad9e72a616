package models

import "time"

// Account is a row of the accounts table. Amounts travel as numeric text so no
// precision is lost between Postgres and decimal.Decimal.
type Account struct {
	OwnerID   string    `db:"owner_id"`
	AssetCode string    `db:"asset_code"`
	Available string    `db:"available"`
	Reserved  string    `db:"reserved"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
