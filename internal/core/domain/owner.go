package domain

import "time"

// Owner is a registered account holder. Transfers may only target registered owners.
type Owner struct {
	OwnerID   string    `json:"ownerID"`
	CreatedAt time.Time `json:"createdAt"`
}
