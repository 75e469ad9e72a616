package domain

import "time"

// EventType names an outbound ledger event.
type EventType string

const (
	EventEntryRecorded  EventType = "entry.recorded"
	EventEntryFinalized EventType = "entry.finalized"
)

// EntryEvent is published after the unit of work that produced it commits.
// Presentation collaborators (receipts, notifications) consume these.
type EntryEvent struct {
	EventID    string       `json:"eventID"`
	Type       EventType    `json:"type"`
	Entry      *LedgerEntry `json:"entry"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// PartitionKey keeps events of one owner ordered on partitioned transports.
func (e EntryEvent) PartitionKey() string {
	if e.Entry == nil {
		return ""
	}
	if e.Entry.DebitAccount != nil {
		return e.Entry.DebitAccount.OwnerID
	}
	if e.Entry.CreditAccount != nil {
		return e.Entry.CreditAccount.OwnerID
	}
	return e.Entry.EntryID
}
