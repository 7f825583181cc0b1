package domain

import "time"

type EventKind string

const (
	EventOrderRegistered EventKind = "order_registered"
	EventOrderUpdated    EventKind = "order_updated"
	EventLedgerCleared   EventKind = "ledger_cleared"
	EventLinkStatus      EventKind = "link_status"
	EventLotScanned      EventKind = "lot_scanned"
)

// Event is a state-change notification delivered to presentation sinks.
type Event struct {
	Kind EventKind   `json:"kind"`
	Row  *RowView    `json:"row,omitempty"`
	Link *LinkStatus `json:"link,omitempty"`
	Lot  *LotScan    `json:"lot,omitempty"`
	At   time.Time   `json:"at"`
}
