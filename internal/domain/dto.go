package domain

import "time"

// RowView carries everything a sink needs to re-render one ledger row.
type RowView struct {
	Row          int       `json:"row"`
	OrderID      string    `json:"order_id"`
	Model        string    `json:"model"`
	PackingCode  string    `json:"packing_code"`
	RequiredQty  int       `json:"required_qty"`
	GoodQty      int       `json:"good_qty"`
	DefectQty    int       `json:"defect_qty"`
	CompletedQty int       `json:"completed_qty"`
	Stage        Stage     `json:"stage"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewRowView(row int, o Order) RowView {
	return RowView{
		Row:          row,
		OrderID:      o.OrderID,
		Model:        o.Model,
		PackingCode:  o.PackingCode,
		RequiredQty:  o.RequiredQty,
		GoodQty:      o.GoodQty,
		DefectQty:    o.DefectQty,
		CompletedQty: o.CompletedQty,
		Stage:        o.Stage,
		UpdatedAt:    o.UpdatedAt,
	}
}

// LinkStatus is the advisory connectivity report for the PLC link.
type LinkStatus struct {
	Connected       bool            `json:"connected"`
	PLCReady        bool            `json:"plc_ready"`
	OutfeedExpected bool            `json:"outfeed_expected"`
	Pending         *PendingOutfeed `json:"pending_outfeed,omitempty"`
	Cursor          Cursor          `json:"cursor"`
	State           string          `json:"state"`
	LastSeen        time.Time       `json:"last_seen"`
}

// Human-readable link states.
const (
	StateWaiting         = "Waiting for PLC"
	StateReady           = "PLC is ready to send"
	StateNotReady        = "PLC not ready"
	StateMismatch        = "PLC kanban mismatch"
	StateCounting        = "PLC reporting quantities"
	StateAwaitingOutfeed = "Waiting for outfeed scan"
	StateVerifying       = "Outfeed verification sent"
	StateCompleted       = "Kanban completed"
	StateIdle            = "Idle"
	StateOffline         = "PLC offline"
	StateBindFailed      = "PLC listener failed"
)

// ScanRequest is the body of a manual scan entry.
type ScanRequest struct {
	Station string `json:"station"`
	Line    string `json:"line"`
}

// ScanResponse carries either the decoded kanban scan or, for lot labels,
// the recorded lot.
type ScanResponse struct {
	Event   ScanEvent `json:"event"`
	Created bool      `json:"created"`
	Lot     *LotScan  `json:"lot,omitempty"`
}

type LedgerResponse struct {
	Rows   []RowView  `json:"rows"`
	Status LinkStatus `json:"status"`
}
