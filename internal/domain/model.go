package domain

import "time"

// Stage is the workflow stage of an order on the cell.
type Stage string

const (
	StageNext      Stage = "NEXT"
	StageRunning   Stage = "RUNNING"
	StageCompleted Stage = "COMPLETED"
	StageFailed    Stage = "FAILED"
)

// Finished reports whether the stage ends a protocol round.
func (s Stage) Finished() bool { return s == StageCompleted || s == StageFailed }

// Column is the sub-stage the protocol engine is servicing for the active row.
type Column string

const (
	ColumnQty       Column = "QTY"
	ColumnGood      Column = "GOOD"
	ColumnDefect    Column = "DEFECT"
	ColumnCompleted Column = "COMPLETED"
	ColumnOutfeed   Column = "OUTFEED"
)

// Field names a mutable order field.
type Field string

const (
	FieldGoodQty      Field = "good_qty"
	FieldDefectQty    Field = "defect_qty"
	FieldCompletedQty Field = "completed_qty"
	FieldStage        Field = "stage"
)

// Station is the physical scan point a scanner is mounted at.
type Station string

const (
	StationInfeed  Station = "INFEED"
	StationOutfeed Station = "OUTFEED"
)

type Order struct {
	OrderID     string
	Model       string
	PackingCode string
	RefNo       string
	UnitCode    string
	RequiredQty int

	GoodQty      int
	DefectQty    int
	CompletedQty int
	Stage        Stage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cursor points at the order and sub-stage currently being serviced.
type Cursor struct {
	Row int    `json:"row"`
	Col Column `json:"col"`
}

// PendingOutfeed is the single-slot buffer holding the latest outfeed scan.
type PendingOutfeed struct {
	Model   string `json:"model"`
	OrderID string `json:"order_id"`
	Qty     int    `json:"qty"`
}

// ScanEvent is a decoded barcode scan.
type ScanEvent struct {
	Model       string  `json:"model"`
	PackingCode string  `json:"packing_code"`
	OrderID     string  `json:"order_id"`
	Quantity    string  `json:"quantity"`
	UnitCode    string  `json:"unit_code,omitempty"`
	RefNo       string  `json:"ref_no,omitempty"`
	Station     Station `json:"station"`
}

// LotScan is a material lot label read at a station. Lot scans do not touch
// the ledger; they are kept for traceability.
type LotScan struct {
	Lot       string    `json:"lot"`
	Station   Station   `json:"station"`
	Device    string    `json:"device"`
	ScannedAt time.Time `json:"scanned_at"`
}
