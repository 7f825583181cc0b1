package models

import (
	"time"

	"kanban-tracker/internal/domain"
)

// OrderRecord is the archived final state of a kanban.
type OrderRecord struct {
	OrderID      string       `json:"order_id"`
	Model        string       `json:"model"`
	PackingCode  string       `json:"packing_code"`
	RequiredQty  int          `json:"required_qty"`
	GoodQty      int          `json:"good_qty"`
	DefectQty    int          `json:"defect_qty"`
	CompletedQty int          `json:"completed_qty"`
	Stage        domain.Stage `json:"stage"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// StageEntry is one line of an order's archived timeline.
type StageEntry struct {
	OrderID      string       `json:"order_id"`
	Stage        domain.Stage `json:"stage"`
	GoodQty      int          `json:"good_qty"`
	DefectQty    int          `json:"defect_qty"`
	CompletedQty int          `json:"completed_qty"`
	ChangedAt    time.Time    `json:"changed_at"`
}

func FromRow(v domain.RowView) OrderRecord {
	return OrderRecord{
		OrderID:      v.OrderID,
		Model:        v.Model,
		PackingCode:  v.PackingCode,
		RequiredQty:  v.RequiredQty,
		GoodQty:      v.GoodQty,
		DefectQty:    v.DefectQty,
		CompletedQty: v.CompletedQty,
		Stage:        v.Stage,
		FinishedAt:   v.UpdatedAt.UTC(),
	}
}
