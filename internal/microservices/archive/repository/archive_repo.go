package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/microservices/archive/models"
)

//go:embed schema.sql
var schemaSQL string

// Queries use $N placeholders in argument order so the same text runs on
// both the pgx and sqlite3 drivers.
type ArchiveRepoInterface interface {
	Migrate(ctx context.Context) error
	ArchiveTx(ctx context.Context, rec models.OrderRecord) error
	GetOrder(ctx context.Context, orderID string) (models.OrderRecord, bool, error)
	ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error)
	GetTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error)
	RecordLot(ctx context.Context, scan domain.LotScan) error
	ListLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error)
}

type ArchiveRepo struct {
	db *sql.DB
}

func NewArchiveRepo(db *sql.DB) *ArchiveRepo { return &ArchiveRepo{db: db} }

// Migrate applies the embedded schema. It is idempotent.
func (r *ArchiveRepo) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// ArchiveTx upserts the order and appends its stage to the timeline.
func (r *ArchiveRepo) ArchiveTx(ctx context.Context, rec models.OrderRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO kanban_orders (order_id, model, packing_code, required_qty, good_qty, defect_qty, completed_qty, stage, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (order_id) DO UPDATE SET
  model = EXCLUDED.model,
  packing_code = EXCLUDED.packing_code,
  required_qty = EXCLUDED.required_qty,
  good_qty = EXCLUDED.good_qty,
  defect_qty = EXCLUDED.defect_qty,
  completed_qty = EXCLUDED.completed_qty,
  stage = EXCLUDED.stage,
  finished_at = EXCLUDED.finished_at
`, rec.OrderID, rec.Model, rec.PackingCode, rec.RequiredQty, rec.GoodQty, rec.DefectQty,
		rec.CompletedQty, string(rec.Stage), rec.FinishedAt); err != nil {
		return fmt.Errorf("upsert order %s: %w", rec.OrderID, err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO kanban_stage_log (order_id, stage, good_qty, defect_qty, completed_qty, changed_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, rec.OrderID, string(rec.Stage), rec.GoodQty, rec.DefectQty, rec.CompletedQty, rec.FinishedAt); err != nil {
		return fmt.Errorf("append stage log %s: %w", rec.OrderID, err)
	}
	return tx.Commit()
}

func (r *ArchiveRepo) GetOrder(ctx context.Context, orderID string) (models.OrderRecord, bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT order_id, model, packing_code, required_qty, good_qty, defect_qty, completed_qty, stage, finished_at
FROM kanban_orders WHERE order_id = $1
`, orderID)
	rec, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OrderRecord{}, false, nil
	}
	if err != nil {
		return models.OrderRecord{}, false, err
	}
	return rec, true, nil
}

// ListOrders returns archived orders, most recently finished first.
func (r *ArchiveRepo) ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id, model, packing_code, required_qty, good_qty, defect_qty, completed_qty, stage, finished_at
FROM kanban_orders
ORDER BY finished_at DESC, order_id
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.OrderRecord, 0)
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ArchiveRepo) GetTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id, stage, good_qty, defect_qty, completed_qty, changed_at
FROM kanban_stage_log
WHERE order_id = $1
ORDER BY changed_at
LIMIT $2 OFFSET $3
`, orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.StageEntry, 0)
	for rows.Next() {
		var (
			e     models.StageEntry
			stage string
		)
		if err := rows.Scan(&e.OrderID, &stage, &e.GoodQty, &e.DefectQty, &e.CompletedQty, &e.ChangedAt); err != nil {
			return nil, err
		}
		e.Stage = domain.Stage(stage)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ArchiveRepo) RecordLot(ctx context.Context, scan domain.LotScan) error {
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO kanban_lot_scans (lot, station, device, scanned_at)
VALUES ($1,$2,$3,$4)
`, scan.Lot, string(scan.Station), scan.Device, scan.ScannedAt); err != nil {
		return fmt.Errorf("record lot %s: %w", scan.Lot, err)
	}
	return nil
}

// ListLots returns lot scans, most recent first.
func (r *ArchiveRepo) ListLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT lot, station, device, scanned_at
FROM kanban_lot_scans
ORDER BY scanned_at DESC, lot
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LotScan, 0)
	for rows.Next() {
		var (
			l       domain.LotScan
			station string
		)
		if err := rows.Scan(&l.Lot, &station, &l.Device, &l.ScannedAt); err != nil {
			return nil, err
		}
		l.Station = domain.Station(station)
		out = append(out, l)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (models.OrderRecord, error) {
	var (
		rec   models.OrderRecord
		stage string
	)
	err := s.Scan(&rec.OrderID, &rec.Model, &rec.PackingCode, &rec.RequiredQty, &rec.GoodQty,
		&rec.DefectQty, &rec.CompletedQty, &stage, &rec.FinishedAt)
	rec.Stage = domain.Stage(stage)
	return rec, err
}
