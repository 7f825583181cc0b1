package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/microservices/archive/models"
	"kanban-tracker/internal/microservices/scanner"
)

// ErrArchiveDisabled is returned by archive queries when no database is configured.
var ErrArchiveDisabled = errors.New("archive disabled")

// Cell is the part of the cell engine the operator console drives.
type Cell interface {
	View() domain.LedgerResponse
	Status() domain.LinkStatus
	ResetOne(row int) error
	ResetAll()
	ClearLedger()
	Ingest(ev domain.ScanEvent) (bool, error)
	RecordLot(scan domain.LotScan) domain.LotScan
}

// Archive answers queries about finished orders.
type Archive interface {
	GetOrder(ctx context.Context, orderID string) (models.OrderRecord, bool, error)
	ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error)
	GetTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error)
	ListLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error)
}

type OperatorServiceInterface interface {
	Ledger() domain.LedgerResponse
	Status() domain.LinkStatus
	ResetOne(row int) error
	ResetAll()
	Clear()
	Scan(req domain.ScanRequest) (domain.ScanResponse, error)
	ArchivedOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error)
	ArchivedTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error)
	ArchivedLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error)
}

// manualDevice names scans entered through the operator API.
const manualDevice = "operator"

type OperatorService struct {
	cell    Cell
	archive Archive // nil when the archive is disabled
	lg      *logger.Logger
}

func NewOperatorService(cell Cell, archive Archive) *OperatorService {
	return &OperatorService{cell: cell, archive: archive, lg: logger.New("operator")}
}

func (s *OperatorService) Ledger() domain.LedgerResponse { return s.cell.View() }

func (s *OperatorService) Status() domain.LinkStatus { return s.cell.Status() }

func (s *OperatorService) ResetOne(row int) error { return s.cell.ResetOne(row) }

func (s *OperatorService) ResetAll() { s.cell.ResetAll() }

func (s *OperatorService) Clear() { s.cell.ClearLedger() }

// Scan decodes a manually entered label and feeds it to the cell as if a
// scanner at req.Station had read it. Lot labels are recorded and reported
// in ScanResponse.Lot.
func (s *OperatorService) Scan(req domain.ScanRequest) (domain.ScanResponse, error) {
	station, err := scanner.ParseStation(req.Station)
	if err != nil {
		return domain.ScanResponse{}, fmt.Errorf("%w: %v", scanner.ErrUnrecognized, err)
	}
	ev, err := scanner.Decode(req.Line, station)
	if errors.Is(err, scanner.ErrLotNumber) {
		lot := s.cell.RecordLot(domain.LotScan{Lot: strings.TrimSpace(req.Line), Station: station, Device: manualDevice})
		return domain.ScanResponse{Lot: &lot}, nil
	}
	if err != nil {
		return domain.ScanResponse{}, err
	}
	created, err := s.cell.Ingest(ev)
	if err != nil {
		return domain.ScanResponse{Event: ev}, err
	}
	s.lg.Info("manual_scan", map[string]any{
		"station": string(station), "order_id": ev.OrderID, "created": created,
	})
	return domain.ScanResponse{Event: ev, Created: created}, nil
}

func (s *OperatorService) ArchivedOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.ListOrders(ctx, limit, offset)
}

func (s *OperatorService) ArchivedTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.GetTimeline(ctx, orderID, limit, offset)
}

func (s *OperatorService) ArchivedLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.ListLots(ctx, limit, offset)
}
