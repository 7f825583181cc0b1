package service

import (
	"context"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/microservices/archive/models"
	"kanban-tracker/internal/microservices/archive/repository"
)

type ArchiveServiceInterface interface {
	Apply(ctx context.Context, ev domain.Event) (bool, error)
	Run(ctx context.Context, events <-chan domain.Event) error
	GetOrder(ctx context.Context, orderID string) (models.OrderRecord, bool, error)
	ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error)
	GetTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error)
	ListLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error)
}

// ArchiveService writes an order to the archive each time it reaches
// COMPLETED or FAILED, and records every lot scan. It is fed by a single
// goroutine.
type ArchiveService struct {
	repo repository.ArchiveRepoInterface
	lg   *logger.Logger

	// last stage seen per order, so repeated updates of a finished row
	// are archived once
	last map[string]domain.Stage
}

func NewArchiveService(repo repository.ArchiveRepoInterface) *ArchiveService {
	return &ArchiveService{
		repo: repo,
		lg:   logger.New("archive"),
		last: make(map[string]domain.Stage),
	}
}

// Apply archives ev if it finishes an order or carries a lot scan. It reports
// whether a write happened.
func (s *ArchiveService) Apply(ctx context.Context, ev domain.Event) (bool, error) {
	switch ev.Kind {
	case domain.EventLotScanned:
		if ev.Lot == nil {
			return false, nil
		}
		if err := s.repo.RecordLot(ctx, *ev.Lot); err != nil {
			return false, err
		}
		return true, nil
	case domain.EventLedgerCleared:
		s.last = make(map[string]domain.Stage)
		return false, nil
	case domain.EventOrderRegistered, domain.EventOrderUpdated:
	default:
		return false, nil
	}
	if ev.Row == nil {
		return false, nil
	}

	row := *ev.Row
	prev, seen := s.last[row.OrderID]
	s.last[row.OrderID] = row.Stage
	if !row.Stage.Finished() || (seen && prev == row.Stage) {
		return false, nil
	}

	if err := s.repo.ArchiveTx(ctx, models.FromRow(row)); err != nil {
		return false, err
	}
	s.lg.Info("order_archived", map[string]any{
		"order_id": row.OrderID, "stage": string(row.Stage), "completed_qty": row.CompletedQty,
	})
	return true, nil
}

// Run consumes events until the channel closes or ctx is done. Write
// failures are logged; the order stays in memory on the cell.
func (s *ArchiveService) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := s.Apply(ctx, ev); err != nil {
				fields := map[string]any{"kind": string(ev.Kind)}
				if ev.Row != nil {
					fields["order_id"] = ev.Row.OrderID
				}
				if ev.Lot != nil {
					fields["lot"] = ev.Lot.Lot
				}
				s.lg.Error("archive_write_failed", err, fields)
			}
		}
	}
}

func (s *ArchiveService) GetOrder(ctx context.Context, orderID string) (models.OrderRecord, bool, error) {
	return s.repo.GetOrder(ctx, orderID)
}

func (s *ArchiveService) ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error) {
	return s.repo.ListOrders(ctx, limit, offset)
}

func (s *ArchiveService) GetTimeline(ctx context.Context, orderID string, limit, offset int) ([]models.StageEntry, error) {
	return s.repo.GetTimeline(ctx, orderID, limit, offset)
}

func (s *ArchiveService) ListLots(ctx context.Context, limit, offset int) ([]domain.LotScan, error) {
	return s.repo.ListLots(ctx, limit, offset)
}
