package archive

import (
	"context"
	"database/sql"

	"kanban-tracker/internal/config"
	"kanban-tracker/internal/connections/database"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/events"
	"kanban-tracker/internal/microservices/archive/repository"
	"kanban-tracker/internal/microservices/archive/service"
)

// Archive owns the database handle and the service that feeds it.
type Archive struct {
	db      *sql.DB
	Service *service.ArchiveService
}

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Archive, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := repository.NewArchiveRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db, Service: service.NewArchiveService(repo)}, nil
}

// Subscribe registers the archive on hub. Call it before anything publishes
// so the first orders are not missed.
func Subscribe(hub *events.Hub) (<-chan domain.Event, func()) {
	return hub.SubscribeLossless("archive")
}

// Run archives finished orders and lot scans from ch until ctx is cancelled
// or ch closes.
func (a *Archive) Run(ctx context.Context, ch <-chan domain.Event) error {
	return a.Service.Run(ctx, ch)
}

func (a *Archive) Close() error { return a.db.Close() }
