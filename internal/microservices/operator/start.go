package operator

import (
	"context"
	"net/http"

	"kanban-tracker/internal/common/httpx"
	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/microservices/operator/handler"
	"kanban-tracker/internal/microservices/operator/service"
)

// NewHandler builds the operator API routes. archive may be nil.
func NewHandler(cell service.Cell, archive service.Archive) http.Handler {
	svc := service.NewOperatorService(cell, archive)
	return handler.Router(handler.New(svc))
}

// Start serves the operator API on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, cell service.Cell, archive service.Archive) error {
	logger.New("operator").Info("operator_listening", map[string]any{"addr": addr})
	return httpx.New(addr, NewHandler(cell, archive)).Run(ctx)
}
