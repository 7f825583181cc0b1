package notificator

import (
	"context"

	"kanban-tracker/internal/connections/rabbitmq"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/events"
	"kanban-tracker/internal/microservices/notificator/service"
)

// Subscribe registers the notificator on hub. Presentation events may be
// dropped when the broker lags.
func Subscribe(hub *events.Hub) (<-chan domain.Event, func()) {
	return hub.Subscribe("notificator", 0)
}

// Start declares the exchange and publishes every event from ch to it until
// ctx is cancelled.
func Start(ctx context.Context, rmqClient *rabbitmq.Client, exchange, source string, ch <-chan domain.Event) error {
	svc := service.NewNotificatorService(rmqClient, exchange, source)
	if err := svc.Declare(); err != nil {
		return err
	}
	return svc.Run(ctx, ch)
}
