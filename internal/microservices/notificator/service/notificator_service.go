package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/domain"
)

const publishTimeout = 5 * time.Second

// Broker is the publishing side of the RabbitMQ client.
type Broker interface {
	DeclareFanout(name string) error
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// NotificatorService mirrors cell events onto a fanout exchange so remote
// dashboards can follow the line.
type NotificatorService struct {
	broker   Broker
	exchange string
	source   string
	lg       *logger.Logger
}

func NewNotificatorService(broker Broker, exchange, source string) *NotificatorService {
	return &NotificatorService{
		broker:   broker,
		exchange: exchange,
		source:   source,
		lg:       logger.New("notificator"),
	}
}

func (ns *NotificatorService) Declare() error {
	return ns.broker.DeclareFanout(ns.exchange)
}

// Notify publishes one event as a persistent JSON message.
func (ns *NotificatorService) Notify(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Kind, err)
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Type:         string(ev.Kind),
		Timestamp:    ev.At.UTC(),
		Headers: amqp.Table{
			"x-source": ns.source,
		},
		Body: body,
	}
	if ev.Row != nil {
		msg.CorrelationId = ev.Row.OrderID
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ns.broker.Publish(pctx, ns.exchange, "", msg)
}

// Run forwards events until the channel closes or ctx is done. A failed
// publish is logged and the event is skipped.
func (ns *NotificatorService) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := ns.Notify(ctx, ev); err != nil {
				ns.lg.Error("event_publish_failed", err, map[string]any{"kind": string(ev.Kind), "exchange": ns.exchange})
				continue
			}
			ns.lg.Debug("event_published", map[string]any{"kind": string(ev.Kind)})
		}
	}
}
