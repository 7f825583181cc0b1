package service

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/domain"
)

// Consumer is the consuming side of the RabbitMQ client.
type Consumer interface {
	ConsumeFanout(exchange string) (<-chan amqp.Delivery, func() error, error)
}

// Subscribe decodes cell events from the exchange. The returned channel is
// closed when ctx is done or the broker goes away.
func Subscribe(ctx context.Context, c Consumer, exchange string) (<-chan domain.Event, error) {
	msgs, closeCh, err := c.ConsumeFanout(exchange)
	if err != nil {
		return nil, err
	}
	lg := logger.New("notificator")

	out := make(chan domain.Event, 64)
	go func() {
		defer close(out)
		defer func() { _ = closeCh() }()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					lg.Warn("event_stream_closed", map[string]any{"exchange": exchange})
					return
				}
				var ev domain.Event
				if err := json.Unmarshal(d.Body, &ev); err != nil {
					lg.Error("event_decode_failed", err, map[string]any{"message_id": d.MessageId})
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
