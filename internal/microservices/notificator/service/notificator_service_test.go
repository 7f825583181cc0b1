package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-tracker/internal/domain"
)

type fakeBroker struct {
	mu        sync.Mutex
	declared  []string
	published []amqp.Publishing
	exchanges []string
	fail      error
}

func (f *fakeBroker) DeclareFanout(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return nil
}

func (f *fakeBroker) Publish(_ context.Context, exchange, _ string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.exchanges = append(f.exchanges, exchange)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeBroker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

var at = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestNotify_PublishesEnvelope(t *testing.T) {
	b := &fakeBroker{}
	ns := NewNotificatorService(b, "kanban_events", "cell-1")
	require.NoError(t, ns.Declare())
	assert.Equal(t, []string{"kanban_events"}, b.declared)

	row := domain.RowView{Row: 2, OrderID: "123456789", Model: "4321", Stage: domain.StageRunning}
	require.NoError(t, ns.Notify(context.Background(), domain.Event{Kind: domain.EventOrderUpdated, Row: &row, At: at}))

	require.Len(t, b.published, 1)
	msg := b.published[0]
	assert.Equal(t, "kanban_events", b.exchanges[0])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "order_updated", msg.Type)
	assert.Equal(t, "123456789", msg.CorrelationId)
	assert.Equal(t, "cell-1", msg.Headers["x-source"])
	_, err := uuid.Parse(msg.MessageId)
	assert.NoError(t, err)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(msg.Body, &ev))
	assert.Equal(t, domain.EventOrderUpdated, ev.Kind)
	require.NotNil(t, ev.Row)
	assert.Equal(t, row.OrderID, ev.Row.OrderID)
}

func TestRun_SkipsFailedPublishes(t *testing.T) {
	b := &fakeBroker{fail: errors.New("connection reset")}
	ns := NewNotificatorService(b, "kanban_events", "cell-1")

	ch := make(chan domain.Event, 2)
	ch <- domain.Event{Kind: domain.EventLedgerCleared, At: at}
	ch <- domain.Event{Kind: domain.EventLedgerCleared, At: at}
	close(ch)
	assert.NoError(t, ns.Run(context.Background(), ch))
	assert.Zero(t, b.count())
}

func TestRun_StopsOnCancel(t *testing.T) {
	b := &fakeBroker{}
	ns := NewNotificatorService(b, "kanban_events", "cell-1")
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan domain.Event)
	done := make(chan error, 1)
	go func() { done <- ns.Run(ctx, ch) }()

	ch <- domain.Event{Kind: domain.EventLinkStatus, Link: &domain.LinkStatus{State: domain.StateReady}, At: at}
	assert.Eventually(t, func() bool { return b.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

type fakeConsumer struct {
	msgs   chan amqp.Delivery
	closed chan struct{}
}

func (f *fakeConsumer) ConsumeFanout(string) (<-chan amqp.Delivery, func() error, error) {
	return f.msgs, func() error { close(f.closed); return nil }, nil
}

func TestSubscribe_DecodesAndSkipsGarbage(t *testing.T) {
	fc := &fakeConsumer{msgs: make(chan amqp.Delivery, 3), closed: make(chan struct{})}
	body, err := json.Marshal(domain.Event{Kind: domain.EventLedgerCleared, At: at})
	require.NoError(t, err)
	fc.msgs <- amqp.Delivery{Body: []byte("{not json")}
	fc.msgs <- amqp.Delivery{Body: body}
	close(fc.msgs)

	out, err := Subscribe(context.Background(), fc, "kanban_events")
	require.NoError(t, err)

	var got []domain.Event
	for ev := range out {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventLedgerCleared, got[0].Kind)
	assert.True(t, got[0].At.Equal(at))

	select {
	case <-fc.closed:
	case <-time.After(time.Second):
		t.Fatal("consumer channel was not closed")
	}
}

func TestSubscribe_PropagatesConsumeError(t *testing.T) {
	_, err := Subscribe(context.Background(), failingConsumer{}, "x")
	assert.ErrorContains(t, err, "no channel")
}

type failingConsumer struct{}

func (failingConsumer) ConsumeFanout(string) (<-chan amqp.Delivery, func() error, error) {
	return nil, nil, errors.New("no channel")
}
