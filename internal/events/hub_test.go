package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-tracker/internal/domain"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe("a", 4)
	defer cancelA()
	b, cancelB := h.Subscribe("b", 4)
	defer cancelB()

	h.Publish(domain.Event{Kind: domain.EventLedgerCleared})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, domain.EventLedgerCleared, (<-a).Kind)
	assert.Equal(t, domain.EventLedgerCleared, (<-b).Kind)
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("slow", 1)
	defer cancel()

	h.Publish(domain.Event{Kind: domain.EventOrderRegistered})
	h.Publish(domain.Event{Kind: domain.EventOrderUpdated})

	assert.Equal(t, uint64(1), h.Dropped())
	assert.Equal(t, domain.EventOrderRegistered, (<-ch).Kind)
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("x", 1)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	h.Publish(domain.Event{Kind: domain.EventLedgerCleared})
	assert.Zero(t, h.Dropped())
}

func TestHub_LosslessKeepsEveryEventInOrder(t *testing.T) {
	h := NewHub()
	ch, cancel := h.SubscribeLossless("archive")
	defer cancel()

	const n = 1000
	for i := 0; i < n; i++ {
		h.Publish(domain.Event{Kind: domain.EventOrderUpdated, Row: &domain.RowView{Row: i}})
	}

	for i := 0; i < n; i++ {
		select {
		case ev := <-ch:
			require.NotNil(t, ev.Row)
			require.Equal(t, i, ev.Row.Row)
		case <-time.After(time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}
	assert.Zero(t, h.Dropped())
}

func TestHub_LosslessCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.SubscribeLossless("archive")
	h.Publish(domain.Event{Kind: domain.EventLedgerCleared})
	cancel()
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				h.Publish(domain.Event{Kind: domain.EventLedgerCleared})
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
