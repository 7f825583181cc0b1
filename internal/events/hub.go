// Package events fans state-change notifications out to presentation sinks.
package events

import (
	"sync"
	"sync/atomic"

	"kanban-tracker/internal/domain"
)

const defaultBuffer = 256

// Publisher accepts events. Publish never blocks.
type Publisher interface {
	Publish(ev domain.Event)
}

type subscriber struct {
	name string
	ch   chan domain.Event
	q    *queue // set for lossless subscribers
}

// Hub delivers every published event to all subscribers. A subscriber whose
// buffer is full misses the event; the miss is counted.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe(name string, buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	s := &subscriber{name: name, ch: make(chan domain.Event, buffer)}
	h.subs[id] = s
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

// SubscribeLossless registers a subscriber that never misses an event.
// Publish appends to an unbounded queue that a pump goroutine drains into
// the returned channel, so a slow reader costs memory instead of events.
func (h *Hub) SubscribeLossless(name string) (<-chan domain.Event, func()) {
	q := &queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan domain.Event),
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{name: name, q: q}
	h.mu.Unlock()
	go q.pump()

	var once sync.Once
	return q.out, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(q.done)
		})
	}
}

func (h *Hub) Publish(ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.q != nil {
			s.q.push(ev)
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber lagged.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

type queue struct {
	mu    sync.Mutex
	items []domain.Event
	wake  chan struct{}
	done  chan struct{}
	out   chan domain.Event
}

func (q *queue) push(ev domain.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}
		ev := q.items[0]
		q.items[0] = domain.Event{}
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case q.out <- ev:
		case <-q.done:
			return
		}
	}
}
