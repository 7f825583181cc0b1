// Package ledger holds the ordered collection of kanban orders seen at infeed.
//
// A Ledger is not safe for concurrent use; the cell engine owns it and
// serializes every call behind its own lock.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"kanban-tracker/internal/domain"
)

var (
	ErrNotFound = errors.New("row not found")
	ErrBadField = errors.New("bad field value")
)

// Notifier receives a notification for every row mutation.
type Notifier interface {
	Notify(ev domain.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev domain.Event)

func (f NotifierFunc) Notify(ev domain.Event) { f(ev) }

type Option func(*Ledger)

func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notify = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

type Ledger struct {
	orders []domain.Order
	index  map[string]int // order_id -> row

	notify Notifier
	now    func() time.Time
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		index:  make(map[string]int),
		notify: NotifierFunc(func(domain.Event) {}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterInfeed appends a new NEXT order unless orderID is already known.
func (l *Ledger) RegisterInfeed(orderID, model, packingCode string, qty int) bool {
	return l.Register(domain.Order{
		OrderID:     orderID,
		Model:       model,
		PackingCode: packingCode,
		RequiredQty: qty,
	})
}

// Register appends o as a fresh NEXT order with zero counters. It returns
// false, and changes nothing, when the order id is already present.
func (l *Ledger) Register(o domain.Order) bool {
	if _, ok := l.index[o.OrderID]; ok {
		return false
	}
	now := l.now().UTC()
	o.Stage = domain.StageNext
	o.GoodQty, o.DefectQty, o.CompletedQty = 0, 0, 0
	o.CreatedAt, o.UpdatedAt = now, now

	row := len(l.orders)
	l.orders = append(l.orders, o)
	l.index[o.OrderID] = row
	l.emit(domain.EventOrderRegistered, row)
	return true
}

func (l *Ledger) Len() int { return len(l.orders) }

func (l *Ledger) Get(row int) (domain.Order, error) {
	if !l.valid(row) {
		return domain.Order{}, fmt.Errorf("%w: %d", ErrNotFound, row)
	}
	return l.orders[row], nil
}

func (l *Ledger) FindRowByOrderID(orderID string) (int, bool) {
	row, ok := l.index[orderID]
	return row, ok
}

// SetField writes one mutable field. Counters take an int, the stage a
// domain.Stage.
func (l *Ledger) SetField(row int, field domain.Field, value any) error {
	if !l.valid(row) {
		return fmt.Errorf("%w: %d", ErrNotFound, row)
	}
	o := &l.orders[row]
	switch field {
	case domain.FieldGoodQty, domain.FieldDefectQty, domain.FieldCompletedQty:
		n, ok := value.(int)
		if !ok || n < 0 {
			return fmt.Errorf("%w: %s=%v", ErrBadField, field, value)
		}
		switch field {
		case domain.FieldGoodQty:
			o.GoodQty = n
		case domain.FieldDefectQty:
			o.DefectQty = n
		default:
			o.CompletedQty = n
		}
	case domain.FieldStage:
		st, ok := value.(domain.Stage)
		if !ok {
			return fmt.Errorf("%w: %s=%v", ErrBadField, field, value)
		}
		o.Stage = st
	default:
		return fmt.Errorf("%w: unknown field %q", ErrBadField, field)
	}
	o.UpdatedAt = l.now().UTC()
	l.emit(domain.EventOrderUpdated, row)
	return nil
}

// ResetOne returns a row to NEXT. Counters are kept for audit.
func (l *Ledger) ResetOne(row int) error {
	if !l.valid(row) {
		return fmt.Errorf("%w: %d", ErrNotFound, row)
	}
	return l.SetField(row, domain.FieldStage, domain.StageNext)
}

// ResetAll returns every row to NEXT.
func (l *Ledger) ResetAll() {
	for row := range l.orders {
		if l.orders[row].Stage != domain.StageNext {
			_ = l.SetField(row, domain.FieldStage, domain.StageNext)
		}
	}
}

// Clear drops every row.
func (l *Ledger) Clear() {
	l.orders = nil
	l.index = make(map[string]int)
	l.notify.Notify(domain.Event{Kind: domain.EventLedgerCleared, At: l.now().UTC()})
}

// NextOpen returns the first row at or after from whose stage is not
// COMPLETED, or Len() when there is none.
func (l *Ledger) NextOpen(from int) int {
	if from < 0 {
		from = 0
	}
	for row := from; row < len(l.orders); row++ {
		if l.orders[row].Stage != domain.StageCompleted {
			return row
		}
	}
	return len(l.orders)
}

func (l *Ledger) View(row int) (domain.RowView, error) {
	o, err := l.Get(row)
	if err != nil {
		return domain.RowView{}, err
	}
	return domain.NewRowView(row, o), nil
}

func (l *Ledger) Snapshot() []domain.RowView {
	out := make([]domain.RowView, 0, len(l.orders))
	for row, o := range l.orders {
		out = append(out, domain.NewRowView(row, o))
	}
	return out
}

func (l *Ledger) valid(row int) bool { return row >= 0 && row < len(l.orders) }

func (l *Ledger) emit(kind domain.EventKind, row int) {
	v := domain.NewRowView(row, l.orders[row])
	l.notify.Notify(domain.Event{Kind: kind, Row: &v, At: v.UpdatedAt})
}
