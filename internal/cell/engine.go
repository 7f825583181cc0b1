// Package cell owns the shared state of the kanban cell: the order ledger,
// the protocol cursor, the PLC handshake flags and the pending outfeed slot.
//
// Every exported method takes the engine lock for its whole duration, so a
// PLC transaction, a scan and an operator action never interleave. Events
// produced while the lock is held are published after it is released.
package cell

import (
	"errors"
	"sync"
	"time"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/events"
	"kanban-tracker/internal/ledger"
)

var (
	ErrUnknownOrder       = errors.New("order not in ledger")
	ErrOutfeedNotExpected = errors.New("outfeed scan not expected")
	ErrReconcileInFlight  = errors.New("outfeed verification in flight")
	ErrUnknownStation     = errors.New("unknown station")
)

type Option func(*Engine)

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.pub = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

type discard struct{}

func (discard) Publish(domain.Event) {}

type Engine struct {
	mu sync.Mutex

	ledger *ledger.Ledger
	cursor domain.Cursor

	plcReady        bool
	outfeedExpected bool
	verifying       bool // R104 sent, waiting for M105
	pending         *domain.PendingOutfeed

	connected bool
	state     string
	lastSeen  time.Time

	outbox    []domain.Event
	linkDirty bool

	pub events.Publisher
	now func() time.Time
	lg  *logger.Logger
}

func New(opts ...Option) *Engine {
	e := &Engine{
		cursor: domain.Cursor{Row: 0, Col: domain.ColumnQty},
		state:  domain.StateWaiting,
		pub:    discard{},
		now:    time.Now,
		lg:     logger.New("cell"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = ledger.New(
		ledger.WithClock(e.now),
		ledger.WithNotifier(ledger.NotifierFunc(func(ev domain.Event) {
			e.outbox = append(e.outbox, ev)
		})),
	)
	return e
}

func (e *Engine) lock() { e.mu.Lock() }

// unlock releases the lock and then publishes whatever the locked section
// produced.
func (e *Engine) unlock() {
	if e.linkDirty {
		st := e.statusLocked()
		e.outbox = append(e.outbox, domain.Event{Kind: domain.EventLinkStatus, Link: &st, At: e.now().UTC()})
		e.linkDirty = false
	}
	out := e.outbox
	e.outbox = nil
	e.mu.Unlock()

	for _, ev := range out {
		e.pub.Publish(ev)
	}
}

func (e *Engine) setState(s string) {
	if e.state != s {
		e.state = s
		e.linkDirty = true
	}
}

// RegisterInfeed adds a NEXT order unless orderID is already present.
func (e *Engine) RegisterInfeed(orderID, model, packingCode string, qty int) bool {
	return e.register(domain.Order{OrderID: orderID, Model: model, PackingCode: packingCode, RequiredQty: qty})
}

func (e *Engine) register(o domain.Order) bool {
	e.lock()
	defer e.unlock()

	created := e.ledger.Register(o)
	if !created {
		e.lg.Debug("infeed_duplicate", map[string]any{"order_id": o.OrderID})
		return false
	}
	e.lg.Info("order_registered", map[string]any{
		"order_id": o.OrderID, "model": o.Model, "required_qty": o.RequiredQty,
	})
	return true
}

// Ingest routes a decoded scan to infeed registration or outfeed
// reconciliation. For infeed scans created reports whether a row was added.
func (e *Engine) Ingest(ev domain.ScanEvent) (created bool, err error) {
	qty, err := parseScanQty(ev.Quantity)
	if err != nil {
		return false, err
	}
	switch ev.Station {
	case domain.StationInfeed:
		return e.register(domain.Order{
			OrderID:     ev.OrderID,
			Model:       ev.Model,
			PackingCode: ev.PackingCode,
			RefNo:       ev.RefNo,
			UnitCode:    ev.UnitCode,
			RequiredQty: qty,
		}), nil
	case domain.StationOutfeed:
		return false, e.OnOutfeedScan(ev.OrderID, ev.Model, qty)
	}
	return false, ErrUnknownStation
}

// RecordLot publishes a lot label scan. The ledger is not touched.
func (e *Engine) RecordLot(scan domain.LotScan) domain.LotScan {
	e.lock()
	defer e.unlock()

	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = e.now().UTC()
	}
	lot := scan
	e.outbox = append(e.outbox, domain.Event{Kind: domain.EventLotScanned, Lot: &lot, At: scan.ScannedAt})
	e.lg.Info("lot_number_scanned", map[string]any{
		"lot": scan.Lot, "station": string(scan.Station), "device": scan.Device,
	})
	return scan
}

func (e *Engine) Order(row int) (domain.Order, error) {
	e.lock()
	defer e.unlock()
	return e.ledger.Get(row)
}

func (e *Engine) FindRowByOrderID(orderID string) (int, bool) {
	e.lock()
	defer e.unlock()
	return e.ledger.FindRowByOrderID(orderID)
}

func (e *Engine) Snapshot() []domain.RowView {
	e.lock()
	defer e.unlock()
	return e.ledger.Snapshot()
}

func (e *Engine) Status() domain.LinkStatus {
	e.lock()
	defer e.unlock()
	return e.statusLocked()
}

// View returns the rows and the link status from one consistent moment.
func (e *Engine) View() domain.LedgerResponse {
	e.lock()
	defer e.unlock()
	return domain.LedgerResponse{Rows: e.ledger.Snapshot(), Status: e.statusLocked()}
}

func (e *Engine) statusLocked() domain.LinkStatus {
	st := domain.LinkStatus{
		Connected:       e.connected,
		PLCReady:        e.plcReady,
		OutfeedExpected: e.outfeedExpected,
		Cursor:          e.cursor,
		State:           e.state,
		LastSeen:        e.lastSeen,
	}
	if e.pending != nil {
		p := *e.pending
		st.Pending = &p
	}
	return st
}
