package cell

import (
	"kanban-tracker/internal/domain"
)

// ResetOne returns row to NEXT and points the cursor at it. Counters are
// kept. A different row left RUNNING under the old cursor goes back to
// NEXT as well, so at most one order is ever in flight.
func (e *Engine) ResetOne(row int) error {
	e.lock()
	defer e.unlock()

	if _, err := e.ledger.Get(row); err != nil {
		return err
	}
	if cur, err := e.ledger.Get(e.cursor.Row); err == nil && e.cursor.Row != row && cur.Stage == domain.StageRunning {
		_ = e.ledger.ResetOne(e.cursor.Row)
	}
	if err := e.ledger.ResetOne(row); err != nil {
		return err
	}
	e.cursor = domain.Cursor{Row: row, Col: domain.ColumnQty}
	e.endRound()
	e.setState(domain.StateWaiting)
	e.lg.Info("operator_reset_one", map[string]any{"row": row})
	return nil
}

// ResetAll returns every row to NEXT and rewinds the cursor.
func (e *Engine) ResetAll() {
	e.lock()
	defer e.unlock()

	e.ledger.ResetAll()
	e.cursor = domain.Cursor{Row: 0, Col: domain.ColumnQty}
	e.endRound()
	e.setState(domain.StateWaiting)
	e.lg.Info("operator_reset_all", map[string]any{"rows": e.ledger.Len()})
}

// ClearLedger drops every order and rewinds the cursor.
func (e *Engine) ClearLedger() {
	e.lock()
	defer e.unlock()

	n := e.ledger.Len()
	e.ledger.Clear()
	e.cursor = domain.Cursor{Row: 0, Col: domain.ColumnQty}
	e.endRound()
	e.setState(domain.StateWaiting)
	e.lg.Info("operator_clear", map[string]any{"rows": n})
}
