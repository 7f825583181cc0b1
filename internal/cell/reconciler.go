package cell

import (
	"fmt"

	"kanban-tracker/internal/domain"
)

// OnOutfeedScan buffers an outfeed scan for the PLC's next M104 poll. The
// slot holds one scan; a newer scan replaces an older one that the PLC has
// not consumed yet.
func (e *Engine) OnOutfeedScan(orderID, model string, qty int) error {
	e.lock()
	defer e.unlock()

	fields := map[string]any{"order_id": orderID, "model": model, "qty": qty}
	row, ok := e.ledger.FindRowByOrderID(orderID)
	if !ok {
		e.lg.Warn("outfeed_unknown_order", fields)
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if !e.outfeedExpected {
		e.lg.Warn("outfeed_not_expected", fields)
		return ErrOutfeedNotExpected
	}
	if e.verifying {
		e.lg.Warn("outfeed_verification_in_flight", fields)
		return ErrReconcileInFlight
	}

	if row != e.cursor.Row {
		fields["row"], fields["cursor_row"] = row, e.cursor.Row
		e.lg.Warn("outfeed_row_differs_from_cursor", fields)
	}
	if e.pending != nil {
		fields["replaced_order_id"] = e.pending.OrderID
	}
	e.pending = &domain.PendingOutfeed{Model: model, OrderID: orderID, Qty: qty}
	e.linkDirty = true
	e.lg.Info("outfeed_buffered", fields)
	return nil
}
