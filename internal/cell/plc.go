package cell

import (
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/protocol"
)

// counterStep describes one of the M101..M103 quantity reports: the column
// the cursor must be in, the field it writes and the column it moves to.
type counterStep struct {
	at    domain.Column
	field domain.Field
	next  domain.Column
}

var counterSteps = map[protocol.Command]counterStep{
	protocol.CmdGood:      {domain.ColumnGood, domain.FieldGoodQty, domain.ColumnDefect},
	protocol.CmdDefect:    {domain.ColumnDefect, domain.FieldDefectQty, domain.ColumnCompleted},
	protocol.CmdCompleted: {domain.ColumnCompleted, domain.FieldCompletedQty, domain.ColumnOutfeed},
}

// Handle applies one decoded PLC request to the cell and returns the reply,
// if any. Every check runs before the first mutation, so a request is
// either applied in full or ignored.
func (e *Engine) Handle(req protocol.Request) (protocol.Response, bool) {
	e.lock()
	defer e.unlock()

	if req.Cmd == protocol.CmdHeartbeat {
		return protocol.Response{}, false
	}

	row := e.cursor.Row
	o, err := e.ledger.Get(row)
	if err != nil || o.Stage == domain.StageCompleted {
		e.setState(domain.StateIdle)
		e.lg.Debug("plc_idle", map[string]any{"cmd": string(req.Cmd), "row": row})
		return protocol.Response{}, false
	}

	switch req.Cmd {
	case protocol.CmdReady:
		return e.handleReady(req, row, o)
	case protocol.CmdGood, protocol.CmdDefect, protocol.CmdCompleted:
		e.handleCounter(req, row, o)
		return protocol.Response{}, false
	case protocol.CmdOutfeed:
		return e.handleOutfeed(row, o)
	case protocol.CmdMatch:
		e.handleMatch(req, row, o)
		return protocol.Response{}, false
	}
	e.lg.Warn("plc_unhandled_command", map[string]any{"cmd": string(req.Cmd)})
	return protocol.Response{}, false
}

func (e *Engine) handleReady(req protocol.Request, row int, o domain.Order) (protocol.Response, bool) {
	if !req.OK() {
		e.setState(domain.StateNotReady)
		e.lg.Info("plc_not_ready", map[string]any{"status": req.Status, "row": row})
		return protocol.Response{}, false
	}
	if !e.plcReady {
		e.plcReady = true
		e.linkDirty = true
	}

	resp := protocol.Response{Cmd: protocol.RespQuantity, Model: o.Model, Qty: o.RequiredQty}
	switch {
	case o.Stage == domain.StageNext:
		_ = e.ledger.SetField(row, domain.FieldStage, domain.StageRunning)
		e.cursor.Col = domain.ColumnGood
		e.linkDirty = true
		e.setState(domain.StateReady)
		e.lg.Info("order_started", map[string]any{"row": row, "order_id": o.OrderID, "qty": o.RequiredQty})
		return resp, true
	case o.Stage == domain.StageRunning && e.cursor.Col == domain.ColumnGood:
		// No quantity report yet, so the PLC may have lost the first R100.
		e.lg.Info("order_instruction_resent", map[string]any{"row": row, "order_id": o.OrderID})
		return resp, true
	}
	return protocol.Response{}, false
}

func (e *Engine) handleCounter(req protocol.Request, row int, o domain.Order) {
	step := counterSteps[req.Cmd]
	fields := map[string]any{"cmd": string(req.Cmd), "row": row, "ref": req.Ref, "qty": req.Qty}

	if o.Stage != domain.StageRunning {
		e.lg.Warn("plc_counter_not_running", fields)
		return
	}
	if req.Ref != o.Model && req.Ref != o.OrderID {
		e.setState(domain.StateMismatch)
		e.lg.Warn("plc_kanban_mismatch", fields)
		return
	}
	if e.cursor.Col != step.at {
		fields["col"] = string(e.cursor.Col)
		e.lg.Warn("plc_counter_out_of_sequence", fields)
		return
	}

	_ = e.ledger.SetField(row, step.field, req.Qty)
	e.cursor.Col = step.next
	e.linkDirty = true
	e.setState(domain.StateCounting)
	e.lg.Info("order_counter_set", fields)
}

func (e *Engine) handleOutfeed(row int, o domain.Order) (protocol.Response, bool) {
	if o.Stage != domain.StageRunning || e.cursor.Col != domain.ColumnOutfeed {
		e.lg.Warn("plc_outfeed_out_of_sequence", map[string]any{"row": row, "col": string(e.cursor.Col)})
		return protocol.Response{}, false
	}
	if e.pending == nil {
		if !e.outfeedExpected {
			e.outfeedExpected = true
			e.linkDirty = true
		}
		e.setState(domain.StateAwaitingOutfeed)
		return protocol.Response{}, false
	}

	e.verifying = true
	e.setState(domain.StateVerifying)
	e.lg.Info("outfeed_verification_sent", map[string]any{
		"row": row, "order_id": e.pending.OrderID, "model": e.pending.Model, "qty": e.pending.Qty,
	})
	return protocol.Response{Cmd: protocol.RespOutfeed, Model: e.pending.Model, Qty: e.pending.Qty}, true
}

func (e *Engine) handleMatch(req protocol.Request, row int, o domain.Order) {
	if o.Stage != domain.StageRunning || e.cursor.Col != domain.ColumnOutfeed || !e.verifying {
		e.lg.Warn("plc_match_out_of_sequence", map[string]any{"row": row, "status": req.Status})
		return
	}

	e.endRound()
	if !req.OK() {
		_ = e.ledger.SetField(row, domain.FieldStage, domain.StageFailed)
		e.setState(domain.StateMismatch)
		e.lg.Warn("order_failed", map[string]any{"row": row, "order_id": o.OrderID, "status": req.Status})
		return
	}

	_ = e.ledger.SetField(row, domain.FieldStage, domain.StageCompleted)
	e.cursor = domain.Cursor{Row: e.ledger.NextOpen(row + 1), Col: domain.ColumnQty}
	e.setState(domain.StateCompleted)
	e.lg.Info("order_completed", map[string]any{"row": row, "order_id": o.OrderID, "next_row": e.cursor.Row})
}

// endRound clears the per-order handshake state.
func (e *Engine) endRound() {
	e.plcReady = false
	e.outfeedExpected = false
	e.verifying = false
	e.pending = nil
	e.linkDirty = true
}
