package cell

import (
	"strings"
	"time"

	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/protocol"
)

// Touch records PLC activity. The link server calls it for every accepted
// connection, whether or not the frame decodes.
func (e *Engine) Touch() {
	e.lock()
	defer e.unlock()
	e.lastSeen = e.now().UTC()
	if !e.connected {
		e.connected = true
		e.linkDirty = true
	}
}

// CheckLiveness marks the link offline when the PLC has been silent for
// longer than timeout. It reports whether the link went offline now.
func (e *Engine) CheckLiveness(timeout time.Duration) bool {
	e.lock()
	defer e.unlock()
	if !e.connected || timeout <= 0 {
		return false
	}
	if e.now().Sub(e.lastSeen) <= timeout {
		return false
	}
	e.connected = false
	e.setState(domain.StateOffline)
	e.linkDirty = true
	e.lg.Warn("plc_liveness_lost", map[string]any{"last_seen": e.lastSeen, "timeout": timeout.String()})
	return true
}

// ListenerFailed reports that the PLC listener could not bind.
func (e *Engine) ListenerFailed(addr string, err error) {
	e.lock()
	defer e.unlock()
	e.connected = false
	e.setState(domain.StateBindFailed)
	e.linkDirty = true
	e.lg.Error("plc_listener_failed", err, map[string]any{"addr": addr})
}

func parseScanQty(s string) (int, error) {
	return protocol.ParseQty(strings.TrimSpace(s))
}
