package plclink

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"kanban-tracker/internal/protocol"
)

// Send performs one PLC-side exchange: connect, write frame, read until the
// server closes. An empty reply means the server had nothing to say.
func Send(ctx context.Context, addr, frame string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write([]byte(frame)); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	reply, err := io.ReadAll(io.LimitReader(conn, protocol.MaxFrameSize))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSpace(string(reply)), nil
}
