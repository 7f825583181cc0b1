package plclink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/protocol"
)

// Handler is the cell engine as seen by the link server.
type Handler interface {
	Touch()
	Handle(req protocol.Request) (protocol.Response, bool)
	CheckLiveness(timeout time.Duration) bool
	ListenerFailed(addr string, err error)
}

type Config struct {
	Addr            string
	ReadTimeout     time.Duration // zero waits forever
	WriteTimeout    time.Duration
	LivenessTimeout time.Duration // zero disables the watchdog
}

// Server accepts PLC connections one at a time. Each connection carries one
// request frame and receives at most one response frame before it is closed.
type Server struct {
	cfg Config
	h   Handler
	ln  net.Listener
	lg  *logger.Logger

	closeOnce sync.Once
}

// Listen binds the PLC port. A bind failure is reported to h and returned.
func Listen(cfg Config, h Handler) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		h.ListenerFailed(cfg.Addr, err)
		return nil, fmt.Errorf("plc listen %s: %w", cfg.Addr, err)
	}
	s := &Server{cfg: cfg, h: h, ln: ln, lg: logger.New("plc-link")}
	s.lg.Info("plc_listening", map[string]any{"addr": ln.Addr().String()})
	return s, nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.ln.Close() })
	return err
}

// Serve runs the accept loop until ctx is cancelled. Faults in a single
// exchange are logged and never stop the loop.
func (s *Server) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-stop:
		}
	}()
	if s.cfg.LivenessTimeout > 0 {
		go s.watchdog(stop)
	}

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.lg.Info("plc_listener_closed", nil)
				return nil
			}
			s.lg.Error("plc_accept_failed", err, nil)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	peer := conn.RemoteAddr().String()
	s.h.Touch()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	buf := make([]byte, protocol.MaxFrameSize)
	n, err := conn.Read(buf)
	if n == 0 {
		s.lg.Error("plc_read_failed", err, map[string]any{"peer": peer})
		return
	}

	req, err := protocol.Parse(buf[:n])
	if err != nil {
		s.lg.Warn("plc_frame_rejected", map[string]any{"peer": peer, "frame": string(buf[:n]), "reason": err.Error()})
		return
	}
	s.lg.Debug("plc_request", map[string]any{"peer": peer, "frame": req.String()})

	resp, ok := s.h.Handle(req)
	if !ok {
		return
	}
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := conn.Write(resp.Encode()); err != nil {
		s.lg.Error("plc_write_failed", err, map[string]any{"peer": peer, "frame": resp.String()})
		return
	}
	s.lg.Debug("plc_response", map[string]any{"peer": peer, "frame": resp.String()})
}

func (s *Server) watchdog(stop <-chan struct{}) {
	every := s.cfg.LivenessTimeout / 2
	if every <= 0 {
		every = s.cfg.LivenessTimeout
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.h.CheckLiveness(s.cfg.LivenessTimeout)
		}
	}
}
