package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	handler = newHandler(os.Stdout, slog.LevelInfo)
	host    = hostname()
)

// Configure redirects every logger to w at the given level
// (debug, info, warn, error).
func Configure(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	handler = newHandler(w, lvl)
	mu.Unlock()
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Logger writes one JSON object per line tagged with the service name and
// an action describing what happened.
type Logger struct{ service string }

func New(service string) *Logger { return &Logger{service: service} }

func (l *Logger) log(level slog.Level, action string, fields map[string]any, err error) {
	mu.RLock()
	h := handler
	mu.RUnlock()
	if !h.Enabled(context.Background(), level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+4)
	attrs = append(attrs,
		slog.String("service", l.service),
		slog.String("action", action),
		slog.String("hostname", host),
	)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("type", fmt.Sprintf("%T", err)),
		))
	}
	slog.New(h).LogAttrs(context.Background(), level, action, attrs...)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.log(slog.LevelInfo, action, fields, nil)
}
func (l *Logger) Debug(action string, fields map[string]any) {
	l.log(slog.LevelDebug, action, fields, nil)
}
func (l *Logger) Warn(action string, fields map[string]any) {
	l.log(slog.LevelWarn, action, fields, nil)
}
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, fields, err)
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
}

func hostname() string { h, _ := os.Hostname(); return h }
