package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-tracker/internal/cell"
	"kanban-tracker/internal/config"
	"kanban-tracker/internal/microservices/plclink"
)

func TestSend_PrintsReplies(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	e := cell.New()
	e.RegisterInfeed("123456789", "4321", "1A", 10)

	srv, err := plclink.Listen(plclink.Config{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, e)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	out, _, err := execute(t, "", "send", "--addr", srv.Addr().String(), "M100|200", "M101|4321|9")
	require.NoError(t, err)
	assert.Equal(t, "M100|200 -> R100|4321|10\nM101|4321|9 -> (no response)\n", out)
}

func TestSend_Unreachable(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	_, _, err := execute(t, "", "send", "--addr", "127.0.0.1:1", "--timeout", "200ms", "M106")
	assert.ErrorContains(t, err, "dial 127.0.0.1:1")
}

func TestDialAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:65432", dialAddr(":65432"))
	assert.Equal(t, "plc.local:1", dialAddr("plc.local:1"))
}
