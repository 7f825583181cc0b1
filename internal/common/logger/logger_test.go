package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesActionJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "debug"))
	t.Cleanup(func() { _ = Configure(os.Stdout, "info") })

	New("plc-link").Error("frame_rejected", errors.New("boom"), map[string]any{"peer": "10.0.0.5:4000"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "plc-link", entry["service"])
	assert.Equal(t, "frame_rejected", entry["action"])
	assert.Equal(t, "frame_rejected", entry["message"])
	assert.Equal(t, "10.0.0.5:4000", entry["peer"])
	assert.Contains(t, entry, "timestamp")
	assert.Equal(t, "boom", entry["error"].(map[string]any)["msg"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "warn"))
	t.Cleanup(func() { _ = Configure(os.Stdout, "info") })

	l := New("x")
	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	assert.Zero(t, buf.Len())

	l.Warn("shown", nil)
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	_, err := ParseLevel("loud")
	assert.Error(t, err)

	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())
}
