package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNew_JSONWithRun(t *testing.T) {
	var buf bytes.Buffer
	l := WithRun(New(&buf, slog.LevelInfo, "json"), "01RUN")

	l.Debug("hidden")
	l.Info("order filled", "symbol", "AAPL")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "order filled", rec["msg"])
	assert.Equal(t, "AAPL", rec["symbol"])
	assert.Equal(t, "01RUN", rec["run_id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelWarn, "text").Warn("no signals to trade")
	assert.Contains(t, buf.String(), `msg="no signals to trade"`)
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), OrDefault(nil))

	l := New(&bytes.Buffer{}, slog.LevelInfo, "text")
	assert.Same(t, l, OrDefault(l))
}
