package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(slog.LevelInfo, "text", &buf)

	logger.Info("heartbeat round", "ticks", 3)

	assert.Contains(t, buf.String(), "heartbeat round")
	assert.Contains(t, buf.String(), "ticks=3")
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(slog.LevelInfo, "JSON", &buf)

	logger.Info("job resolved", "key", "abc")

	assert.Contains(t, buf.String(), `"msg":"job resolved"`)
	assert.Contains(t, buf.String(), `"key":"abc"`)
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("should not appear")
	logger.Warn("should appear")

	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNewWithWriter_ComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(slog.LevelDebug, "text", &buf).With("component", "heartbeat")

	logger.Debug("tick", "interval", "300ms")

	assert.Contains(t, buf.String(), "component=heartbeat")
	assert.Contains(t, buf.String(), "interval=300ms")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}
