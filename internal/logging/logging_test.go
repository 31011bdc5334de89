package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" info ", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"verbose", slog.LevelDebug},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levelFromString(tc.in), tc.in)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)
	logger.Info("run finished", "persisted", 2)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.EqualValues(t, 2, entry["persisted"])
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New("debug", "text", &buf).Debug("hello", "topic", "AI")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "topic=AI")
}

func TestAutoFormatFallsBackToJSONForPlainWriters(t *testing.T) {
	var buf bytes.Buffer
	New("info", "auto", &buf).Info("x")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
