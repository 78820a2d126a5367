// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// lockedBuffer is a goroutine safe sink for captured log output.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// -- Test Cases --

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		sink := &lockedBuffer{}

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "repairfill",
			Colors:      config.ColorConfig{Info: "green"},
		}, sink)
		GetLogger().Named("parts").Info("Parts table completed")

		output := sink.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "Parts table completed")
		assert.Contains(t, output, colorGreen, "Info level should be colorized green")
		assert.Contains(t, output, colorReset)
		assert.Contains(t, output, "repairfill.parts.", "component names carry a dot suffix")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		sink := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "svc"}, sink)
		GetLogger().Warn("serial confirm escalated", zap.String("tier", "inline-handler"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(sink.String())), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "svc", entry["logger"])
		assert.Equal(t, "inline-handler", entry["tier"])
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		sink := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, sink)
		GetLogger().Info("dropped")
		GetLogger().Error("kept")

		assert.NotContains(t, sink.String(), "dropped")
		assert.Contains(t, sink.String(), "kept")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		sink := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, sink)
		GetLogger().Debug("hidden")
		GetLogger().Info("shown")

		assert.NotContains(t, sink.String(), "hidden")
		assert.Contains(t, sink.String(), "shown")
	})

	t.Run("only the first initialization wins", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		first, second := &lockedBuffer{}, &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)
		GetLogger().Info("once")

		assert.Contains(t, first.String(), "once")
		assert.Empty(t, second.String())
	})

	t.Run("should also write rotated json to the log file", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		logFile := filepath.Join(t.TempDir(), "repairfill.log")

		Initialize(config.LoggerConfig{Level: "info", Format: "console", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&lockedBuffer{}))
		GetLogger().Info("to file", zap.Int("rows", 2))
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
		assert.Contains(t, string(data), `"rows":2`)
	})
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("fallback works") })
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(config.LoggerConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(config.LoggerConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestTailLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repairfill.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n{\"msg\":\"three\"}"), 0o644))

	var lines []string
	err := TailLogFile(context.Background(), path, false, func(l string) { lines = append(lines, l) })
	require.NoError(t, err)
	assert.Equal(t, []string{`{"msg":"one"}`, `{"msg":"two"}`, `{"msg":"three"}`}, lines)

	err = TailLogFile(context.Background(), filepath.Join(t.TempDir(), "missing.log"), false, func(string) {})
	assert.Error(t, err)
}
