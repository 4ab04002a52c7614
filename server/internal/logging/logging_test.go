package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/midistream/midistream/server/internal/config"
)

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	log, level, err := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("connected to MIDI device", zap.String("device", "Keyboard A"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"connected to MIDI device"`)
	assert.Contains(t, out, `"device":"Keyboard A"`)
	assert.NotContains(t, out, "hidden")

	require.NoError(t, SetLevel(level, "debug"))
	log.Debug("now visible")
	require.NoError(t, log.Sync())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestNew_Console(t *testing.T) {
	_, level, err := New(config.LogConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level.Level())
}

func TestNew_Invalid(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, _, err = New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestSetLevel_Invalid(t *testing.T) {
	level := zap.NewAtomicLevel()
	assert.Error(t, SetLevel(level, "loud"))
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}
