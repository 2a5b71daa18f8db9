package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: "debug", Style: StyleJSON, Output: &buf})
	logger.Debug("frame written", zap.Int("index", 3))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "frame written", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 3, entry["index"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: "warn", Style: StyleLogfmt, Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: "loud", Output: &buf})
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_Noop(t *testing.T) {
	logger := NewLogger(&Config{Style: StyleNoop})
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
	assert.NotNil(t, NewLogger(nil))
}

func TestParseLevelAndStyle(t *testing.T) {
	l, err := ParseLevel("error")
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, l)
	_, err = ParseLevel("verbose")
	assert.Error(t, err)

	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleTerminal, s)
	s, err = ParseStyle("json")
	require.NoError(t, err)
	assert.Equal(t, StyleJSON, s)
	_, err = ParseStyle("xml")
	assert.Error(t, err)
}
