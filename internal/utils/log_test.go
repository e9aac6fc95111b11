package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executor.log")
	logger, cleanup, err := NewLogger(LogOptions{File: path, Level: "debug", ConsoleLevel: "error"})
	require.NoError(t, err)

	logger.Debug("twap_slice_fired", zap.Int("index", 1))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "twap_slice_fired", rec["event"])
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, float64(1), rec["index"])
	assert.Contains(t, rec, "timestamp")
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, _, err := NewLogger(LogOptions{Level: "loud"})
	assert.Error(t, err)
}
