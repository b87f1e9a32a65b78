package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "development", LogFormat: "json"}, &buf)
	logger.Debug("sheet fetched", slog.Int("rows", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sheet fetched", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Contains(t, entry, slog.SourceKey)
}

func TestNewLoggerProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "pretty"}, &buf)
	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=visible"))
}
