package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cloudsdk/pkg/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		entries = append(entries, entry)
	}

	return entries
}

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(&buf, "warn")
	logger.Debug("dropped", nil)
	logger.Info("dropped", nil)
	logger.Warn("kept", map[string]interface{}{"status": 503})
	logger.Error("kept too", map[string]interface{}{"path": "/servers"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "kept", entries[0]["message"])
	assert.InDelta(t, 503, entries[0]["status"], 0)
	assert.Equal(t, "cloudsdk", entries[0]["component"])
	assert.Contains(t, entries[0], "time")

	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "/servers", entries[1]["path"])
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(&buf, "chatty")
	logger.Debug("dropped", nil)
	logger.Info("kept", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
}

func TestNewZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.NewZerolog(zerolog.New(&buf).With().Str("role", "cli").Logger())
	logger.Debug("HTTP Request", map[string]interface{}{"method": "GET"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "cli", entries[0]["role"])
	assert.Equal(t, "GET", entries[0]["method"])
}

func TestNewConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logging.NewConsole(&buf, "info").Info("authenticated", map[string]interface{}{"service": "compute/v2"})

	assert.Contains(t, buf.String(), "authenticated")
	assert.Contains(t, buf.String(), "service=compute/v2")
}

func TestNop(t *testing.T) {
	t.Parallel()

	logger := logging.Nop()
	logger.Error("nothing", nil)

	assert.Equal(t, zerolog.Disabled, logger.Zerolog().GetLevel())
}
