package shared

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestSetupLoggerWritesStructuredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger, closer, err := SetupLogger("debug", path)
	require.NoError(t, err)
	logger.Info().Str("component", "test").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetupLoggerWithoutFile(t *testing.T) {
	logger, closer, err := SetupLogger("error", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestSetupTransportLoggerLevels(t *testing.T) {
	assert.Equal(t, charmlog.DebugLevel, SetupTransportLogger("debug").GetLevel())
	assert.Equal(t, charmlog.WarnLevel, SetupTransportLogger("warn").GetLevel())
	assert.Equal(t, charmlog.ErrorLevel, SetupTransportLogger("error").GetLevel())
	assert.Equal(t, charmlog.InfoLevel, SetupTransportLogger("anything").GetLevel())
}
