package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "warn", FormatJSON))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("dropped")
	log.Warn().Int("rule_id", 7).Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Expected exactly one JSON line, got %q", buf.String())
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, 7.0, entry["rule_id"])
}

func TestSetupWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "info", FormatConsole))

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestSetupWriter_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, SetupWriter(&buf, "loud", FormatJSON))
	assert.Error(t, SetupWriter(&buf, "info", "xml"))
}

func TestSetup(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, Setup("debug", FormatConsole))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Error(t, Setup("info", "xml"))
}
