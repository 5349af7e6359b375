package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, selectLevel(true, false))
	assert.Equal(t, zerolog.DebugLevel, selectLevel(true, true))
	assert.Equal(t, zerolog.WarnLevel, selectLevel(false, true))
	assert.Equal(t, zerolog.InfoLevel, selectLevel(false, false))
}

func TestNewWritesConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Console: &buf})
	require.NoError(t, err)
	defer l.Close()

	cl := Component(l.Logger, "engine")
	cl.Info().Str("commitment", "c-1").Msg("marked at risk")
	l.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "c-1", entry["commitment"])
	assert.Equal(t, "marked at risk", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Options{Workspace: dir, Verbose: true, Console: &buf})
	require.NoError(t, err)
	l.Debug().Msg("to file")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(FilePath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")
}
