package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestOutput_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(output(Config{}, &buf))

	log.Info().Str("component", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
}

func TestOutput_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rbsa.log")
	var buf bytes.Buffer
	log := zerolog.New(output(Config{File: path, Pretty: true}, &buf))

	log.Warn().Msg("written twice")

	assert.Contains(t, buf.String(), "written twice")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "file output stays JSON")
	assert.Equal(t, "warn", entry["level"])
}
