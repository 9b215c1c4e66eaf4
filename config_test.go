package sofctl_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/sofctl"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sofctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
socket = "/run/sof/ipc"
timeout = "250ms"
log_level = "debug"

[card]
name = "SOF Test"
`)

	cfg, err := sofctl.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/run/sof/ipc", cfg.Socket)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout.Duration)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "SOF Test", cfg.Card.Name)

	def := sofctl.DefaultConfig()
	assert.Equal(t, def.Shm, cfg.Shm, "unset keys keep their default")
	assert.Equal(t, def.Network, cfg.Network)
	assert.Equal(t, def.Card.ID, cfg.Card.ID)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"Syntax":   `socket = `,
		"Network":  `network = "tcp"`,
		"Timeout":  `timeout = "soon"`,
		"Negative": `timeout = "-1s"`,
		"LogLevel": `log_level = "loud"`,
		"NoSocket": `socket = ""`,
		"NoShm":    `shm = " "`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := sofctl.LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := sofctl.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultConfig(t *testing.T) {
	cfg := sofctl.DefaultConfig()
	require.NoError(t, cfg.Validate())

	text, err := cfg.Timeout.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}

func TestNewLogger(t *testing.T) {
	t.Setenv(sofctl.EnvLogLevel, "")

	var buf bytes.Buffer
	log := sofctl.NewLogger(&buf, "info")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log.Info().Str("ctl", "Mode").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sofctl", entry["component"])
	assert.Equal(t, "Mode", entry["ctl"])
	assert.Equal(t, "hello", entry["message"])

	assert.Equal(t, zerolog.WarnLevel, sofctl.NewLogger(&buf, "bogus").GetLevel())

	t.Setenv(sofctl.EnvLogLevel, "error")
	assert.Equal(t, zerolog.ErrorLevel, sofctl.NewLogger(&buf, "debug").GetLevel(), "the environment wins")
}
