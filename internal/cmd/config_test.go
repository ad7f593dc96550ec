package cmd

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/overbind/overbind/internal/keybind"

	toml "github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

func TestConfigTemplateRun(t *testing.T) {
	root, err := configTemplate("run")
	require.NoError(t, err)

	assert.Equal(t, keybind.DefaultFileName, root["bindings"])
	assert.Equal(t, "x360", root["controller"])
	assert.Equal(t, "event", root["mode"])
	assert.Equal(t, "1ms", root["pollInterval"])
	assert.Equal(t, "5s", root["connectionTimeout"])
	assert.Equal(t, map[string]any{"addr": "localhost:3242", "password": "", "bus": uint64(0)}, root["api"])
	assert.Equal(t, map[string]any{"level": "info", "file": "", "rawFile": ""}, root["log"])
	assert.NotContains(t, root, "newHook")

	_, err = configTemplate("server")
	assert.Error(t, err)
}

func TestConfigInitFormats(t *testing.T) {
	tests := []struct {
		format string
		decode func([]byte, any) error
	}{
		{"json", json.Unmarshal},
		{"yaml", yaml.Unmarshal},
		{"toml", toml.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "sub", "run."+tt.format)
			c := &ConfigInit{Command: "run", Format: tt.format, Output: dest}
			require.NoError(t, c.Run(slog.Default()))

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			var got map[string]any
			require.NoError(t, tt.decode(data, &got))
			assert.Equal(t, "x360", got["controller"])

			assert.Error(t, c.Run(slog.Default()), "existing file needs --force")
			c.Force = true
			assert.NoError(t, c.Run(slog.Default()))
		})
	}
}

func TestBindingsInit(t *testing.T) {
	t.Run("explicit codes", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "keys.txt")
		b := &BindingsInit{Codes: []string{"0x25", "27", "26"}, Output: dest}
		require.NoError(t, b.Run(slog.Default()))

		got, err := keybind.Load(dest)
		require.NoError(t, err)
		assert.Equal(t, keybind.Binding{0x25, 0x27, 0x26}, got)
	})

	t.Run("defaults", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "keys.txt")
		require.NoError(t, (&BindingsInit{Output: dest}).Run(slog.Default()))
		got, err := keybind.Load(dest)
		require.NoError(t, err)
		assert.Equal(t, defaultBinding(), got)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		dir := t.TempDir()
		assert.Error(t, (&BindingsInit{Codes: []string{"41", "44"}, Output: filepath.Join(dir, "a")}).Run(slog.Default()))

		err := (&BindingsInit{Codes: []string{"41", "44", "nothex"}, Output: filepath.Join(dir, "b")}).Run(slog.Default())
		var pErr *keybind.ParseError
		assert.ErrorAs(t, err, &pErr)
		assert.NoFileExists(t, filepath.Join(dir, "b"))
	})
}
