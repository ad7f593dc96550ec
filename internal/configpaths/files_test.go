package configpaths

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCandidatePathsUserFirst(t *testing.T) {
	tests := []struct {
		user  string
		which int
	}{
		{user: "my.json", which: 0},
		{user: "noext", which: 0},
		{user: "my.yml", which: 1},
		{user: "my.toml", which: 2},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			j, y, tm := ConfigCandidatePaths(tt.user)
			lists := [][]string{j, y, tm}
			require.NotEmpty(t, lists[tt.which])
			assert.Equal(t, tt.user, lists[tt.which][0])
			for i, l := range lists {
				if i != tt.which {
					assert.NotContains(t, l, tt.user)
				}
			}
		})
	}
}

func TestConfigCandidatePathsLocations(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("AppData", home)
	wd := t.TempDir()
	t.Chdir(wd)

	j, y, tm := ConfigCandidatePaths("")
	assert.Equal(t, filepath.Join(wd, "overbind.json"), j[0])
	assert.Contains(t, y, filepath.Join(wd, "run.yml"))
	assert.Contains(t, tm, filepath.Join(wd, "config.toml"))

	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Contains(t, j, filepath.Join(dir, "run.json"))
	if runtime.GOOS != "windows" {
		assert.Equal(t, filepath.Join(home, AppName), dir)
		assert.Contains(t, tm, "/etc/overbind/overbind.toml")
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, "yaml", Ext("yml"))
	assert.Equal(t, "toml", Ext("toml"))
	assert.Equal(t, "json", Ext("json"))
	assert.Equal(t, "json", Ext(""))
}
