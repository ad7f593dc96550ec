package keybind_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/overbind/overbind/internal/keybind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    keybind.Binding
		wantErr error
		errLine int
	}{
		{
			name:  "plain hex lines",
			input: "41\n44\n20\n",
			want:  keybind.Binding{0x41, 0x44, 0x20},
		},
		{
			name:  "no trailing newline",
			input: "41\n44\n20",
			want:  keybind.Binding{0x41, 0x44, 0x20},
		},
		{
			name:  "crlf and prefix",
			input: "0x41\r\n 0X44 \r\nA0\r\n",
			want:  keybind.Binding{0x41, 0x44, 0xa0},
		},
		{
			name:  "extra lines ignored",
			input: "1e\n20\n39\nthis is ignored\n",
			want:  keybind.Binding{0x1e, 0x20, 0x39},
		},
		{
			name:    "too few lines",
			input:   "41\n44\n",
			wantErr: &keybind.ParseError{},
			errLine: 3,
		},
		{
			name:    "empty line",
			input:   "41\n\n20\n",
			wantErr: &keybind.ParseError{},
			errLine: 2,
		},
		{
			name:    "not hex",
			input:   "41\nzz\n20\n",
			wantErr: strconv.ErrSyntax,
			errLine: 2,
		},
		{
			name:    "out of range",
			input:   "41\n44\n10000\n",
			wantErr: strconv.ErrRange,
			errLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keybind.Parse(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				var pe *keybind.ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.errLine, pe.Line)
				if !errors.As(tt.wantErr, new(*keybind.ParseError)) {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSlotOrder(t *testing.T) {
	b, err := keybind.Parse(strings.NewReader("41\n44\n20\n"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x41), b.Code(keybind.LeftStickLeft))
	assert.Equal(t, uint32(0x44), b.Code(keybind.LeftStickRight))
	assert.Equal(t, uint32(0x20), b.Code(keybind.RightStickUp))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := keybind.Load(filepath.Join(dir, "nope.txt"))
		assert.ErrorIs(t, err, keybind.ErrNotFound)
	})

	t.Run("formatted file loads back", func(t *testing.T) {
		want := keybind.Binding{0x41, 0x44, 0x20}
		p := filepath.Join(dir, keybind.DefaultFileName)
		require.NoError(t, os.WriteFile(p, []byte(keybind.Format(want)), 0o644))

		got, err := keybind.Load(p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("existing OverBind file is the default", func(t *testing.T) {
		legacy := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(legacy, "OverBind_conf.txt"), []byte("25\n27\n26\n"), 0o644))

		got, err := keybind.Load(filepath.Join(legacy, keybind.DefaultFileName))
		require.NoError(t, err)
		assert.Equal(t, keybind.Binding{0x25, 0x27, 0x26}, got)
	})
}

func TestSlotString(t *testing.T) {
	assert.Equal(t, "left-stick-left", keybind.LeftStickLeft.String())
	assert.Equal(t, "right-stick-up", keybind.RightStickUp.String())
	assert.Equal(t, "slot(7)", keybind.Slot(7).String())
}
