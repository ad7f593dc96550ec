package dualshock4_test

import (
	"io"
	"testing"

	"github.com/overbind/overbind/device/dualshock4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStickConversion(t *testing.T) {
	tests := []struct {
		hid    uint8
		stream int8
	}{
		{128, 0},
		{5, -123},
		{250, 122},
		{0, -128},
		{255, 127},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.stream, dualshock4.StickFromHID(tt.hid), "from %d", tt.hid)
		assert.Equal(t, tt.hid, dualshock4.StickToHID(tt.stream), "to %d", tt.stream)
	}
}

func TestRestFrame(t *testing.T) {
	s := dualshock4.Rest()
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, dualshock4.InputStateSize)

	want := make([]byte, dualshock4.InputStateSize)
	want[29], want[30] = 0x61, 0xec // -5023
	assert.Equal(t, want, b)

	var back dualshock4.InputState
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, s, back)
}

func TestStickFrame(t *testing.T) {
	s := dualshock4.InputState{LX: dualshock4.StickFromHID(250), RY: dualshock4.StickFromHID(5), Touch1Active: true}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, byte(122), b[0])
	assert.Equal(t, byte(0), b[1])
	assert.Equal(t, byte(0), b[2])
	assert.Equal(t, byte(0x85), b[3])
	assert.Equal(t, byte(1), b[13])
}

func TestOutputState(t *testing.T) {
	var o dualshock4.OutputState
	assert.ErrorIs(t, o.UnmarshalBinary([]byte{1, 2, 3}), io.ErrUnexpectedEOF)

	require.NoError(t, o.UnmarshalBinary([]byte{1, 2, 0xff, 0, 0x40, 10, 20}))
	assert.Equal(t, dualshock4.OutputState{RumbleSmall: 1, RumbleLarge: 2, LedRed: 0xff, LedBlue: 0x40, FlashOn: 10, FlashOff: 20}, o)

	b, err := o.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0xff, 0, 0x40, 10, 20}, b)
}
