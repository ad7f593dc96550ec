package xbox360

import (
	"encoding/binary"
	"io"
)

// InputStateSize is the length of one client->device frame on the stream.
const InputStateSize = 14

// RumbleStateSize is the length of one device->client frame on the stream.
const RumbleStateSize = 2

// InputState is the controller state streamed to the bus, laid out like
// XInput's XINPUT_GAMEPAD with a 32-bit button field.
//
//	 0-3: Buttons (LE uint32, lower 16 bits used)
//	   4: LT (0-255)
//	   5: RT (0-255)
//	 6-7: LX (LE int16)
//	 8-9: LY (LE int16)
//	10-11: RX (LE int16)
//	12-13: RY (LE int16)
type InputState struct {
	Buttons uint32
	LT, RT  uint8
	LX, LY  int16
	RX, RY  int16
}

// MarshalBinary encodes the state into its 14-byte frame.
func (x *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, InputStateSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	return b, nil
}

// UnmarshalBinary decodes a 14-byte frame.
func (x *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputStateSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// XRumbleState is the motor command the bus sends back while a game drives
// the pad's force feedback.
type XRumbleState struct {
	LeftMotor  uint8 // large, low frequency
	RightMotor uint8 // small, high frequency
}

func (r *XRumbleState) MarshalBinary() ([]byte, error) {
	return []byte{r.LeftMotor, r.RightMotor}, nil
}

func (r *XRumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < RumbleStateSize {
		return io.ErrUnexpectedEOF
	}
	r.LeftMotor = data[0]
	r.RightMotor = data[1]
	return nil
}
