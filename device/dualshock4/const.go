// Package dualshock4 holds the stream wire format of a virtual DualShock 4.
package dualshock4

// DeviceType is the type name the bus API registers the pad under.
const DeviceType = "dualshock4"

const (
	InputStateSize  = 31
	OutputStateSize = 7
)

const (
	ButtonSquare   uint16 = 0x0010
	ButtonCross    uint16 = 0x0020
	ButtonCircle   uint16 = 0x0040
	ButtonTriangle uint16 = 0x0080

	ButtonL1      uint16 = 0x0100
	ButtonR1      uint16 = 0x0200
	ButtonL2      uint16 = 0x0400
	ButtonR2      uint16 = 0x0800
	ButtonShare   uint16 = 0x1000
	ButtonOptions uint16 = 0x2000
	ButtonL3      uint16 = 0x4000
	ButtonR3      uint16 = 0x8000

	ButtonPS            uint16 = 0x0001
	ButtonTouchpadClick uint16 = 0x0002
)

// D-pad bits on the stream. Zero is centered.
const (
	DPadUp    = 0x01
	DPadDown  = 0x02
	DPadLeft  = 0x04
	DPadRight = 0x08
)

// Motion values are fixed-point: gyro in °/s * GyroCountsPerDps,
// accel in m/s² * AccelCountsPerMS2.
const (
	GyroCountsPerDps   = 16.0
	AccelCountsPerMS2  = 512.0
	StandardGravityMS2 = 9.81
)

// Accelerometer reading of a pad lying flat.
const (
	DefaultAccelXRaw int16 = 0
	DefaultAccelYRaw int16 = 0
	// -StandardGravityMS2 * AccelCountsPerMS2
	DefaultAccelZRaw int16 = -5023
)

// DefaultAccelRaw returns the flat-on-a-table accelerometer vector.
func DefaultAccelRaw() (x, y, z int16) {
	return DefaultAccelXRaw, DefaultAccelYRaw, DefaultAccelZRaw
}
