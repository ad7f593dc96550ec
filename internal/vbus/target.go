package vbus

import (
	"encoding"
	"fmt"
	"strings"

	"github.com/overbind/overbind/apiclient"
	"github.com/overbind/overbind/device/dualshock4"
	"github.com/overbind/overbind/device/xbox360"
	"github.com/overbind/overbind/internal/axis"
)

// Kind selects the emulated controller.
type Kind int

const (
	X360 Kind = iota
	DS4
)

// ParseKind accepts the names used on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "x360", "xbox360":
		return X360, nil
	case "ds4", "dualshock4":
		return DS4, nil
	default:
		return 0, fmt.Errorf("unknown controller kind %q", s)
	}
}

func (k Kind) String() string {
	switch k {
	case X360:
		return "x360"
	case DS4:
		return "ds4"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DeviceType is the type name used when plugging the pad into the bus.
func (k Kind) DeviceType() string {
	if k == DS4 {
		return dualshock4.DeviceType
	}
	return xbox360.DeviceType
}

// Profile returns the stick value range of the kind's report format.
func (k Kind) Profile() axis.Profile {
	if k == DS4 {
		return axis.DS4
	}
	return axis.X360
}

// Encode wraps r in the kind's stream state. Buttons, triggers and motion
// stay at rest.
func (k Kind) Encode(r axis.Report) encoding.BinaryMarshaler {
	if k == DS4 {
		s := dualshock4.Rest()
		s.LX = dualshock4.StickFromHID(uint8(r.LX))
		s.LY = dualshock4.StickFromHID(uint8(r.LY))
		s.RX = dualshock4.StickFromHID(uint8(r.RX))
		s.RY = dualshock4.StickFromHID(uint8(r.RY))
		return &s
	}
	return &xbox360.InputState{LX: r.LX, LY: r.LY, RX: r.RX, RY: r.RY}
}

// Target is a virtual pad. It is allocated unplugged, plugged by
// Client.AddTarget and unplugged by Client.RemoveTarget.
type Target struct {
	kind   Kind
	busID  uint32
	devID  string
	stream *apiclient.DeviceStream
	freed  bool
}

// AllocateTarget returns an unplugged target of the given kind.
func AllocateTarget(kind Kind) *Target {
	return &Target{kind: kind}
}

func (t *Target) Kind() Kind { return t.kind }

// Plugged reports whether the target currently has a device on the bus.
func (t *Target) Plugged() bool { return t.stream != nil }

// ID returns the bus-device id, e.g. "1-2", once plugged.
func (t *Target) ID() string {
	if t.devID == "" {
		return ""
	}
	return fmt.Sprintf("%d-%s", t.busID, t.devID)
}

// Free releases the target. A plugged target must be removed first.
func (t *Target) Free() error {
	if t.Plugged() {
		return fmt.Errorf("free target %s: still plugged", t.ID())
	}
	t.freed = true
	return nil
}
