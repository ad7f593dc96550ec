// Package axis turns held keys into analog stick positions.
package axis

import (
	"github.com/overbind/overbind/internal/keybind"
	"github.com/overbind/overbind/internal/keystate"
)

// Profile holds the stick values of a target report format.
// Every axis only ever takes Neutral or one of the extremes.
type Profile struct {
	Name    string
	Neutral int16
	Left    int16
	Right   int16
	Up      int16
}

var (
	// X360 uses XInput's signed 16-bit thumb values, Y grows upward.
	X360 = Profile{Name: "x360", Neutral: 0, Left: -29000, Right: 29000, Up: 29000}
	// DS4 uses unsigned HID bytes centered at 128, Y grows downward.
	DS4 = Profile{Name: "ds4", Neutral: 128, Left: 5, Right: 250, Up: 5}
)

// Report is one snapshot of both sticks in profile units.
type Report struct {
	LX, LY int16
	RX, RY int16
}

// Neutral returns the report with both sticks centered.
func Neutral(p Profile) Report {
	return Report{LX: p.Neutral, LY: p.Neutral, RX: p.Neutral, RY: p.Neutral}
}

// Compute maps held keys to a report. Right wins over left when both are held.
func Compute(h keystate.Held, p Profile) Report {
	r := Neutral(p)

	switch {
	case h.IsHeld(keybind.LeftStickRight):
		r.LX = p.Right
	case h.IsHeld(keybind.LeftStickLeft):
		r.LX = p.Left
	}

	if h.IsHeld(keybind.RightStickUp) {
		r.RY = p.Up
	}
	return r
}
