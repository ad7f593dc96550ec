package axis_test

import (
	"testing"

	"github.com/overbind/overbind/internal/axis"
	"github.com/overbind/overbind/internal/keybind"
	"github.com/overbind/overbind/internal/keystate"

	"github.com/stretchr/testify/assert"
)

var profiles = []axis.Profile{axis.X360, axis.DS4}

// allHeld enumerates every combination of the three flags.
func allHeld() []keystate.Held {
	out := make([]keystate.Held, 0, 1<<keybind.SlotCount)
	for mask := 0; mask < 1<<keybind.SlotCount; mask++ {
		var h keystate.Held
		for i := range h {
			h[i] = mask&(1<<i) != 0
		}
		out = append(out, h)
	}
	return out
}

func TestComputeTable(t *testing.T) {
	for _, p := range profiles {
		t.Run(p.Name, func(t *testing.T) {
			tests := []struct {
				name string
				held keystate.Held
				want axis.Report
			}{
				{"none", keystate.Held{}, axis.Neutral(p)},
				{"left", keystate.Held{true, false, false}, axis.Report{LX: p.Left, LY: p.Neutral, RX: p.Neutral, RY: p.Neutral}},
				{"right", keystate.Held{false, true, false}, axis.Report{LX: p.Right, LY: p.Neutral, RX: p.Neutral, RY: p.Neutral}},
				{"left and right", keystate.Held{true, true, false}, axis.Report{LX: p.Right, LY: p.Neutral, RX: p.Neutral, RY: p.Neutral}},
				{"up", keystate.Held{false, false, true}, axis.Report{LX: p.Neutral, LY: p.Neutral, RX: p.Neutral, RY: p.Up}},
				{"all", keystate.Held{true, true, true}, axis.Report{LX: p.Right, LY: p.Neutral, RX: p.Neutral, RY: p.Up}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					assert.Equal(t, tt.want, axis.Compute(tt.held, p))
				})
			}
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	for _, p := range profiles {
		for _, h := range allHeld() {
			first := axis.Compute(h, p)
			assert.Equal(t, first, axis.Compute(h, p), "%s %v not idempotent", p.Name, h)

			assert.Equal(t, p.Neutral, first.LY)
			assert.Equal(t, p.Neutral, first.RX)

			left, right := h.IsHeld(keybind.LeftStickLeft), h.IsHeld(keybind.LeftStickRight)
			switch {
			case right:
				assert.Equal(t, p.Right, first.LX, "%s %v", p.Name, h)
			case left:
				assert.Equal(t, p.Left, first.LX, "%s %v", p.Name, h)
			default:
				assert.Equal(t, p.Neutral, first.LX, "%s %v", p.Name, h)
			}

			if h.IsHeld(keybind.RightStickUp) {
				assert.Equal(t, p.Up, first.RY)
			} else {
				assert.Equal(t, p.Neutral, first.RY)
			}
		}
	}
}

func TestWASDScenario(t *testing.T) {
	p := axis.X360
	tr := keystate.New(keybind.Binding{0x41, 0x44, 0x20})

	tr.Apply(0x44, true)
	r := axis.Compute(tr.Held(), p)
	assert.Equal(t, p.Right, r.LX)
	assert.Equal(t, p.Neutral, r.RY)

	tr.Apply(0x44, false)
	tr.Apply(0x41, true)
	assert.Equal(t, p.Left, axis.Compute(tr.Held(), p).LX)

	tr.Apply(0x20, true)
	assert.Equal(t, p.Up, axis.Compute(tr.Held(), p).RY)

	tr.Apply(0x41, false)
	tr.Apply(0x20, false)
	assert.Equal(t, axis.Neutral(p), axis.Compute(tr.Held(), p))
}
