// Package keystate tracks which bound keys are currently held.
package keystate

import "github.com/overbind/overbind/internal/keybind"

// Held has one flag per binding slot.
type Held [keybind.SlotCount]bool

// IsHeld reports whether the key bound to s is held.
func (h Held) IsHeld(s keybind.Slot) bool { return h[s] }

// Tracker owns the held flags for a binding. It is not safe for concurrent use;
// a keyboard source delivers events from a single thread.
type Tracker struct {
	binding keybind.Binding
	held    Held
}

// New returns a Tracker with every key released.
func New(b keybind.Binding) *Tracker {
	return &Tracker{binding: b}
}

// Binding returns the binding the tracker was created with.
func (t *Tracker) Binding() keybind.Binding { return t.binding }

// Apply records a press or release of code. matched is false when code is not
// bound to any slot, in which case the state is untouched. changed reports
// whether any held flag flipped.
func (t *Tracker) Apply(code uint32, pressed bool) (matched, changed bool) {
	for _, s := range keybind.Slots {
		if t.binding[s] != code {
			continue
		}
		matched = true
		if t.Set(s, pressed) {
			changed = true
		}
	}
	return matched, changed
}

// Set forces the flag for s and reports whether it changed.
func (t *Tracker) Set(s keybind.Slot, held bool) bool {
	if t.held[s] == held {
		return false
	}
	t.held[s] = held
	return true
}

// Held returns a snapshot of the flags.
func (t *Tracker) Held() Held { return t.held }

// Reset releases every key.
func (t *Tracker) Reset() { t.held = Held{} }
