// Package keyboard delivers physical key transitions from the OS, either as
// a stream of events (Hook) or as on-demand state queries (Poller).
//
// Key codes are platform codes: virtual-key codes on Windows, evdev KEY_*
// codes on Linux.
package keyboard

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by constructors on platforms without a keyboard
// source.
var ErrUnsupported = errors.New("keyboard input is not supported on this platform")

// Event is one key transition. Auto-repeat arrives as further presses.
type Event struct {
	Code    uint32
	Pressed bool
}

// Handler receives events on the source's own goroutine or thread. It must
// not block.
type Handler func(Event)

// Hook is an event-driven keyboard source.
type Hook interface {
	// Run installs the hook and delivers events to h until ctx is done. A
	// failure to install is returned immediately.
	Run(ctx context.Context, h Handler) error
}

// Poller answers whether a key is down right now.
type Poller interface {
	IsDown(code uint32) bool
	Close() error
}

// Dispatch hands ev to h and then always calls next, which passes the event
// on to the rest of the system. next's result is returned.
func Dispatch(ev Event, h Handler, next func() uintptr) (ret uintptr) {
	defer func() { ret = next() }()
	if h != nil {
		h(ev)
	}
	return 0
}
