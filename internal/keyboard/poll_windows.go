//go:build windows

package keyboard

import "log/slog"

type asyncPoller struct{}

// NewPoller returns a poller backed by GetAsyncKeyState.
func NewPoller(_ *slog.Logger) (Poller, error) {
	return asyncPoller{}, nil
}

func (asyncPoller) IsDown(code uint32) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(code))
	return r&0x8000 != 0
}

func (asyncPoller) Close() error { return nil }
