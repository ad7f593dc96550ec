//go:build !windows && !linux

package keyboard

import "log/slog"

func NewHook(_ *slog.Logger) (Hook, error) { return nil, ErrUnsupported }

func NewPoller(_ *slog.Logger) (Poller, error) { return nil, ErrUnsupported }
