//go:build windows

package keyboard

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	hcAction     = 0

	wmQuit       = 0x0012
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type point struct{ X, Y int32 }

type winMsg struct {
	Hwnd    windows.HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// Only one low-level hook is installed per process; the callback trampoline
// is created once since Windows callbacks are never freed.
var (
	hookMu      sync.Mutex
	hookActive  bool
	hookHandler Handler
	hookOnce    sync.Once
	hookProcPtr uintptr
)

func hookProc(nCode int, wParam, lParam uintptr) uintptr {
	next := func() uintptr {
		r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
		return r
	}
	if nCode != hcAction {
		return next()
	}
	kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		return Dispatch(Event{Code: kb.VkCode, Pressed: true}, hookHandler, next)
	case wmKeyUp, wmSysKeyUp:
		return Dispatch(Event{Code: kb.VkCode, Pressed: false}, hookHandler, next)
	default:
		return next()
	}
}

type llHook struct {
	logger *slog.Logger
}

// NewHook returns a WH_KEYBOARD_LL hook. Events reach the handler on the
// hook's own locked OS thread, and every event is passed on to the next hook.
func NewHook(logger *slog.Logger) (Hook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &llHook{logger: logger}, nil
}

type hookStart struct {
	tid uint32
	err error
}

func (h *llHook) Run(ctx context.Context, handler Handler) error {
	hookMu.Lock()
	if hookActive {
		hookMu.Unlock()
		return fmt.Errorf("keyboard hook already installed")
	}
	hookActive = true
	hookMu.Unlock()
	defer func() {
		hookMu.Lock()
		hookActive = false
		hookMu.Unlock()
	}()

	hookOnce.Do(func() { hookProcPtr = syscall.NewCallback(hookProc) })

	started := make(chan hookStart, 1)
	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hookHandler = handler
		defer func() { hookHandler = nil }()

		var mod windows.Handle
		_ = windows.GetModuleHandleEx(0, nil, &mod)
		hhk, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookProcPtr, uintptr(mod), 0)
		if hhk == 0 {
			started <- hookStart{err: fmt.Errorf("SetWindowsHookEx: %w", err)}
			return
		}
		defer procUnhookWindowsHookEx.Call(hhk)
		started <- hookStart{tid: windows.GetCurrentThreadId()}

		var m winMsg
		for {
			r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			switch int32(r) {
			case 0:
				done <- nil
				return
			case -1:
				done <- fmt.Errorf("GetMessage: %w", err)
				return
			}
		}
	}()

	st := <-started
	if st.err != nil {
		return st.err
	}
	h.logger.Debug("Keyboard hook installed", "thread", st.tid)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		procPostThreadMessageW.Call(uintptr(st.tid), wmQuit, 0, 0)
		err := <-done
		h.logger.Debug("Keyboard hook removed")
		return err
	}
}
