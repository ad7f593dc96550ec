//go:build linux

package keyboard

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	evKey  = 0x01
	keyA   = 30
	keyMax = 0x2ff

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2

	iocRead = 2
)

var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// DevicesGlob is where keyboards are looked up.
var DevicesGlob = "/dev/input/event*"

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | uintptr('E')<<8 | nr
}

func eviocgbit(ev, size uintptr) uintptr { return ioc(iocRead, 0x20+ev, size) }
func eviocgkey(size uintptr) uintptr     { return ioc(iocRead, 0x18, size) }

// ioctlBuf goes through SyscallConn so the file stays in non-blocking mode
// and Close still interrupts pending reads.
func ioctlBuf(f *os.File, req uintptr, buf []byte) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var errno unix.Errno
	err = rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(&buf[0])))
	})
	if err != nil {
		return err
	}
	if errno != 0 {
		return errno
	}
	return nil
}

func bitSet(buf []byte, bit int) bool {
	return bit/8 < len(buf) && buf[bit/8]&(1<<(bit%8)) != 0
}

// openKeyboards opens every event device that reports EV_KEY with letter keys.
func openKeyboards(logger *slog.Logger) ([]*os.File, error) {
	paths, err := filepath.Glob(DevicesGlob)
	if err != nil {
		return nil, err
	}
	var out []*os.File
	var lastErr error
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			lastErr = err
			continue
		}
		evBits := make([]byte, 4)
		keyBits := make([]byte, keyMax/8+1)
		if ioctlBuf(f, eviocgbit(0, uintptr(len(evBits))), evBits) != nil ||
			!bitSet(evBits, evKey) ||
			ioctlBuf(f, eviocgbit(evKey, uintptr(len(keyBits))), keyBits) != nil ||
			!bitSet(keyBits, keyA) {
			f.Close()
			continue
		}
		logger.Debug("Using keyboard device", "path", p)
		out = append(out, f)
	}
	if len(out) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no keyboard found under " + DevicesGlob)
		}
		return nil, fmt.Errorf("open keyboards: %w", lastErr)
	}
	return out, nil
}

// decodeEvent parses one input_event. ok is false for non-key events.
func decodeEvent(buf []byte) (ev Event, ok bool) {
	off := len(buf) - 8
	typ := binary.NativeEndian.Uint16(buf[off:])
	code := binary.NativeEndian.Uint16(buf[off+2:])
	value := int32(binary.NativeEndian.Uint32(buf[off+4:]))
	if typ != evKey {
		return Event{}, false
	}
	switch value {
	case keyPress, keyRepeat:
		return Event{Code: uint32(code), Pressed: true}, true
	case keyRelease:
		return Event{Code: uint32(code), Pressed: false}, true
	}
	return Event{}, false
}

type evdevHook struct {
	logger *slog.Logger
}

// NewHook reads key events from every keyboard under /dev/input. Devices are
// not grabbed, so other readers keep receiving every event.
func NewHook(logger *slog.Logger) (Hook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &evdevHook{logger: logger}, nil
}

func (h *evdevHook) Run(ctx context.Context, handler Handler) error {
	files, err := openKeyboards(h.logger)
	if err != nil {
		return err
	}

	events := make(chan Event, 64)
	readErr := make(chan error, len(files))
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f *os.File) {
			defer wg.Done()
			buf := make([]byte, eventSize)
			for {
				if _, err := io.ReadFull(f, buf); err != nil {
					readErr <- err
					return
				}
				if ev, ok := decodeEvent(buf); ok {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(f)
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
		wg.Wait()
	}()

	alive := len(files)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			Dispatch(ev, handler, func() uintptr { return 0 })
		case err := <-readErr:
			alive--
			h.logger.Warn("Keyboard device lost", "error", err)
			if alive == 0 {
				return fmt.Errorf("all keyboard devices lost: %w", err)
			}
		}
	}
}

type evdevPoller struct {
	files []*os.File
	buf   []byte
}

// NewPoller queries the pressed-key bitmap of every keyboard on each call.
func NewPoller(logger *slog.Logger) (Poller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := openKeyboards(logger)
	if err != nil {
		return nil, err
	}
	return &evdevPoller{files: files, buf: make([]byte, keyMax/8+1)}, nil
}

func (p *evdevPoller) IsDown(code uint32) bool {
	for _, f := range p.files {
		if ioctlBuf(f, eviocgkey(uintptr(len(p.buf))), p.buf) == nil && bitSet(p.buf, int(code)) {
			return true
		}
	}
	return false
}

func (p *evdevPoller) Close() error {
	var errs []error
	for _, f := range p.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}
