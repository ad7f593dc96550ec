// Package keybind loads the three key codes that drive the virtual sticks.
package keybind

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "OverBind_conf.txt"

// Slot identifies a logical stick direction a key can be bound to.
type Slot int

const (
	LeftStickLeft Slot = iota
	LeftStickRight
	RightStickUp

	SlotCount = 3
)

func (s Slot) String() string {
	switch s {
	case LeftStickLeft:
		return "left-stick-left"
	case LeftStickRight:
		return "left-stick-right"
	case RightStickUp:
		return "right-stick-up"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Slots lists every slot in file order.
var Slots = [SlotCount]Slot{LeftStickLeft, LeftStickRight, RightStickUp}

// Binding maps every slot to a platform key code
// (a virtual-key code on Windows, an evdev key code on Linux).
type Binding [SlotCount]uint32

// Code returns the key code bound to s.
func (b Binding) Code(s Slot) uint32 { return b[s] }

// ErrNotFound is returned by Load when the bindings file does not exist.
var ErrNotFound = errors.New("bindings file could not be found")

// ParseError reports a malformed bindings file.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("bindings line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("bindings line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissingLine = errors.New("missing key code")

// Load reads and parses the bindings file at path.
func Load(path string) (Binding, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Binding{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Binding{}, fmt.Errorf("open bindings: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one hexadecimal key code per line, in slot order.
// Lines after the third are ignored.
func Parse(r io.Reader) (Binding, error) {
	var b Binding
	sc := bufio.NewScanner(r)
	line := 0
	for line < SlotCount {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return Binding{}, fmt.Errorf("read bindings: %w", err)
			}
			return Binding{}, &ParseError{Line: line + 1, Err: errMissingLine}
		}
		text := strings.TrimSpace(sc.Text())
		code, err := parseCode(text)
		if err != nil {
			return Binding{}, &ParseError{Line: line + 1, Text: text, Err: err}
		}
		b[line] = code
		line++
	}
	return b, nil
}

func parseCode(s string) (uint32, error) {
	if s == "" {
		return 0, errMissingLine
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	return uint32(v), nil
}

// Format renders b in the on-disk format accepted by Parse.
func Format(b Binding) string {
	var sb strings.Builder
	for _, code := range b {
		fmt.Fprintf(&sb, "%x\n", code)
	}
	return sb.String()
}
