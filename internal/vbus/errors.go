package vbus

import (
	"errors"
	"fmt"

	"github.com/overbind/overbind/apitypes"
)

// Error is returned by every bus operation. Code holds the status the bus
// answered with, or 0 when the failure happened before an answer.
type Error struct {
	Op   string
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s failed with error code 0x%x: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	e := &Error{Op: op, Err: err}
	var ptr *apitypes.ApiError
	var val apitypes.ApiError
	switch {
	case errors.As(err, &ptr):
		e.Code = ptr.Status
	case errors.As(err, &val):
		e.Code = val.Status
	}
	return e
}

// ErrNotPlugged is returned when a report is sent to a target without a device.
var ErrNotPlugged = errors.New("target is not plugged in")

// ErrFreed is returned when a freed target is used.
var ErrFreed = errors.New("target was freed")
