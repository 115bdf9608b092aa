package xspi

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by a Flash operation matches exactly one
// of these with errors.Is.
var (
	ErrWrongParam        = errors.New("wrong parameter")
	ErrPeripheralFailure = errors.New("peripheral failure")
	ErrComponentFailure  = errors.New("component failure")
	ErrBusy              = errors.New("busy")
	ErrSuspended         = errors.New("suspended")
	ErrMmpLockFailure    = errors.New("memory-mapped mode locked")
	ErrMmpUnlockFailure  = errors.New("memory-mapped mode not active")
)

// Causes carried inside an Error.
var (
	ErrNotInitialized = errors.New("instance not initialized")
	ErrPollBudget     = errors.New("status poll budget exhausted")
	ErrVerify         = errors.New("read-back verification failed")
	ErrBusyTimeout    = errors.New("timed out waiting for ready")
)

// Error is returned by Flash operations. Kind is one of the error classes,
// Err the underlying cause if any.
type Error struct {
	Op       string
	Instance int
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("xspi%d: %s: %v", e.Instance, e.Op, e.Kind)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusError reports a device status other than the one an operation
// requires.
type StatusError struct {
	Want Status
	Got  Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status is %s, want %s", e.Got, e.Want)
}
