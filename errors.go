package ttyloop

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

var (
	ErrInit            = errors.New("session: could not bind terminal handles")
	ErrMode            = errors.New("session: could not switch terminal mode")
	ErrStart           = errors.New("session: could not start reading")
	ErrWriteBusy       = errors.New("session: a write is already in flight")
	ErrWriteRejected   = errors.New("session: runtime rejected the write submission")
	ErrSessionReleased = errors.New("session: already released")

	ErrInvalidCfg  = errors.New("loop: invalid options")
	ErrLoopClosed  = errors.New("loop: already closed")
	ErrLoopBusy    = errors.New("loop: handles are still open")
	ErrLoopRunning = errors.New("loop: already running")

	ErrHandleClosing    = errors.New("tty: handle is closing")
	ErrAlreadyReading   = errors.New("tty: handle is already reading")
	ErrCallbackRequired = errors.New("tty: alloc and read callbacks are required")
	ErrRequestBusy      = errors.New("tty: write request already submitted")

	ErrBufferOwnership = errors.New("buffer: operation requires caller ownership")
	ErrBufferReleased  = errors.New("buffer: already released")
)

// StatusEOF is delivered to read callbacks when the stream reaches
// end-of-file. Every other negative status is a negated errno.
//
// The value mirrors libuv's UV_EOF so that status codes printed by this
// package line up with what operators already know.
const StatusEOF = -4095

// RuntimeError is an error the runtime discovered asynchronously, inside a
// read or write completion. No caller is waiting at that point, so it is
// recorded in an [ErrorSlot] instead of being returned.
type RuntimeError struct {
	// Op names the operation that produced the status, e.g. "tty read".
	Op string
	// Code is the negative status delivered to the callback.
	Code int
}

func newRuntimeError(op string, code int) *RuntimeError {
	return &RuntimeError{Op: op, Code: code}
}

// Name returns the short, symbolic name of the status, e.g. "EOF" or "EIO".
func (e *RuntimeError) Name() string {
	if e.Code == StatusEOF {
		return "EOF"
	}
	if name := unix.ErrnoName(unix.Errno(-e.Code)); name != "" {
		return name
	}
	return fmt.Sprintf("errno %d", -e.Code)
}

func (e *RuntimeError) Error() string {
	var desc string
	if e.Code == StatusEOF {
		desc = "end of file"
	} else {
		desc = unix.Errno(-e.Code).Error()
	}
	return fmt.Sprintf("error calling %s: %s (%s)", e.Op, desc, e.Name())
}

// Unwrap exposes the underlying cause so that callers can match with
// errors.Is: io.EOF for StatusEOF, the unix.Errno otherwise.
func (e *RuntimeError) Unwrap() error {
	if e.Code == StatusEOF {
		return io.EOF
	}
	return unix.Errno(-e.Code)
}

// ErrorSlot holds the first error observed during a session's life.
// Later writes are no-ops; the slot is read non-destructively at shutdown.
//
// No lock: the slot is only touched from the loop goroutine.
type ErrorSlot struct {
	err error
}

// Record stores err if the slot is still empty. Recording nil is a no-op,
// which lets call sites pass results through unconditionally.
func (s *ErrorSlot) Record(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Err returns the recorded error, if any.
func (s *ErrorSlot) Err() error {
	return s.err
}
