package ttyloop

import (
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// suggestedReadSize is passed to allocation callbacks as a hint. Callbacks
// are free to allocate less.
const suggestedReadSize = 65536

// TTYMode selects the terminal input discipline.
type TTYMode int

const (
	// TTYModeNormal is the cooked mode the terminal was in at startup.
	TTYModeNormal TTYMode = iota
	// TTYModeRaw delivers unbuffered, unechoed keystrokes.
	TTYModeRaw
)

// AllocCallback supplies a fresh buffer for an upcoming read. The returned
// buffer MUST be caller-owned; the runtime takes ownership until the
// matching read callback.
type AllocCallback func(t *TTY, suggestedSize int) *Buffer

// ReadCallback delivers a read completion. nread is the number of bytes
// filled into buf, 0 when nothing was available this turn, or a negative
// status code (StatusEOF or a negated errno). Ownership of buf, when
// non-nil, has returned to the callback, which is responsible for releasing
// it.
type ReadCallback func(t *TTY, nread int, buf *Buffer)

// WriteCallback signals completion of a write request. status is 0 on
// success or a negative status code. The buffer submitted with the request
// is owned by the callback again, reachable via req.Buffer().
type WriteCallback func(req *WriteReq, status int)

// rawModeTerms remembers, per file descriptor, the termios state to restore
// on ResetMode. Mirrors the process-global semantics of terminal modes: the
// discipline belongs to the terminal device, not to any one handle.
var rawModeTerms = make(map[int]*term.State)

// TTY is a Loop handle bound to a terminal-style file descriptor. It also
// works over pipes and sockets, which is how the tests run headless.
type TTY struct {
	handleCore

	fd       int
	interest ioEvents
	reading  bool
	allocCb  AllocCallback
	readCb   ReadCallback
	wreq     *WriteReq
}

// NewTTY binds fd to the loop. The descriptor is duplicated, so closing the
// handle never closes the caller's fd; the duplicate is switched to
// non-blocking mode (the underlying open file description is shared, as
// with any dup).
func NewTTY(loop *Loop, fd int) (*TTY, error) {
	if loop.closed {
		return nil, ErrLoopClosed
	}

	dup, err := unix.Dup(fd)
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(dup)
	if err := unix.SetNonblock(dup, true); err != nil {
		unix.Close(dup)
		return nil, err
	}

	t := &TTY{
		handleCore: handleCore{loop: loop},
		fd:         dup,
	}
	loop.addHandle(t)
	return t, nil
}

// SetMode switches the terminal discipline. Entering raw mode records the
// previous state so that ResetMode can restore it. Fails when the fd is not
// a terminal.
func (t *TTY) SetMode(mode TTYMode) error {
	if t.closing {
		return ErrHandleClosing
	}
	switch mode {
	case TTYModeRaw:
		if _, ok := rawModeTerms[t.fd]; ok {
			return nil
		}
		state, err := term.MakeRaw(t.fd)
		if err != nil {
			return err
		}
		rawModeTerms[t.fd] = state
		return nil
	case TTYModeNormal:
		state, ok := rawModeTerms[t.fd]
		if !ok {
			return nil
		}
		delete(rawModeTerms, t.fd)
		return term.Restore(t.fd, state)
	}
	return nil
}

// ResetMode restores every terminal this process switched into raw mode.
// Process-global and idempotent, so teardown paths can call it
// unconditionally, even after a partial setup.
func ResetMode() error {
	var first error
	for fd, state := range rawModeTerms {
		if err := term.Restore(fd, state); err != nil && first == nil {
			first = err
		}
		delete(rawModeTerms, fd)
	}
	return first
}

// ReadStart registers the allocation and read callbacks and begins watching
// the descriptor for input.
func (t *TTY) ReadStart(alloc AllocCallback, read ReadCallback) error {
	if t.closing {
		return ErrHandleClosing
	}
	if alloc == nil || read == nil {
		return ErrCallbackRequired
	}
	if t.reading {
		return ErrAlreadyReading
	}
	t.allocCb = alloc
	t.readCb = read
	t.reading = true
	if err := t.updateInterest(); err != nil {
		t.reading = false
		return err
	}
	return nil
}

// ReadStop halts further read callbacks. Idempotent. A callback currently
// executing is not preempted.
func (t *TTY) ReadStop() error {
	if !t.reading {
		return nil
	}
	t.reading = false
	return t.updateInterest()
}

// Close marks the handle for closing: it stops reading, detaches from the
// poller, and schedules finalization for a later loop turn. An in-flight
// write is completed with -ECANCELED during finalization so its buffer is
// still reclaimed exactly once.
func (t *TTY) Close(cb CloseCallback) {
	if t.closing {
		return
	}
	t.closing = true
	t.closeCb = cb
	t.reading = false
	if t.interest != 0 {
		if err := t.loop.poller.del(t.fd); err != nil {
			t.loop.logger.Warn("failed to detach handle from poller",
				LabelError.L(err))
		}
		delete(t.loop.byFD, t.fd)
		t.interest = 0
	}
	t.loop.queueClose(t)
}

func (t *TTY) isActive() bool {
	return !t.closing && (t.reading || t.wreq != nil)
}

func (t *TTY) finalize() {
	if t.closed {
		return
	}
	if t.wreq != nil {
		t.completeWrite(t.wreq, -int(unix.ECANCELED))
	}
	if err := unix.Close(t.fd); err != nil {
		t.loop.logger.Warn("failed to close descriptor", LabelError.L(err))
	}
	t.closed = true
	t.loop.removeHandle(t)
	if t.closeCb != nil {
		t.closeCb(t)
	}
}

// onReadable performs one read and delivers it. Exactly one allocation and
// one delivery per invocation: the buffer's ownership round-trips through
// the runtime within this call.
func (t *TTY) onReadable() {
	buf := t.allocCb(t, suggestedReadSize)
	if buf == nil || len(buf.raw()) == 0 {
		t.readCb(t, -int(unix.ENOBUFS), nil)
		return
	}
	if err := buf.toRuntime(); err != nil {
		// The allocation callback handed us a buffer it did not own.
		t.loop.logger.Error("allocation callback violated buffer ownership",
			LabelError.L(err))
		t.readCb(t, -int(unix.EINVAL), nil)
		return
	}
	t.loop.msink.IncrCounterWithLabels(MetricBufferAllocBytes,
		float32(len(buf.raw())), t.loop.labels)

	n, err := unix.Read(t.fd, buf.raw())
	buf.toCaller()

	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		t.readCb(t, 0, buf)
	case err != nil:
		t.loop.msink.IncrCounterWithLabels(MetricTTYReadErrorCount, 1, t.loop.labels)
		t.readCb(t, -errnoOf(err), buf)
	case n == 0:
		// A zero-length read on a stream means the peer is gone. Raw
		// terminals never produce it; pipes in tests do.
		t.readCb(t, StatusEOF, buf)
	default:
		buf.setLen(n)
		t.loop.msink.IncrCounterWithLabels(MetricTTYReadBytes, float32(n), t.loop.labels)
		t.readCb(t, n, buf)
	}
}

func (t *TTY) updateInterest() error {
	var events ioEvents
	if t.reading {
		events |= evRead
	}
	if t.wreq != nil {
		events |= evWrite
	}
	if events == t.interest {
		return nil
	}

	var err error
	switch {
	case t.interest == 0:
		err = t.loop.poller.add(t.fd, events)
		if err == nil {
			t.loop.byFD[t.fd] = t
		}
	case events == 0:
		err = t.loop.poller.del(t.fd)
		delete(t.loop.byFD, t.fd)
	default:
		err = t.loop.poller.mod(t.fd, events)
	}
	if err != nil {
		return err
	}
	t.interest = events
	return nil
}

func errnoOf(err error) int {
	if errno, ok := err.(unix.Errno); ok {
		return int(errno)
	}
	return int(unix.EIO)
}
