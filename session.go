package ttyloop

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"

	"github.com/raskyld/ttyloop/pkg/echo"
)

// Session is a raw-mode terminal echo session: keystrokes stream in through
// the loop's read callback, get escaped into something printable, and go
// back out through a single reusable write request.
//
// The Session is the sole owner of its two handles and its write request
// for its entire life. Its callbacks are the only code touching its state
// and they are serialized by the loop, so there is no locking anywhere.
//
// Lifecycle: NewSession → EnterRawMode → Start → RunUntilStopped (on the
// adapter) → Shutdown. Shutdown is mandatory even when an earlier step
// failed: it is the path that restores the user's terminal.
type Session struct {
	adapter *LoopAdapter
	logger  *slog.Logger
	msink   metrics.MetricSink
	labels  []metrics.Label
	opts    sessOpts

	in   *TTY
	out  *TTY
	wreq WriteReq

	errs     ErrorSlot
	running  bool
	released bool
}

// NewSession binds the input handle, then the output handle. On failure no
// dangling handle survives: if the second bind fails the first is marked
// for closing before the error is returned (the teardown drain will
// finalize it).
func NewSession(adapter *LoopAdapter, opts ...SessionOption) (*Session, error) {
	o := sessOpts{
		inputFD:        0,
		outputFD:       1,
		readBufferSize: defaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.greetingSet {
		o.greeting = DefaultGreeting
	}

	loop := adapter.loop
	s := &Session{
		adapter: adapter,
		logger:  loop.logger.With(LabelHandle.L("session")),
		msink:   loop.msink,
		labels:  loop.labels,
		opts:    o,
	}

	in, err := NewTTY(loop, o.inputFD)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	out, err := NewTTY(loop, o.outputFD)
	if err != nil {
		in.Close(nil)
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	s.in = in
	s.out = out
	return s, nil
}

// EnterRawMode switches the input terminal to raw (unbuffered, unechoed)
// input. Fails when stdin is not a terminal or the switch is denied.
func (s *Session) EnterRawMode() error {
	if err := s.in.SetMode(TTYModeRaw); err != nil {
		return fmt.Errorf("%w: %w", ErrMode, err)
	}
	return nil
}

// Start registers the read pipeline and submits the greeting. After Start
// returns, all further progress happens inside callbacks dispatched by the
// adapter's run call.
func (s *Session) Start() error {
	if s.released {
		return ErrSessionReleased
	}
	if err := s.in.ReadStart(s.onAlloc, s.onRead); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	s.running = true

	if s.opts.greeting != "" {
		if err := s.SubmitWrite(NewBufferString(s.opts.greeting)); err != nil {
			return err
		}
	}
	return nil
}

// SubmitWrite queues buf on the output handle, transferring its ownership
// to the runtime. The session keeps a single write request, so a second
// submission while one is in flight fails with ErrWriteBusy; callers wait
// for the completion callback before submitting again.
func (s *Session) SubmitWrite(buf *Buffer) error {
	if s.wreq.pending {
		return ErrWriteBusy
	}
	if err := s.out.Write(&s.wreq, buf, s.onWriteDone); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	return nil
}

// Stop halts further read callbacks. Cooperative and idempotent: a write
// already in flight still completes and reclaims its buffer.
func (s *Session) Stop() error {
	if !s.running {
		return nil
	}
	s.running = false
	s.msink.IncrCounterWithLabels(MetricSessionStopCount, 1, s.labels)
	s.logger.Debug("session stopping")
	return s.in.ReadStop()
}

// Err returns the first error recorded anywhere in the session's life, nil
// if the session is clean so far. Non-destructive.
func (s *Session) Err() error {
	return s.errs.Err()
}

// Shutdown tears the session down. The sequence is strictly ordered and
// never aborts early: every step runs no matter what the previous ones
// reported, and each step's error lands in the slot only if it is the first.
//
//  1. stop reading
//  2. restore the terminal mode (even after a failed step 1; a raw
//     terminal outliving the process is not acceptable)
//  3. run the loop so the restore and any last write settle
//  4. mark every still-open handle for closing
//  5. run the loop again so close callbacks fire
//  6. close the loop
//  7. release the session state
//
// Shutdown returns the slot's content: the first error of the whole
// session, or nil.
func (s *Session) Shutdown() error {
	if s.released {
		return s.errs.Err()
	}

	start := time.Now()
	s.logger.Info("shutting down...")

	s.errs.Record(s.Stop())

	s.logger.Info("shutdown: restore terminal mode")
	s.errs.Record(ResetMode())

	s.logger.Info("shutdown: drain remaining work")
	s.errs.Record(s.adapter.RunUntilStopped())

	s.logger.Info("shutdown: close handles")
	s.adapter.WalkAndCloseAll()
	s.errs.Record(s.adapter.RunUntilStopped())

	s.logger.Info("shutdown: close loop")
	s.errs.Record(s.adapter.Close())

	s.release()

	s.logger.Info("shutdown: completed", "duration", time.Since(start))
	return s.errs.Err()
}

// onAlloc hands the runtime a fresh buffer for the next read.
func (s *Session) onAlloc(_ *TTY, _ int) *Buffer {
	return NewBuffer(s.opts.readBufferSize)
}

// onRead is the heart of the echo pipeline: escape what came in, queue it
// out, and decide whether the session is over. Ctrl+C anywhere in the input
// ends the session regardless of what else the chunk contained; a negative
// status records the first error and ends it too.
func (s *Session) onRead(_ *TTY, nread int, buf *Buffer) {
	end := false

	switch {
	case nread > 0:
		out, quit := echo.Escape(buf.Bytes())
		end = quit

		outBuf := NewBufferBytes(out)
		if err := s.SubmitWrite(outBuf); err != nil {
			s.errs.Record(err)
			if rerr := outBuf.Release(); rerr != nil {
				s.logger.Error("failed to release rejected write buffer",
					LabelError.L(rerr))
			}
		} else {
			s.msink.IncrCounterWithLabels(MetricSessionEchoCount, 1, s.labels)
		}
	case nread < 0:
		s.errs.Record(newRuntimeError("tty read", nread))
		end = true
	}
	// nread == 0: nothing arrived this turn, not an error.

	if buf != nil {
		if err := buf.Release(); err != nil {
			s.logger.Error("failed to release read buffer", LabelError.L(err))
		}
	}

	if end {
		s.errs.Record(s.Stop())
	}
}

// onWriteDone reclaims the buffer that travelled with the write, success or
// not. A failed write is logged and counted but never ends the session:
// echo is best-effort, only the read side decides termination.
func (s *Session) onWriteDone(req *WriteReq, status int) {
	if status < 0 {
		s.logger.Warn("echo write failed",
			LabelStatus.L(status),
			LabelError.L(newRuntimeError("tty write", status)))
	}
	if buf := req.Buffer(); buf != nil {
		if err := buf.Release(); err != nil {
			s.logger.Error("failed to release write buffer", LabelError.L(err))
		}
	}
}

// release drops the session's references. Idempotent; after release the
// session is inert.
func (s *Session) release() {
	if s.released {
		return
	}
	s.released = true
	s.running = false
	s.in = nil
	s.out = nil
}
