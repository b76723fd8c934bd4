package ttyloop

import (
	"golang.org/x/sys/unix"
)

// WriteReq represents one write submission. The request object is reusable:
// once its completion callback has fired it may be submitted again, which
// is how a session gets away with a single request for its whole life.
type WriteReq struct {
	tty     *TTY
	buf     *Buffer
	off     int
	cb      WriteCallback
	pending bool
}

// Pending reports whether the request is currently submitted.
func (r *WriteReq) Pending() bool {
	return r.pending
}

// Buffer returns the buffer travelling with the request. Inside the
// completion callback it is the reclaimed, caller-owned buffer; nil once
// the completion has been processed.
func (r *WriteReq) Buffer() *Buffer {
	return r.buf
}

// Write submits buf on the handle. Ownership of buf transfers to the
// runtime; it comes back, exactly once, inside cb. At most one request may
// be in flight per handle.
//
// The write is never performed synchronously: the data goes out on a
// subsequent loop turn, when the descriptor reports writable.
func (t *TTY) Write(req *WriteReq, buf *Buffer, cb WriteCallback) error {
	if t.closing {
		return ErrHandleClosing
	}
	if req == nil || buf == nil {
		return ErrCallbackRequired
	}
	if req.pending || t.wreq != nil {
		return ErrRequestBusy
	}
	if err := buf.toRuntime(); err != nil {
		return err
	}

	req.tty = t
	req.buf = buf
	req.off = 0
	req.cb = cb
	req.pending = true
	t.wreq = req

	if err := t.updateInterest(); err != nil {
		// Roll back: the submission never reached the poller.
		t.wreq = nil
		req.pending = false
		req.buf = nil
		buf.toCaller()
		return err
	}
	return nil
}

// onWritable flushes as much of the pending request as the descriptor
// accepts. Short writes keep the request pending; the poller will call
// again.
func (t *TTY) onWritable() {
	req := t.wreq
	if req == nil {
		return
	}

	data := req.buf.Bytes()[req.off:]
	n, err := unix.Write(t.fd, data)
	if err == unix.EAGAIN || err == unix.EINTR {
		return
	}
	if err != nil {
		t.loop.msink.IncrCounterWithLabels(MetricTTYWriteErrorCount, 1, t.loop.labels)
		t.completeWrite(req, -errnoOf(err))
		return
	}

	req.off += n
	t.loop.msink.IncrCounterWithLabels(MetricTTYWriteBytes, float32(n), t.loop.labels)
	if req.off >= req.buf.Len() {
		t.completeWrite(req, 0)
	}
}

// completeWrite hands the buffer back to the submitter and fires the
// completion callback. Also used during finalization to cancel an in-flight
// request.
func (t *TTY) completeWrite(req *WriteReq, status int) {
	t.wreq = nil
	req.pending = false
	if !t.closing {
		if err := t.updateInterest(); err != nil {
			t.loop.logger.Warn("failed to update poller interest",
				LabelError.L(err))
		}
	}

	if req.buf != nil {
		if err := req.buf.toCaller(); err != nil {
			t.loop.logger.Error("write buffer ownership corrupted",
				LabelError.L(err))
		}
	}
	if req.cb != nil {
		req.cb(req, status)
	}
	req.buf = nil
}
