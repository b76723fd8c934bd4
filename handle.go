package ttyloop

// CloseCallback is invoked on a later loop turn, once the handle's file
// descriptor has been released. It may be nil.
type CloseCallback func(h Handle)

// Handle is an I/O resource owned by a Loop.
//
// Handles go through three states: open, closing and closed. `Close` only
// requests the transition; the resources are released asynchronously, which
// requires one more loop turn (see [LoopAdapter]).
type Handle interface {
	// Loop returns the owning loop.
	Loop() *Loop

	// IsClosing reports whether Close has been requested or completed.
	IsClosing() bool

	// Close marks the handle for closing. Idempotent; never fails.
	Close(cb CloseCallback)

	// isActive reports whether the handle keeps the loop alive.
	isActive() bool

	// finalize releases resources and fires the close callback. Invoked by
	// the loop while processing pending closes.
	finalize()
}

type handleCore struct {
	loop    *Loop
	closing bool
	closed  bool
	closeCb CloseCallback
}

func (h *handleCore) Loop() *Loop {
	return h.loop
}

func (h *handleCore) IsClosing() bool {
	return h.closing
}
