package ttyloop

// LoopAdapter is the narrow façade a main program needs to drive a Loop
// through its lifecycle. Teardown is a fixed dance:
//
//  1. RunUntilStopped: the main run, returns once the session stopped.
//  2. WalkAndCloseAll: marks every still-open handle for closing.
//  3. RunUntilStopped: one more pass so the asynchronous close callbacks
//     actually fire.
//  4. Close: now that nothing is open, release the loop itself.
type LoopAdapter struct {
	loop *Loop
}

func NewLoopAdapter(loop *Loop) *LoopAdapter {
	return &LoopAdapter{loop: loop}
}

// RunUntilStopped blocks until the loop goes idle or Stop is invoked. It
// returns immediately when there is nothing left to do, which makes it safe
// to call once per teardown phase.
func (a *LoopAdapter) RunUntilStopped() error {
	return a.loop.Run(RunDefault)
}

// WalkAndCloseAll marks every handle not already closing for closure.
// The close callbacks fire on the next RunUntilStopped.
func (a *LoopAdapter) WalkAndCloseAll() {
	a.loop.Walk(func(h Handle) {
		if !h.IsClosing() {
			h.Close(nil)
		}
	})
}

// Close releases the loop. Fails with ErrLoopBusy if handles were not
// drained first.
func (a *LoopAdapter) Close() error {
	return a.loop.Close()
}
