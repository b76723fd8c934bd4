package ttyloop

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

// RunMode selects how far a single Run call drives the loop.
type RunMode int

const (
	// RunDefault runs the loop until Stop is called from a callback or no
	// handle keeps it alive anymore.
	RunDefault RunMode = iota
	// RunNoWait performs a single non-blocking turn and returns.
	RunNoWait
)

// Loop is a single-threaded event loop over terminal-style file
// descriptors.
//
// All methods MUST be called from the loop goroutine: before Run, after Run
// returned, or inside a callback dispatched by Run. Nothing here is safe
// for concurrent use; the single-goroutine discipline is the
// synchronization.
type Loop struct {
	logger *slog.Logger
	msink  metrics.MetricSink
	labels []metrics.Label

	poller       *poller
	handles      []Handle
	byFD         map[int]*TTY
	pendingClose []Handle
	turn         []pollEvent

	running bool
	stopped bool
	closed  bool
}

// New creates a Loop and customises it using `Option`.
func New(opts ...Option) (*Loop, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	l := &Loop{
		byFD:   make(map[int]*TTY),
		labels: cfg.metricLabels,
	}

	if cfg.logHandler == nil {
		l.logger = slog.Default()
	} else {
		l.logger = slog.New(cfg.logHandler)
	}

	if cfg.metricSink == nil {
		l.msink = metrics.Default()
	} else {
		l.msink = cfg.metricSink
	}

	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	l.poller = p
	return l, nil
}

// Run drives the loop until it goes idle: callbacks dispatched here are the
// only place application state makes progress. It returns nil when no
// active handle and no pending close remains, or when Stop was called.
//
// Run may be called again after it returned; a teardown depends on this to
// drain close callbacks (see LoopAdapter).
func (l *Loop) Run(mode RunMode) error {
	if l.closed {
		return ErrLoopClosed
	}
	if l.running {
		return ErrLoopRunning
	}
	l.running = true
	defer func() { l.running = false }()

	// A previous Stop must not bleed into this run.
	l.stopped = false

	for {
		l.runPendingCloses()

		if !l.alive() || l.stopped {
			return nil
		}

		timeout := -1
		if mode == RunNoWait {
			timeout = 0
		}
		l.turn = l.turn[:0]
		if err := l.poller.wait(timeout, l.collect); err != nil {
			return err
		}
		l.dispatchTurn()
		l.msink.IncrCounterWithLabels(MetricLoopTurnCount, 1, l.labels)

		if l.stopped {
			return nil
		}
		if mode == RunNoWait {
			l.runPendingCloses()
			return nil
		}
	}
}

// Stop makes the in-progress Run return once the current turn completes. It
// does not preempt a callback already executing.
func (l *Loop) Stop() {
	l.stopped = true
}

// Walk visits every handle that has not been finalized yet, including
// handles already marked for closing; visitors should check IsClosing.
func (l *Loop) Walk(fn func(Handle)) {
	snapshot := make([]Handle, len(l.handles))
	copy(snapshot, l.handles)
	for _, h := range snapshot {
		fn(h)
	}
}

// Close releases the poller. It fails with ErrLoopBusy while handles are
// still open or close callbacks are still pending; run the loop once more
// after walking handles closed to drain them. Idempotent.
func (l *Loop) Close() error {
	if l.closed {
		return nil
	}
	if len(l.handles) > 0 || len(l.pendingClose) > 0 {
		return ErrLoopBusy
	}
	l.closed = true
	return l.poller.close()
}

// alive reports whether anything can still make progress.
func (l *Loop) alive() bool {
	if len(l.pendingClose) > 0 {
		return true
	}
	for _, h := range l.handles {
		if h.isActive() {
			return true
		}
	}
	return false
}

func (l *Loop) collect(fd int, events ioEvents) {
	l.turn = append(l.turn, pollEvent{fd: fd, events: events})
}

// dispatchTurn processes one turn's readiness. Write completions run before
// read deliveries: a completed write frees its handle's request slot before
// fresh input gets a chance to queue the next one, which is what makes a
// single reusable write request workable.
func (l *Loop) dispatchTurn() {
	for _, e := range l.turn {
		if e.events&evWrite == 0 {
			continue
		}
		if t := l.byFD[e.fd]; t != nil && !t.closing {
			t.onWritable()
		}
	}
	for _, e := range l.turn {
		if e.events&(evRead|evError|evHangup) == 0 {
			continue
		}
		if t := l.byFD[e.fd]; t != nil && !t.closing && t.reading {
			t.onReadable()
		}
	}
}

func (l *Loop) addHandle(h Handle) {
	l.handles = append(l.handles, h)
	l.msink.SetGaugeWithLabels(MetricLoopHandleCount, float32(len(l.handles)), l.labels)
}

func (l *Loop) removeHandle(h Handle) {
	for i, cur := range l.handles {
		if cur == h {
			l.handles = append(l.handles[:i], l.handles[i+1:]...)
			break
		}
	}
	l.msink.SetGaugeWithLabels(MetricLoopHandleCount, float32(len(l.handles)), l.labels)
}

func (l *Loop) queueClose(h Handle) {
	l.pendingClose = append(l.pendingClose, h)
}

// runPendingCloses finalizes handles marked for closing. Close callbacks
// may mark further handles; those are processed in the same pass.
func (l *Loop) runPendingCloses() {
	for len(l.pendingClose) > 0 {
		batch := l.pendingClose
		l.pendingClose = nil
		for _, h := range batch {
			h.finalize()
		}
	}
}
