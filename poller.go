package ttyloop

// ioEvents is a bitmask of readiness conditions reported by the platform
// poller.
type ioEvents uint8

const (
	evRead ioEvents = 1 << iota
	evWrite
	evError
	evHangup
)

// dispatchFunc receives readiness notifications from the poller. It runs on
// the loop goroutine, inside Loop.Run.
type dispatchFunc func(fd int, events ioEvents)

// pollEvent is one fd's readiness within a single loop turn.
type pollEvent struct {
	fd     int
	events ioEvents
}
