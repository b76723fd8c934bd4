//go:build darwin

package ttyloop

import (
	"golang.org/x/sys/unix"
)

// poller is the kqueue-backed readiness source. It is driven synchronously
// by Loop.Run and therefore needs no locking.
//
// kqueue has no "modify" operation over a combined mask, so the poller
// remembers the current interest per fd and diffs on change.
type poller struct {
	kq       int
	eventBuf [64]unix.Kevent_t
	interest map[int]ioEvents
	closed   bool
}

func newPoller() (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &poller{kq: kq, interest: make(map[int]ioEvents)}, nil
}

func (p *poller) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.kq)
}

func (p *poller) add(fd int, events ioEvents) error {
	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(p.kq, kevents, nil, nil); err != nil {
			return err
		}
	}
	p.interest[fd] = events
	return nil
}

func (p *poller) mod(fd int, events ioEvents) error {
	old := p.interest[fd]

	if del := old &^ events; del != 0 {
		kevents := eventsToKevents(fd, del, unix.EV_DELETE)
		if len(kevents) > 0 {
			// Ignore errors on delete: the filter may already be gone.
			unix.Kevent(p.kq, kevents, nil, nil)
		}
	}
	if addEv := events &^ old; addEv != 0 {
		kevents := eventsToKevents(fd, addEv, unix.EV_ADD|unix.EV_ENABLE)
		if len(kevents) > 0 {
			if _, err := unix.Kevent(p.kq, kevents, nil, nil); err != nil {
				return err
			}
		}
	}
	p.interest[fd] = events
	return nil
}

func (p *poller) del(fd int) error {
	old := p.interest[fd]
	kevents := eventsToKevents(fd, old, unix.EV_DELETE)
	if len(kevents) > 0 {
		unix.Kevent(p.kq, kevents, nil, nil) // Ignore errors on delete.
	}
	delete(p.interest, fd)
	return nil
}

// wait blocks up to timeoutMs (-1 blocks indefinitely, 0 returns at once)
// and delivers readiness through dispatch. EINTR is absorbed.
func (p *poller) wait(timeoutMs int, dispatch dispatchFunc) error {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		dispatch(int(p.eventBuf[i].Ident), keventToEvents(&p.eventBuf[i]))
	}
	return nil
}

func eventsToKevents(fd int, events ioEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t

	if events&evRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if events&evWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}

	return kevents
}

func keventToEvents(kev *unix.Kevent_t) ioEvents {
	var events ioEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= evRead
	case unix.EVFILT_WRITE:
		events |= evWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= evError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= evHangup
	}
	return events
}
