//go:build linux

package ttyloop

import (
	"golang.org/x/sys/unix"
)

// poller is the epoll-backed readiness source. It is driven synchronously
// by Loop.Run and therefore needs no locking.
type poller struct {
	epfd     int
	eventBuf [64]unix.EpollEvent
	closed   bool
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: epfd}, nil
}

func (p *poller) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.epfd)
}

func (p *poller) add(fd int, events ioEvents) error {
	ev := &unix.EpollEvent{
		Events: eventsToEpoll(events),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *poller) mod(fd int, events ioEvents) error {
	ev := &unix.EpollEvent{
		Events: eventsToEpoll(events),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (p *poller) del(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks up to timeoutMs (-1 blocks indefinitely, 0 returns at once)
// and delivers readiness through dispatch. EINTR is absorbed.
func (p *poller) wait(timeoutMs int, dispatch dispatchFunc) error {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 {
			continue
		}
		dispatch(fd, epollToEvents(p.eventBuf[i].Events))
	}
	return nil
}

func eventsToEpoll(events ioEvents) uint32 {
	var epollEvents uint32
	if events&evRead != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&evWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}

func epollToEvents(epollEvents uint32) ioEvents {
	var events ioEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= evRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= evWrite
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= evError
	}
	if epollEvents&unix.EPOLLHUP != 0 {
		events |= evHangup
	}
	return events
}
