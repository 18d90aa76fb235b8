// Package poller wraps the kernel's level-triggered readiness facility
// (spec.md §4.1's "readiness registrar"): add/modify/remove descriptors
// with an interest set of {READABLE, WRITABLE}, plus the implicit
// {ERROR, HANGUP, PEER_SHUTDOWN} spec §3 always carries. It is backed by
// Linux epoll via golang.org/x/sys/unix.
package poller

import "golang.org/x/sys/unix"

// Interest is a bitset of readiness a descriptor is registered for.
type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
)

// Event is one readiness notification, translated out of the raw kernel
// event so no other package has to decode epoll event bits itself.
type Event struct {
	Fd           int
	Readable     bool
	Writable     bool
	Error        bool
	Hangup       bool
	PeerShutdown bool
}

// Poller is a level-triggered epoll instance.
type Poller struct {
	epfd   int
	raw    []unix.EpollEvent
	events []Event
}

// New creates an epoll instance sized to report up to batch events per
// Wait call. spec §4.1 requires a batch size of at least 16.
func New(batch int) (*Poller, error) {
	if batch < 16 {
		batch = 16
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Poller{
		epfd:   epfd,
		raw:    make([]unix.EpollEvent, batch),
		events: make([]Event, batch),
	}, nil
}

func toEpollEvents(i Interest) uint32 {
	ev := uint32(unix.EPOLLERR | unix.EPOLLHUP | unix.EPOLLRDHUP)
	if i&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if i&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *Poller) Add(fd int, interest Interest) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: toEpollEvents(interest),
	})
}

func (p *Poller) Modify(fd int, interest Interest) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: toEpollEvents(interest),
	})
}

// Remove deregisters fd. A descriptor that was never registered (or
// already removed) is not an error, matching spec §4.8 ("ignore
// not-found").
func (p *Poller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && err != unix.ENOENT && err != unix.EBADF {
		return err
	}
	return nil
}

// Wait blocks indefinitely for readiness (spec §4.1 step 3). A signal
// interrupting the underlying syscall (EINTR) is not an error: Wait
// returns a nil, nil pair so the caller simply loops.
func (p *Poller) Wait() ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.raw, -1)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	for i := 0; i < n; i++ {
		e := p.raw[i]
		p.events[i] = Event{
			Fd:           int(e.Fd),
			Readable:     e.Events&unix.EPOLLIN != 0,
			Writable:     e.Events&unix.EPOLLOUT != 0,
			Error:        e.Events&unix.EPOLLERR != 0,
			Hangup:       e.Events&unix.EPOLLHUP != 0,
			PeerShutdown: e.Events&unix.EPOLLRDHUP != 0,
		}
	}
	return p.events[:n], nil
}

func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
