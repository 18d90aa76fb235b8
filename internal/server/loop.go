// Package server owns the event-driven connection engine described in
// spec.md §4.1: the readiness-based I/O loop, per-connection buffering,
// the framing state machine, backpressure/abuse control, the idle sweep,
// and graceful shutdown. It is the only package in this module that
// mutates the connection table, the registrar, or the metrics counters —
// all from a single goroutine (spec §5).
package server

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"netloop/internal/command"
	"netloop/internal/connection"
	"netloop/internal/diag"
	"netloop/internal/metrics"
	"netloop/internal/poller"
	"netloop/internal/wakeup"
)

// Options configures a Server. ListenFd must already be bound, listening,
// and non-blocking (see internal/sockutil).
type Options struct {
	ListenFd       int
	MaxConnections int
	PollerBatch    int
	Logger         zerolog.Logger
}

// Server is the single-threaded, cooperative event loop. Nothing in this
// struct is safe for concurrent access except through the wakeup flags —
// see spec §5.
type Server struct {
	opts    Options
	poller  *poller.Poller
	wake    *wakeup.Wakeup
	conns   map[int]*connection.Connection
	metrics *metrics.Counters
	log     zerolog.Logger

	listenFd     int
	shuttingDown bool
}

func New(opts Options) (*Server, error) {
	if opts.PollerBatch <= 0 {
		opts.PollerBatch = 16
	}

	p, err := poller.New(opts.PollerBatch)
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}

	w, err := wakeup.New()
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("wakeup: %w", err)
	}

	if err := p.Add(opts.ListenFd, poller.Readable); err != nil {
		_ = p.Close()
		_ = w.Close()
		return nil, fmt.Errorf("register listen fd: %w", err)
	}
	if err := p.Add(w.Fd(), poller.Readable); err != nil {
		_ = p.Close()
		_ = w.Close()
		return nil, fmt.Errorf("register wakeup fd: %w", err)
	}

	return &Server{
		opts:     opts,
		poller:   p,
		wake:     w,
		conns:    make(map[int]*connection.Connection, opts.MaxConnections),
		metrics:  metrics.New(),
		log:      opts.Logger,
		listenFd: opts.ListenFd,
	}, nil
}

// Metrics exposes the process-wide counters, e.g. for a future export
// path; the loop itself only reads them through Snapshot.
func (s *Server) Metrics() *metrics.Counters { return s.metrics }

// Wakeup exposes the flag hand-off so lifecycle.WatchSignals can be wired
// to this server from main.
func (s *Server) Wakeup() *wakeup.Wakeup { return s.wake }

// Run drives the event loop until shutdown is requested (spec §4.9) or a
// fatal error occurs on the readiness wait (spec §4.1 step 3). It never
// returns while the server is healthy and running.
func (s *Server) Run() error {
	s.log.Info().Msg(diag.Control("event loop started"))

	for {
		now := time.Now()
		s.sweepIdle(now)

		if s.wake.TakeMetricsDumpRequest() {
			fmt.Println(s.statsSnapshot().DumpLine())
		}

		if !s.wake.Running() {
			break
		}

		events, err := s.poller.Wait()
		if err != nil {
			s.log.Error().Err(err).Msg("epoll_wait failed")
			return err
		}

		for _, ev := range events {
			s.dispatch(ev)
		}

		if !s.wake.Running() {
			break
		}
	}

	s.drain()
	return nil
}

func (s *Server) dispatch(ev poller.Event) {
	switch {
	case ev.Fd == s.listenFd:
		s.acceptLoop()
	case ev.Fd == s.wake.Fd():
		s.wake.Drain()
		if !s.wake.Running() {
			s.beginShutdown()
		}
	case ev.Error || ev.Hangup || ev.PeerShutdown:
		s.terminate(ev.Fd, "peer hangup")
	default:
		if ev.Readable {
			s.handleReadable(ev.Fd)
		}
		if c, ok := s.conns[ev.Fd]; ok && ev.Writable {
			s.handleWritable(ev.Fd, c)
		}
	}
}

// acceptLoop drains the accept queue to EAGAIN (spec §4.2).
func (s *Server) acceptLoop() {
	for {
		fd, _, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.log.Error().Err(err).Msg("accept")
			return
		}

		if len(s.conns) >= s.opts.MaxConnections {
			_ = unix.Close(fd)
			s.log.Warn().Msg(diag.Abuse(fd, "max connections reached"))
			continue
		}

		conn := connection.New(fd, time.Now())
		if err := s.poller.Add(fd, poller.Readable); err != nil {
			s.log.Error().Err(err).Msg("register connection fd")
			_ = unix.Close(fd)
			continue
		}

		s.conns[fd] = conn
		s.metrics.IncAccepted()
	}
}

// handleReadable implements the read path from spec §4.3.
func (s *Server) handleReadable(fd int) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}

	var chunk [connection.ReadChunk]byte
	for {
		n, err := unix.Read(fd, chunk[:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.terminate(fd, "read error")
			return
		}
		if n == 0 {
			s.terminate(fd, "client fin")
			return
		}

		c.ReadBuf.Append(chunk[:n])
		c.Touch(time.Now())

		if s.drainFrames(fd, c) {
			return
		}
	}
}

// drainFrames runs the framing loop once (spec §4.3 step 2) and dispatches
// every completed frame. It reports whether the connection was closed
// while doing so, in which case the caller must stop touching fd/c.
func (s *Server) drainFrames(fd int, c *connection.Connection) (closed bool) {
	frames, ferr := c.Decoder.Decode(c.ReadBuf)
	for _, frame := range frames {
		s.metrics.IncFramesReceived()
		s.metrics.AddBytesRead(len(frame))

		if !c.Limiter.Allow(time.Now()) {
			s.log.Warn().Msg(diag.Abuse(fd, "frame flood"))
			s.terminate(fd, "frame flood")
			return true
		}

		reply, effect := command.Dispatch(frame, s.statsText)
		if overflow := c.EnqueueReply(reply); overflow {
			s.log.Warn().Msg(diag.Backpressure(fd, c.WriteBuf.Len()))
			s.terminate(fd, "write buffer overflow")
			return true
		}
		if err := s.armWritable(c); err != nil {
			s.log.Error().Err(err).Msg("arm writable")
			s.terminate(fd, "registrar error")
			return true
		}

		if effect == command.EffectShutdownRequested {
			s.beginShutdown()
		}
	}

	if ferr != nil {
		s.log.Warn().Msg(diag.Abuse(fd, "protocol violation"))
		s.terminate(fd, "protocol violation")
		return true
	}
	return false
}

func (s *Server) armWritable(c *connection.Connection) error {
	if c.WriteBuf.Len() == 0 || c.WritableArmed {
		return nil
	}
	if err := s.poller.Modify(c.Fd, poller.Readable|poller.Writable); err != nil {
		return err
	}
	c.WritableArmed = true
	return nil
}

// handleWritable implements the write path from spec §4.4.
func (s *Server) handleWritable(fd int, c *connection.Connection) {
	written := 0
	for c.WriteBuf.Len() > 0 && written < connection.MaxWritePerTick {
		data := c.WriteBuf.Bytes()
		if remaining := connection.MaxWritePerTick - written; len(data) > remaining {
			data = data[:remaining]
		}
		n, err := unix.Write(fd, data)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			s.terminate(fd, "write error")
			return
		}
		c.WriteBuf.Consume(n)
		c.Touch(time.Now())
		s.metrics.AddBytesWritten(n)
		written += n
	}

	if c.WriteBuf.Len() == 0 && c.WritableArmed {
		if err := s.poller.Modify(fd, poller.Readable); err != nil {
			s.terminate(fd, "registrar error")
			return
		}
		c.WritableArmed = false
	}
}

// sweepIdle implements spec §4.1 step 1. Deleting the map entry for the
// key currently being visited is well-defined in Go's range over maps, so
// no separate "pending removal" list is needed.
func (s *Server) sweepIdle(now time.Time) {
	for fd, c := range s.conns {
		if c.Idle(now) {
			s.terminate(fd, "idle timeout")
		}
	}
}

// terminate implements spec §4.8: registrar removal, close, map erase,
// counter, log — in that order, exactly once, never recursive. An unknown
// fd is a no-op.
func (s *Server) terminate(fd int, reason string) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}
	_ = s.poller.Remove(fd)
	_ = unix.Close(fd)
	delete(s.conns, fd)
	c.Release()
	s.metrics.IncClosed()
	s.log.Info().Msg(diag.Close(fd, reason))
}

// beginShutdown implements spec §4.9's handler-side half: stop accepting
// by removing and closing the listening descriptor, and make sure the
// running flag is cleared regardless of which path (SHUTDOWN command or
// signal) triggered it. It is idempotent.
func (s *Server) beginShutdown() {
	if s.shuttingDown {
		return
	}
	s.shuttingDown = true
	s.wake.RequestShutdown()

	if s.listenFd >= 0 {
		_ = s.poller.Remove(s.listenFd)
		_ = unix.Close(s.listenFd)
		s.listenFd = -1
	}
	s.log.Info().Msg(diag.Control("shutdown initiated"))
}

// drain implements the rest of spec §4.9: close every remaining
// connection, clear the map, close the registrar. Per §4.9, queued bytes
// are not guaranteed to be flushed; this implementation takes the
// endorsed "best-effort flush" variant (non-blocking writes per
// connection until its write buffer is empty or a write fails or would
// block; no waiting for writability, no deadline) so a reply already
// queued before shutdown — notably a SHUTDOWN command's own OK — has a
// chance to reach the client before the socket closes.
func (s *Server) drain() {
	if s.listenFd >= 0 {
		_ = s.poller.Remove(s.listenFd)
		_ = unix.Close(s.listenFd)
		s.listenFd = -1
	}

	for fd, c := range s.conns {
		s.flushBestEffort(fd, c)
		_ = s.poller.Remove(fd)
		_ = unix.Close(fd)
		c.Release()
		s.metrics.IncClosed()
		s.log.Info().Msg(diag.Close(fd, "server shutdown"))
	}
	s.conns = make(map[int]*connection.Connection)

	_ = s.poller.Close()
	_ = s.wake.Close()
	s.log.Info().Msg(diag.Control("event loop stopped"))
}

func (s *Server) flushBestEffort(fd int, c *connection.Connection) {
	for c.WriteBuf.Len() > 0 {
		n, err := unix.Write(fd, c.WriteBuf.Bytes())
		if err != nil || n == 0 {
			return
		}
		c.WriteBuf.Consume(n)
	}
}

func (s *Server) totalWriteBufferBytes() int {
	total := 0
	for _, c := range s.conns {
		total += c.WriteBuf.Len()
	}
	return total
}

func (s *Server) statsSnapshot() metrics.Snapshot {
	return s.metrics.Snapshot(len(s.conns), s.totalWriteBufferBytes())
}

func (s *Server) statsText() string {
	return s.statsSnapshot().StatsText()
}
