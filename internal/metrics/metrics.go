// Package metrics tracks the process-wide counters in spec §3 and renders
// both wire formats that expose them: the exact STATS reply text (§6.2)
// and the free-form stdout dump triggered by the metrics-dump signal
// (§4.1 step 2, §6.4).
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"

	gbytes "github.com/labstack/gommon/bytes"
)

// Counters holds the single process-wide metrics record described in
// spec §3. Every field is updated exclusively from the event loop thread,
// but is read with atomic loads so the STATS command handler (also loop
// thread, but conceptually a distinct actor) and any future export path
// never race with the compiler's view of memory.
type Counters struct {
	connectionsAccepted atomic.Uint64
	connectionsClosed   atomic.Uint64
	bytesRead           atomic.Uint64
	bytesWritten        atomic.Uint64
	framesReceived      atomic.Uint64
}

func New() *Counters { return &Counters{} }

func (c *Counters) IncAccepted()          { c.connectionsAccepted.Add(1) }
func (c *Counters) IncClosed()            { c.connectionsClosed.Add(1) }
func (c *Counters) AddBytesRead(n int)    { c.bytesRead.Add(uint64(n)) }
func (c *Counters) AddBytesWritten(n int) { c.bytesWritten.Add(uint64(n)) }
func (c *Counters) IncFramesReceived()    { c.framesReceived.Add(1) }

func (c *Counters) Accepted() uint64      { return c.connectionsAccepted.Load() }
func (c *Counters) Closed() uint64        { return c.connectionsClosed.Load() }
func (c *Counters) BytesRead() uint64     { return c.bytesRead.Load() }
func (c *Counters) BytesWritten() uint64  { return c.bytesWritten.Load() }
func (c *Counters) FramesReceived() uint64 { return c.framesReceived.Load() }

// Snapshot is a point-in-time copy used to render both reply formats.
type Snapshot struct {
	Connections      int
	Accepted         uint64
	Closed           uint64
	Frames           uint64
	BytesRead        uint64
	BytesWritten     uint64
	WriteBufferBytes int
}

func (c *Counters) Snapshot(connections, writeBufferBytes int) Snapshot {
	return Snapshot{
		Connections:      connections,
		Accepted:         c.Accepted(),
		Closed:           c.Closed(),
		Frames:           c.FramesReceived(),
		BytesRead:        c.BytesRead(),
		BytesWritten:     c.BytesWritten(),
		WriteBufferBytes: writeBufferBytes,
	}
}

// StatsText renders the exact STATS reply payload from spec §6.2:
// LF-separated key=value lines, no trailing newline. This text is part of
// the wire contract and must not change shape.
func (s Snapshot) StatsText() string {
	lines := []string{
		fmt.Sprintf("connections=%d", s.Connections),
		fmt.Sprintf("accepted=%d", s.Accepted),
		fmt.Sprintf("closed=%d", s.Closed),
		fmt.Sprintf("frames=%d", s.Frames),
		fmt.Sprintf("bytes_read=%d", s.BytesRead),
		fmt.Sprintf("bytes_written=%d", s.BytesWritten),
	}
	return strings.Join(lines, "\n")
}

// DumpLine renders the free-form, human-readable summary written to
// standard output when the metrics-dump signal fires (§4.1 step 2). Byte
// counters are rendered with gommon/bytes so an operator watching the
// console does not have to mentally divide by 1<<20.
func (s Snapshot) DumpLine() string {
	return fmt.Sprintf(
		"metrics: connections=%d accepted=%d closed=%d frames=%d bytes_read=%s bytes_written=%s write_buffer=%s",
		s.Connections, s.Accepted, s.Closed, s.Frames,
		gbytes.Format(int64(s.BytesRead)),
		gbytes.Format(int64(s.BytesWritten)),
		gbytes.Format(int64(s.WriteBufferBytes)),
	)
}
