// Package connection defines the per-client record from spec.md §3: one
// struct per accepted descriptor, mutated only by the event loop thread
// that owns it (spec §5).
package connection

import (
	"time"

	"netloop/internal/buffer"
	"netloop/internal/framing"
	"netloop/internal/ratelimit"
)

const (
	// WriteHighWater is the hard cap from spec §3/§4.6: exceeding it after
	// enqueuing a reply terminates the connection.
	WriteHighWater = 524_288
	// WriteLowWater is reserved for a future pause/resume policy (spec
	// §4.6); nothing in this implementation reads it yet.
	WriteLowWater = 131_072

	// IdleTimeout is the inactivity window after which the loop's sweep
	// closes a connection (spec §4.1 step 1, §5).
	IdleTimeout = 30 * time.Second

	// MaxWritePerTick caps how many bytes a single WRITABLE dispatch
	// drains for one connection, so one connection cannot starve others
	// sharing the loop thread (spec §4.4).
	MaxWritePerTick = 65_536

	// ReadChunk is the size of the stack buffer the read path uses per
	// syscall (spec §4.3).
	ReadChunk = 4096
)

// Connection is the record spec §3 describes. Fd is immutable after
// construction; everything else is mutated in place by the loop.
type Connection struct {
	Fd int

	ReadBuf  *buffer.Window
	WriteBuf *buffer.Window
	Decoder  *framing.Decoder
	Limiter  *ratelimit.Limiter

	LastActivity time.Time

	// WritableArmed mirrors what the registrar currently has armed for
	// this fd, so the loop only issues a Modify call when the armed state
	// actually needs to change (spec invariant §8.4).
	WritableArmed bool
}

func New(fd int, now time.Time) *Connection {
	return &Connection{
		Fd:       fd,
		ReadBuf:  buffer.New(),
		WriteBuf: buffer.New(),
		Decoder:  framing.NewDecoder(),
		Limiter:  ratelimit.New(now),
		LastActivity: now,
	}
}

// Touch records read/write activity, resetting the idle clock.
func (c *Connection) Touch(now time.Time) {
	c.LastActivity = now
}

// Idle reports whether the connection has been inactive longer than
// IdleTimeout as of now.
func (c *Connection) Idle(now time.Time) bool {
	return now.Sub(c.LastActivity) > IdleTimeout
}

// EnqueueReply appends an encoded reply frame to the write buffer and
// reports whether doing so pushed the buffer past WriteHighWater. The
// caller must terminate the connection when overflow is true (spec §4.6).
func (c *Connection) EnqueueReply(payload []byte) (overflow bool) {
	c.WriteBuf.Append(framing.Encode(payload))
	return c.WriteBuf.Len() > WriteHighWater
}

// Release returns the connection's pooled buffers. Call once, after the
// descriptor has been closed and removed from the registrar.
func (c *Connection) Release() {
	c.ReadBuf.Release()
	c.WriteBuf.Release()
}
