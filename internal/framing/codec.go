// Package framing implements the length-prefixed frame protocol from
// spec.md §6.1 as a pure state machine: given identical byte streams
// split arbitrarily across reads, it yields the same frame sequence
// (spec §4.3). It never touches a socket.
package framing

import (
	"encoding/binary"

	"netloop/internal/buffer"
)

// MinFrameLen and MaxFrameLen bound the length prefix (spec §3, §6.1).
const (
	MinFrameLen = 1
	MaxFrameLen = 1_048_576
	lengthBytes = 4
)

// State is the framing state described in spec §3 ("explicit variant over
// {awaiting-length, awaiting-body(expected_len)}" per §9's design note).
type State int

const (
	AwaitingLength State = iota
	AwaitingBody
)

// Decoder decodes frames out of a buffer.Window incrementally. It holds
// exactly the state spec §3 assigns to a connection record: state and
// expected_len.
type Decoder struct {
	state       State
	expectedLen uint32
}

func NewDecoder() *Decoder {
	return &Decoder{state: AwaitingLength}
}

func (d *Decoder) State() State { return d.state }

// ErrProtocolViolation is returned by Decode when a length prefix is
// zero or exceeds MaxFrameLen. The caller (the event loop) must close the
// connection; the decoder does not know about connections.
var ErrProtocolViolation = protocolViolationError{}

type protocolViolationError struct{}

func (protocolViolationError) Error() string { return "framing: invalid frame length" }

// Decode drains as many complete frames as are available in buf, consuming
// their bytes from the front of buf as it goes. It returns the decoded
// frame payloads in arrival order. If a length prefix violates spec §6.1's
// bounds, it returns immediately with the frames decoded so far and a
// non-nil error; the caller must not feed buf to Decode again afterward.
func (d *Decoder) Decode(buf *buffer.Window) (frames [][]byte, err error) {
	for {
		if d.state == AwaitingLength {
			if buf.Len() < lengthBytes {
				return frames, nil
			}
			length := binary.BigEndian.Uint32(buf.Bytes()[:lengthBytes])
			buf.Consume(lengthBytes)

			if length < MinFrameLen || length > MaxFrameLen {
				return frames, ErrProtocolViolation
			}
			d.expectedLen = length
			d.state = AwaitingBody
		}

		// d.state == AwaitingBody
		if buf.Len() < int(d.expectedLen) {
			return frames, nil
		}
		frame := make([]byte, d.expectedLen)
		copy(frame, buf.Bytes()[:d.expectedLen])
		buf.Consume(int(d.expectedLen))

		frames = append(frames, frame)
		d.expectedLen = 0
		d.state = AwaitingLength
	}
}

// Encode produces the wire bytes for a reply frame: a 4-byte big-endian
// length followed by payload.
func Encode(payload []byte) []byte {
	out := make([]byte, lengthBytes+len(payload))
	binary.BigEndian.PutUint32(out[:lengthBytes], uint32(len(payload)))
	copy(out[lengthBytes:], payload)
	return out
}
