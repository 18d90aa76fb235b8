package framing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"netloop/internal/buffer"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("PONG")
	frame := Encode(payload)

	buf := buffer.New()
	defer buf.Release()
	buf.Append(frame)

	d := NewDecoder()
	frames, err := d.Decode(buf)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, payload, frames[0])
}

func TestDecodeAcrossManySmallReads(t *testing.T) {
	payload := []byte("hello world, this is a test payload")
	wire := Encode(payload)

	buf := buffer.New()
	defer buf.Release()
	d := NewDecoder()

	var got [][]byte
	for _, b := range wire {
		buf.Append([]byte{b})
		frames, err := d.Decode(buf)
		require.NoError(t, err)
		got = append(got, frames...)
	}
	require.Len(t, got, 1)
	require.Equal(t, payload, got[0])
}

func TestDecodeTwoFramesCoalescedInOneRead(t *testing.T) {
	a := Encode([]byte("PING"))
	b := Encode([]byte("PONG"))

	buf := buffer.New()
	defer buf.Release()
	buf.Append(append(append([]byte{}, a...), b...))

	d := NewDecoder()
	frames, err := d.Decode(buf)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, []byte("PING"), frames[0])
	require.Equal(t, []byte("PONG"), frames[1])
}

func TestZeroLengthIsProtocolViolation(t *testing.T) {
	buf := buffer.New()
	defer buf.Release()
	buf.Append([]byte{0, 0, 0, 0})

	d := NewDecoder()
	frames, err := d.Decode(buf)
	require.ErrorIs(t, err, ErrProtocolViolation)
	require.Empty(t, frames)
}

func TestOversizedLengthIsProtocolViolation(t *testing.T) {
	buf := buffer.New()
	defer buf.Release()
	oversized := uint32(MaxFrameLen + 1)
	buf.Append([]byte{
		byte(oversized >> 24), byte(oversized >> 16), byte(oversized >> 8), byte(oversized),
	})

	d := NewDecoder()
	_, err := d.Decode(buf)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestMaxFrameLenIsAccepted(t *testing.T) {
	buf := buffer.New()
	defer buf.Release()
	buf.Append([]byte{0, 0x10, 0, 0}) // 1,048,576

	d := NewDecoder()
	frames, err := d.Decode(buf)
	require.NoError(t, err)
	require.Empty(t, frames) // waiting for body, not yet delivered
	require.Equal(t, AwaitingBody, d.State())
}
