// Package buffer implements the head/tail byte window spec.md §9 calls
// for: a contiguous, growable backing array consumed from the front in
// O(n) amortized time rather than the naive slice-reslice-per-byte
// pattern. The backing array itself is borrowed from
// github.com/valyala/bytebufferpool so per-connection buffers do not each
// allocate a fresh slice.
package buffer

import "github.com/valyala/bytebufferpool"

// compactThreshold bounds how much of the backing array is allowed to sit
// unused behind the head pointer before Consume pays to slide the
// remaining bytes down to index 0.
const compactThreshold = 4096

// Window is an append-at-tail, consume-at-front byte buffer.
type Window struct {
	bb   *bytebufferpool.ByteBuffer
	head int
}

func New() *Window {
	return &Window{bb: bytebufferpool.Get()}
}

// Append extends the buffer with p, copying it into the pooled backing
// array.
func (w *Window) Append(p []byte) {
	w.bb.Write(p) //nolint:errcheck // bytebufferpool.Write never fails
}

// Len returns the number of unconsumed bytes.
func (w *Window) Len() int {
	return len(w.bb.B) - w.head
}

// Bytes returns the unconsumed bytes. The slice is only valid until the
// next Append or Consume call.
func (w *Window) Bytes() []byte {
	return w.bb.B[w.head:]
}

// Consume drops n bytes from the front of the window.
func (w *Window) Consume(n int) {
	if n <= 0 {
		return
	}
	w.head += n
	if w.head >= len(w.bb.B) {
		w.bb.Reset()
		w.head = 0
		return
	}
	if w.head > compactThreshold && w.head*2 > len(w.bb.B) {
		w.compact()
	}
}

func (w *Window) compact() {
	remaining := len(w.bb.B) - w.head
	copy(w.bb.B[:remaining], w.bb.B[w.head:])
	w.bb.B = w.bb.B[:remaining]
	w.head = 0
}

// Release returns the backing array to the pool. The Window must not be
// used afterward.
func (w *Window) Release() {
	w.bb.Reset()
	bytebufferpool.Put(w.bb)
}
