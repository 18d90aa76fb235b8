package wakeup

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRunningDefaultsTrueAndShutdownClearsIt(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	require.True(t, w.Running())
	w.RequestShutdown()
	require.False(t, w.Running())
}

func TestMetricsDumpRequestIsTakeOnce(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	require.False(t, w.TakeMetricsDumpRequest())
	w.RequestMetricsDump()
	require.True(t, w.TakeMetricsDumpRequest())
	require.False(t, w.TakeMetricsDumpRequest())
}

func TestDrainConsumesEventfdCounter(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	w.RequestMetricsDump()
	w.Drain() // must not block or panic

	var buf [8]byte
	_, err = unix.Read(w.Fd(), buf[:])
	require.ErrorIs(t, err, unix.EAGAIN) // counter is back to zero
}
