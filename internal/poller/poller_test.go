package poller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAddWaitReportsReadable(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))

	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Add(fds[0], Readable))

	_, err = unix.Write(fds[1], []byte("hi"))
	require.NoError(t, err)

	events, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, fds[0], events[0].Fd)
	require.True(t, events[0].Readable)
}

func TestRemoveUnknownFdIsNotError(t *testing.T) {
	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Remove(99999))
}

func TestModifyToWritableThenReadableOnly(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	require.NoError(t, unix.SetNonblock(fds[0], true))

	p, err := New(16)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Add(fds[0], Readable))
	require.NoError(t, p.Modify(fds[0], Readable|Writable))
	require.NoError(t, p.Modify(fds[0], Readable))
}
