package sockutil

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListenBindsEphemeralPortAndAcceptsConnections(t *testing.T) {
	fd, err := Listen(0, 128, 65536, 65536)
	require.NoError(t, err)
	defer unix.Close(fd)

	addr, err := unix.Getsockname(fd)
	require.NoError(t, err)
	sa, ok := addr.(*unix.SockaddrInet4)
	require.True(t, ok)
	require.NotZero(t, sa.Port)

	conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(sa.Port))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestListenRejectsPrivilegedPortWithoutCapabilities(t *testing.T) {
	if unix.Geteuid() == 0 {
		t.Skip("running as root: privileged port bind would succeed")
	}
	_, err := Listen(1, 128, 65536, 65536)
	require.Error(t, err)
}
