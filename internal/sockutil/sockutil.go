// Package sockutil creates the listening socket described in spec.md
// §4.1's component list ("listening socket factory"): non-blocking IPv4
// TCP, SO_REUSEADDR, configured buffer sizes, bound to 0.0.0.0:port, with
// listen() backlog applied. It is a thin wrapper over golang.org/x/sys/unix.
package sockutil

import "golang.org/x/sys/unix"

// Listen creates, configures, binds, and listens on a non-blocking IPv4
// TCP socket on 0.0.0.0:port. On any failure it closes whatever it
// created and returns the error; the caller treats this as the
// "startup syscall error" category from spec §7 (fatal).
func Listen(port, backlog, recvBufBytes, sendBufBytes int) (fd int, err error) {
	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}

	cleanup := func(cause error) (int, error) {
		_ = unix.Close(fd)
		return -1, cause
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return cleanup(err)
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufBytes); err != nil {
		return cleanup(err)
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sendBufBytes); err != nil {
		return cleanup(err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		return cleanup(err)
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err = unix.Bind(fd, addr); err != nil {
		return cleanup(err)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return cleanup(err)
	}

	return fd, nil
}
