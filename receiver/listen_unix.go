//go:build !windows

package receiver

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlReuseAddrPort sets SO_REUSEADDR and SO_REUSEPORT on the listening
// socket before bind, grounded on the teacher's indirect golang.org/x/sys
// dependency and used here for the one thing the stdlib cannot do
// portably: SO_REUSEPORT.
func controlReuseAddrPort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
