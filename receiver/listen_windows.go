//go:build windows

package receiver

import "syscall"

// controlReuseAddrPort is a no-op on Windows: there is no SO_REUSEPORT
// equivalent worth emulating for this single-listener service.
func controlReuseAddrPort(_, _ string, _ syscall.RawConn) error {
	return nil
}
