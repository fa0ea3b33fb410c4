//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package udpmgr

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control applies the configured socket options before bind.
func (c Config) control(network, address string, rc syscall.RawConn) error {
	var opErr error
	err := rc.Control(func(fd uintptr) {
		if c.ReuseAddr {
			if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); opErr != nil {
				return
			}
		}
		if c.ReusePort {
			if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); opErr != nil {
				return
			}
		}
		if c.Broadcast {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
