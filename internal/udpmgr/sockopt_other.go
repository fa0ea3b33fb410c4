//go:build aix || solaris

package udpmgr

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// control applies the configured socket options before bind. SO_REUSEPORT is
// not offered on these systems.
func (c Config) control(network, address string, rc syscall.RawConn) error {
	if c.ReusePort {
		return errors.New("SO_REUSEPORT is not supported on this platform")
	}

	var opErr error
	err := rc.Control(func(fd uintptr) {
		if c.ReuseAddr {
			if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); opErr != nil {
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
