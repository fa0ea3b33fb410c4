//go:build windows

package udpmgr

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

// control applies the configured socket options before bind. Windows has no
// SO_REUSEPORT.
func (c Config) control(network, address string, rc syscall.RawConn) error {
	if c.ReusePort {
		return errors.New("SO_REUSEPORT is not supported on windows")
	}

	var opErr error
	err := rc.Control(func(fd uintptr) {
		if c.ReuseAddr {
			if opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); opErr != nil {
				return
			}
		}
		if c.Broadcast {
			opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
