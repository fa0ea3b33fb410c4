//go:build unix

package sockaddr

import "golang.org/x/sys/unix"

// Supported address families.
const (
	Unspecified Family = unix.AF_UNSPEC
	IPv4        Family = unix.AF_INET
	IPv6        Family = unix.AF_INET6
)

type (
	rawInet4 = unix.RawSockaddrInet4
	rawInet6 = unix.RawSockaddrInet6
	rawAny   = unix.RawSockaddrAny
)
