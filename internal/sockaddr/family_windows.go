//go:build windows

package sockaddr

import "golang.org/x/sys/windows"

// Supported address families.
const (
	Unspecified Family = windows.AF_UNSPEC
	IPv4        Family = windows.AF_INET
	IPv6        Family = windows.AF_INET6
)

type (
	rawInet4 = windows.RawSockaddrInet4
	rawInet6 = windows.RawSockaddrInet6
	rawAny   = windows.RawSockaddrAny
)
