//go:build unix || windows

package sockaddr

import (
	"fmt"
	"net/netip"
	"unsafe"
)

const (
	sizeofInet4 = unsafe.Sizeof(rawInet4{})
	sizeofInet6 = unsafe.Sizeof(rawInet6{})
	sizeofAny   = unsafe.Sizeof(rawAny{})

	// familyHeaderLen covers the length and family fields on every platform.
	familyHeaderLen = 2
)

// Size returns the number of significant bytes in the native binary form of
// a: sizeof(sockaddr_in) for IPv4, sizeof(sockaddr_in6) for IPv6 and the full
// sockaddr storage size otherwise.
func (a Addr) Size() int {
	switch a.Family() {
	case IPv4:
		return int(sizeofInet4)
	case IPv6:
		return int(sizeofInet6)
	default:
		return int(sizeofAny)
	}
}

// Raw returns a in the operating system's native sockaddr layout, exactly
// Size() bytes long, with the port in network byte order.
func (a Addr) Raw() []byte {
	switch a.Family() {
	case IPv4:
		var sa rawInet4
		initInet4(&sa)
		putPort(&sa.Port, a.Port())
		sa.Addr = a.ap.Addr().As4()
		return copyOut(unsafe.Pointer(&sa), sizeofInet4)
	case IPv6:
		var sa rawInet6
		initInet6(&sa)
		putPort(&sa.Port, a.Port())
		sa.Addr = a.ap.Addr().As16()
		return copyOut(unsafe.Pointer(&sa), sizeofInet6)
	default:
		var sa rawAny
		initAny(&sa, Unspecified)
		return copyOut(unsafe.Pointer(&sa), sizeofAny)
	}
}

// FromRaw decodes a native sockaddr as produced by recvfrom(2) or
// getsockname(2). The family is read from the header; b must then be exactly
// the size of that family's sockaddr (at least the header for Unspecified,
// at most the storage size).
func FromRaw(b []byte) (Addr, error) {
	if len(b) < familyHeaderLen || len(b) > int(sizeofAny) {
		return Addr{}, fmt.Errorf("%w: %d bytes", ErrTruncatedAddress, len(b))
	}

	var storage rawAny
	copyIn(unsafe.Pointer(&storage), b)

	family := familyOf(&storage)
	if _, err := New(family); err != nil {
		return Addr{}, err
	}

	switch family {
	case IPv4:
		if len(b) != int(sizeofInet4) {
			return Addr{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncatedAddress, family, sizeofInet4, len(b))
		}
		sa := (*rawInet4)(unsafe.Pointer(&storage))
		ip := netip.AddrFrom4(sa.Addr)
		return Addr{ap: netip.AddrPortFrom(ip, getPort(&sa.Port))}, nil
	case IPv6:
		if len(b) != int(sizeofInet6) {
			return Addr{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncatedAddress, family, sizeofInet6, len(b))
		}
		sa := (*rawInet6)(unsafe.Pointer(&storage))
		ip := netip.AddrFrom16(sa.Addr)
		return Addr{ap: netip.AddrPortFrom(ip, getPort(&sa.Port))}, nil
	default:
		return Addr{}, nil
	}
}

func putPort(p *uint16, port uint16) {
	b := (*[2]byte)(unsafe.Pointer(p))
	b[0] = byte(port >> 8)
	b[1] = byte(port)
}

func getPort(p *uint16) uint16 {
	b := (*[2]byte)(unsafe.Pointer(p))
	return uint16(b[0])<<8 | uint16(b[1])
}

func copyOut(p unsafe.Pointer, n uintptr) []byte {
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(p), n))
	return out
}

func copyIn(p unsafe.Pointer, b []byte) {
	copy(unsafe.Slice((*byte)(p), sizeofAny), b)
}
