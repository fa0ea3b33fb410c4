// Package sockaddr provides the socket endpoint value type used by the UDP
// manager and everything built on top of it.
//
// An Addr holds exactly one of three shapes: unspecified, an IPv4 endpoint or
// an IPv6 endpoint. The zero value is the unspecified address. Addr values are
// comparable and are used directly as map keys: two addresses are equal only
// if family, host bytes and port all match, so "0.0.0.0:5076" and
// "[::]:5076" are distinct.
package sockaddr

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Family identifies the layout of an endpoint. Its numeric values are the
// host operating system's AF_* constants.
type Family uint16

// String returns a short name for the family.
func (f Family) String() string {
	switch f {
	case Unspecified:
		return "unspec"
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", uint16(f))
	}
}

// Valid reports whether f is one of the supported families.
func (f Family) Valid() bool {
	switch f {
	case Unspecified, IPv4, IPv6:
		return true
	default:
		return false
	}
}

// Addr is an IPv4 or IPv6 socket endpoint, or the unspecified address.
type Addr struct {
	ap netip.AddrPort
}

// New returns the empty address of the given family: the wildcard host with
// port 0 for IPv4 and IPv6, and the unspecified address for Unspecified.
func New(family Family) (Addr, error) {
	switch family {
	case Unspecified:
		return Addr{}, nil
	case IPv4:
		return Addr{ap: netip.AddrPortFrom(netip.IPv4Unspecified(), 0)}, nil
	case IPv6:
		return Addr{ap: netip.AddrPortFrom(netip.IPv6Unspecified(), 0)}, nil
	default:
		return Addr{}, fmt.Errorf("%w: %s", ErrInvalidAddressFamily, family)
	}
}

// NewFromString parses host as an endpoint of the given family, applying port
// when host carries no explicit port. With Unspecified any family is accepted.
func NewFromString(family Family, host string, port uint16) (Addr, error) {
	if _, err := New(family); err != nil {
		return Addr{}, err
	}

	a, err := Parse(host, port)
	if err != nil {
		return Addr{}, err
	}

	if family != Unspecified && a.Family() != family {
		return Addr{}, fmt.Errorf("%w: %q is not an %s address", ErrAddressParse, host, family)
	}

	return a, nil
}

// Parse parses "host", "host:port", "[v6host]" or "[v6host]:port" where host
// is a literal IP address. Names are never resolved. When the text carries no
// port, or port 0, defaultPort is used.
func Parse(name string, defaultPort uint16) (Addr, error) {
	ap, err := parseEndpoint(name)
	if err != nil {
		return Addr{}, fmt.Errorf("%w: %q", ErrAddressParse, name)
	}

	if ap.Port() == 0 {
		ap = netip.AddrPortFrom(ap.Addr(), defaultPort)
	}

	return Addr{ap: ap}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(name string, defaultPort uint16) Addr {
	a, err := Parse(name, defaultPort)
	if err != nil {
		panic(err)
	}
	return a
}

func parseEndpoint(s string) (netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		if ap.Addr().Zone() != "" {
			return netip.AddrPort{}, fmt.Errorf("zoned address")
		}
		return ap, nil
	}

	host := s
	bracketed := strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
	if bracketed {
		host = s[1 : len(s)-1]
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if ip.Zone() != "" {
		return netip.AddrPort{}, fmt.Errorf("zoned address")
	}
	if bracketed && !ip.Is6() {
		return netip.AddrPort{}, fmt.Errorf("brackets around non-IPv6 address")
	}

	return netip.AddrPortFrom(ip, 0), nil
}

// Any returns the wildcard address of family with the given port.
func Any(family Family, port uint16) (Addr, error) {
	switch family {
	case IPv4:
		return Addr{ap: netip.AddrPortFrom(netip.IPv4Unspecified(), port)}, nil
	case IPv6:
		return Addr{ap: netip.AddrPortFrom(netip.IPv6Unspecified(), port)}, nil
	default:
		return Addr{}, fmt.Errorf("%w: %s has no wildcard address", ErrInvalidAddressFamily, family)
	}
}

// Loopback returns the loopback address of family with the given port.
func Loopback(family Family, port uint16) (Addr, error) {
	switch family {
	case IPv4:
		return Addr{ap: netip.AddrPortFrom(ipv4Loopback, port)}, nil
	case IPv6:
		return Addr{ap: netip.AddrPortFrom(netip.IPv6Loopback(), port)}, nil
	default:
		return Addr{}, fmt.Errorf("%w: %s has no loopback address", ErrInvalidAddressFamily, family)
	}
}

var ipv4Loopback = netip.AddrFrom4([4]byte{127, 0, 0, 1})

// FromAddrPort converts a netip endpoint. IPv4-mapped IPv6 hosts are unmapped
// and zones are dropped; an invalid endpoint yields the unspecified address.
func FromAddrPort(ap netip.AddrPort) Addr {
	if !ap.IsValid() {
		return Addr{}
	}
	ip := ap.Addr().Unmap().WithZone("")
	return Addr{ap: netip.AddrPortFrom(ip, ap.Port())}
}

// FromUDPAddr converts a net.UDPAddr. A nil address yields the unspecified
// address.
func FromUDPAddr(u *net.UDPAddr) (Addr, error) {
	if u == nil {
		return Addr{}, nil
	}
	if u.Port < 0 || u.Port > 0xffff {
		return Addr{}, fmt.Errorf("%w: port %d out of range", ErrAddressParse, u.Port)
	}
	ip, ok := netip.AddrFromSlice(u.IP)
	if !ok {
		return Addr{}, fmt.Errorf("%w: invalid IP %v", ErrAddressParse, u.IP)
	}
	return FromAddrPort(netip.AddrPortFrom(ip, uint16(u.Port))), nil
}

// Family returns the address family.
func (a Addr) Family() Family {
	ip := a.ap.Addr()
	switch {
	case ip.Is4():
		return IPv4
	case ip.Is6():
		return IPv6
	default:
		return Unspecified
	}
}

// IsUnspecified reports whether a carries no endpoint at all.
func (a Addr) IsUnspecified() bool {
	return a.Family() == Unspecified
}

// IP returns the host part. It is the zero netip.Addr for Unspecified.
func (a Addr) IP() netip.Addr {
	return a.ap.Addr()
}

// Port returns the port in host byte order, 0 for Unspecified.
func (a Addr) Port() uint16 {
	return a.ap.Port()
}

// WithPort returns a copy of a with the port replaced.
func (a Addr) WithPort(port uint16) (Addr, error) {
	switch a.Family() {
	case IPv4, IPv6:
		return Addr{ap: netip.AddrPortFrom(a.ap.Addr(), port)}, nil
	default:
		return Addr{}, fmt.Errorf("%w: set family before port", ErrFamilyNotSet)
	}
}

// IsAny reports whether a is the wildcard address of its family.
func (a Addr) IsAny() bool {
	switch a.Family() {
	case IPv4:
		return a.ap.Addr() == netip.IPv4Unspecified()
	case IPv6:
		return a.ap.Addr() == netip.IPv6Unspecified()
	default:
		return false
	}
}

// IsLoopback reports whether a is 127.0.0.1 or ::1. Other 127/8 hosts are not
// treated as loopback.
func (a Addr) IsLoopback() bool {
	switch a.Family() {
	case IPv4:
		return a.ap.Addr() == ipv4Loopback
	case IPv6:
		return a.ap.Addr() == netip.IPv6Loopback()
	default:
		return false
	}
}

// String renders "1.2.3.4:5076", "[::1]:5076", or "<>" for Unspecified.
func (a Addr) String() string {
	switch a.Family() {
	case IPv4, IPv6:
		if !a.ap.IsValid() {
			return "<???>"
		}
		return a.ap.String()
	case Unspecified:
		return "<>"
	default:
		return "<???>"
	}
}

// Compare orders addresses by family, host bytes and then port.
func (a Addr) Compare(b Addr) int {
	return a.ap.Compare(b.ap)
}

// AddrPort returns the netip form of a.
func (a Addr) AddrPort() netip.AddrPort {
	return a.ap
}

// UDPAddr returns the net form of a, or nil for Unspecified.
func (a Addr) UDPAddr() *net.UDPAddr {
	if a.IsUnspecified() {
		return nil
	}
	return net.UDPAddrFromAddrPort(a.ap)
}

// Network returns the Go network name that binds sockets of a's family.
func (a Addr) Network() string {
	switch a.Family() {
	case IPv4:
		return "udp4"
	case IPv6:
		return "udp6"
	default:
		return "udp"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "<>" and the empty
// string decode to the unspecified address.
func (a *Addr) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "<>" {
		*a = Addr{}
		return nil
	}
	parsed, err := Parse(s, 0)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
