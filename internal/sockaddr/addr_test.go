package sockaddr

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFamily_String(t *testing.T) {
	tests := []struct {
		family Family
		want   string
	}{
		{Unspecified, "unspec"},
		{IPv4, "ipv4"},
		{IPv6, "ipv6"},
		{Family(0xfff0), "family(65520)"},
	}

	for _, tt := range tests {
		if got := tt.family.String(); got != tt.want {
			t.Errorf("Family(%d).String() = %q, want %q", uint16(tt.family), got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	for _, f := range []Family{Unspecified, IPv4, IPv6} {
		a, err := New(f)
		if err != nil {
			t.Fatalf("New(%s) error = %v", f, err)
		}
		if a.Family() != f {
			t.Errorf("New(%s).Family() = %s", f, a.Family())
		}
		if a.Port() != 0 {
			t.Errorf("New(%s).Port() = %d, want 0", f, a.Port())
		}
	}

	if _, err := New(Family(0xfff0)); !errors.Is(err, ErrInvalidAddressFamily) {
		t.Errorf("New(bogus) error = %v, want ErrInvalidAddressFamily", err)
	}
}

func TestZeroValueIsUnspecified(t *testing.T) {
	var a Addr
	if !a.IsUnspecified() {
		t.Error("zero Addr should be unspecified")
	}
	if a.String() != "<>" {
		t.Errorf("String() = %q, want <>", a.String())
	}
	if a.UDPAddr() != nil {
		t.Error("UDPAddr() of unspecified should be nil")
	}
	if a.IsAny() || a.IsLoopback() {
		t.Error("unspecified address is neither any nor loopback")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"10.0.0.5:9000",
		"0.0.0.0:5076",
		"127.0.0.1:1",
		"255.255.255.255:65535",
		"[::1]:5076",
		"[::]:5075",
		"[fe80::1]:80",
		"[2001:db8::42]:5076",
		"[::ffff:10.1.2.3]:5076",
	}

	for _, in := range inputs {
		a, err := Parse(in, 1)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", in, err)
			continue
		}
		if got := a.String(); got != in {
			t.Errorf("Parse(%q).String() = %q", in, got)
		}
	}
}

func TestParse_DefaultPort(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		family Family
	}{
		{"bare IPv4 gets default", "10.0.0.5", "10.0.0.5:5076", IPv4},
		{"explicit port wins", "10.0.0.5:9000", "10.0.0.5:9000", IPv4},
		{"explicit zero port means unset", "10.0.0.5:0", "10.0.0.5:5076", IPv4},
		{"bare IPv6", "::1", "[::1]:5076", IPv6},
		{"bracketed IPv6 without port", "[::1]", "[::1]:5076", IPv6},
		{"bracketed IPv6 with port", "[::1]:9000", "[::1]:9000", IPv6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Parse(tc.input, 5076)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if a.String() != tc.want {
				t.Errorf("String() = %q, want %q", a.String(), tc.want)
			}
			if a.Family() != tc.family {
				t.Errorf("Family() = %s, want %s", a.Family(), tc.family)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"localhost",
		"example.com:80",
		"10.0.0",
		"10.0.0.256",
		"10.0.0.5:99999",
		"10.0.0.5:abc",
		"[10.0.0.5]",
		"[10.0.0.5]:80",
		"fe80::1%eth0",
		"[fe80::1%eth0]:80",
		" 10.0.0.5",
	}

	for _, in := range inputs {
		if _, err := Parse(in, 5076); !errors.Is(err, ErrAddressParse) {
			t.Errorf("Parse(%q) error = %v, want ErrAddressParse", in, err)
		}
	}
}

func TestNewFromString(t *testing.T) {
	a, err := NewFromString(IPv4, "192.168.1.10", 54321)
	if err != nil {
		t.Fatalf("NewFromString() error = %v", err)
	}
	if a.String() != "192.168.1.10:54321" {
		t.Errorf("String() = %q", a.String())
	}

	if _, err := NewFromString(IPv4, "::1", 5076); !errors.Is(err, ErrAddressParse) {
		t.Errorf("family mismatch error = %v, want ErrAddressParse", err)
	}

	a, err = NewFromString(Unspecified, "::1", 5076)
	if err != nil {
		t.Fatalf("NewFromString(Unspecified) error = %v", err)
	}
	if a.Family() != IPv6 {
		t.Errorf("Family() = %s, want ipv6", a.Family())
	}

	if _, err := NewFromString(Family(0xfff0), "10.0.0.1", 1); !errors.Is(err, ErrInvalidAddressFamily) {
		t.Errorf("bogus family error = %v, want ErrInvalidAddressFamily", err)
	}
}

func TestAnyAndLoopback(t *testing.T) {
	for _, f := range []Family{IPv4, IPv6} {
		wild, err := Any(f, 5076)
		if err != nil {
			t.Fatalf("Any(%s) error = %v", f, err)
		}
		if !wild.IsAny() || wild.IsLoopback() {
			t.Errorf("Any(%s) = %s: IsAny=%v IsLoopback=%v", f, wild, wild.IsAny(), wild.IsLoopback())
		}
		if wild.Port() != 5076 || wild.Family() != f {
			t.Errorf("Any(%s) = %s", f, wild)
		}

		lo, err := Loopback(f, 5076)
		if err != nil {
			t.Fatalf("Loopback(%s) error = %v", f, err)
		}
		if !lo.IsLoopback() || lo.IsAny() {
			t.Errorf("Loopback(%s) = %s: IsAny=%v IsLoopback=%v", f, lo, lo.IsAny(), lo.IsLoopback())
		}
		if lo.Port() != 5076 || lo.Family() != f {
			t.Errorf("Loopback(%s) = %s", f, lo)
		}
	}

	if _, err := Any(Unspecified, 1); !errors.Is(err, ErrInvalidAddressFamily) {
		t.Errorf("Any(Unspecified) error = %v", err)
	}
	if _, err := Loopback(Unspecified, 1); !errors.Is(err, ErrInvalidAddressFamily) {
		t.Errorf("Loopback(Unspecified) error = %v", err)
	}
}

func TestIsLoopback_ExactHost(t *testing.T) {
	if MustParse("127.0.0.2:1", 0).IsLoopback() {
		t.Error("127.0.0.2 should not be reported as loopback")
	}
	if MustParse("[::ffff:127.0.0.1]:1", 0).IsLoopback() {
		t.Error("IPv4-mapped loopback is an IPv6 host, not ::1")
	}
}

func TestWithPort(t *testing.T) {
	a := MustParse("10.0.0.5", 1)
	b, err := a.WithPort(9000)
	if err != nil {
		t.Fatalf("WithPort() error = %v", err)
	}
	if b.Port() != 9000 || a.Port() != 1 {
		t.Errorf("WithPort mutated receiver or failed: a=%s b=%s", a, b)
	}

	if _, err := (Addr{}).WithPort(1); !errors.Is(err, ErrFamilyNotSet) {
		t.Errorf("WithPort on unspecified error = %v, want ErrFamilyNotSet", err)
	}
}

func TestEquality_NoNormalization(t *testing.T) {
	v4 := MustParse("0.0.0.0:5076", 0)
	v6 := MustParse("[::]:5076", 0)
	if v4 == v6 {
		t.Error("0.0.0.0 and :: must be distinct keys")
	}

	m := map[Addr]int{v4: 1, v6: 2}
	if m[MustParse("0.0.0.0", 5076)] != 1 {
		t.Error("equal addresses should hit the same map key")
	}
	if v4.Compare(v6) >= 0 {
		t.Error("IPv4 addresses should order before IPv6")
	}
	if MustParse("10.0.0.1:1", 0).Compare(MustParse("10.0.0.1:2", 0)) >= 0 {
		t.Error("ports should break ties")
	}
}

func TestFromUDPAddr(t *testing.T) {
	a, err := FromUDPAddr(&net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 54321})
	if err != nil {
		t.Fatalf("FromUDPAddr() error = %v", err)
	}
	if a.Family() != IPv4 || a.String() != "192.168.1.10:54321" {
		t.Errorf("FromUDPAddr() = %s (%s)", a, a.Family())
	}

	a, err = FromUDPAddr(nil)
	if err != nil || !a.IsUnspecified() {
		t.Errorf("FromUDPAddr(nil) = %s, %v", a, err)
	}

	if _, err := FromUDPAddr(&net.UDPAddr{IP: net.IP{1, 2, 3}, Port: 1}); !errors.Is(err, ErrAddressParse) {
		t.Errorf("bad IP error = %v", err)
	}
	if _, err := FromUDPAddr(&net.UDPAddr{IP: net.IPv4zero, Port: 70000}); !errors.Is(err, ErrAddressParse) {
		t.Errorf("bad port error = %v", err)
	}

	round := MustParse("[2001:db8::1]:7", 0)
	back, err := FromUDPAddr(round.UDPAddr())
	if err != nil || back != round {
		t.Errorf("UDPAddr round trip = %s, %v", back, err)
	}
}

func TestFromAddrPort(t *testing.T) {
	mapped := netip.MustParseAddrPort("[::ffff:10.0.0.1]:5076")
	if got := FromAddrPort(mapped); got.Family() != IPv4 || got.String() != "10.0.0.1:5076" {
		t.Errorf("FromAddrPort(mapped) = %s", got)
	}

	zoned := netip.AddrPortFrom(netip.MustParseAddr("fe80::1%eth0"), 1)
	if got := FromAddrPort(zoned); got.String() != "[fe80::1]:1" {
		t.Errorf("FromAddrPort(zoned) = %s", got)
	}

	if got := FromAddrPort(netip.AddrPort{}); !got.IsUnspecified() {
		t.Errorf("FromAddrPort(invalid) = %s", got)
	}
}

func TestNetwork(t *testing.T) {
	tests := []struct {
		addr Addr
		want string
	}{
		{MustParse("1.2.3.4:1", 0), "udp4"},
		{MustParse("[::1]:1", 0), "udp6"},
		{Addr{}, "udp"},
	}
	for _, tt := range tests {
		if got := tt.addr.Network(); got != tt.want {
			t.Errorf("%s.Network() = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestTextMarshaling_YAML(t *testing.T) {
	type doc struct {
		Bind  Addr   `yaml:"bind"`
		Peers []Addr `yaml:"peers"`
		Empty Addr   `yaml:"empty"`
	}

	in := doc{
		Bind:  MustParse("0.0.0.0:5076", 0),
		Peers: []Addr{MustParse("[::1]:5075", 0)},
	}

	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out doc
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if out.Bind != in.Bind || len(out.Peers) != 1 || out.Peers[0] != in.Peers[0] || !out.Empty.IsUnspecified() {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}

	if err := yaml.Unmarshal([]byte("bind: not-an-ip\n"), &out); !errors.Is(err, ErrAddressParse) {
		t.Errorf("Unmarshal(bad) error = %v, want ErrAddressParse", err)
	}
}
