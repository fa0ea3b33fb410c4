//go:build unix || windows

package sockaddr

import (
	"errors"
	"testing"
	"unsafe"
)

func TestSize(t *testing.T) {
	v4 := MustParse("10.0.0.1:1", 0)
	v6 := MustParse("[::1]:1", 0)

	if v4.Size() != int(sizeofInet4) {
		t.Errorf("IPv4 Size() = %d, want %d", v4.Size(), sizeofInet4)
	}
	if v6.Size() != int(sizeofInet6) {
		t.Errorf("IPv6 Size() = %d, want %d", v6.Size(), sizeofInet6)
	}
	if (Addr{}).Size() != int(sizeofAny) {
		t.Errorf("Unspecified Size() = %d, want %d", (Addr{}).Size(), sizeofAny)
	}
	if v4.Size() >= v6.Size() || v6.Size() > (Addr{}).Size() {
		t.Error("sizes should grow from IPv4 to IPv6 to storage")
	}
}

func TestRaw_RoundTrip(t *testing.T) {
	addrs := []Addr{
		MustParse("192.168.1.10:54321", 0),
		MustParse("0.0.0.0:5076", 0),
		MustParse("[2001:db8::1]:5076", 0),
		MustParse("[::]:1", 0),
		{},
	}

	for _, a := range addrs {
		raw := a.Raw()
		if len(raw) != a.Size() {
			t.Errorf("%s: len(Raw()) = %d, want %d", a, len(raw), a.Size())
		}
		back, err := FromRaw(raw)
		if err != nil {
			t.Errorf("%s: FromRaw() error = %v", a, err)
			continue
		}
		if back != a {
			t.Errorf("FromRaw(%s.Raw()) = %s", a, back)
		}
	}
}

func TestRaw_NetworkByteOrder(t *testing.T) {
	raw := MustParse("1.2.3.4:5076", 0).Raw()

	// Port follows the two byte family header on every platform.
	if raw[2] != 0x13 || raw[3] != 0xd4 {
		t.Errorf("port bytes = %#x %#x, want 0x13 0xd4", raw[2], raw[3])
	}
	if raw[4] != 1 || raw[5] != 2 || raw[6] != 3 || raw[7] != 4 {
		t.Errorf("host bytes = %v, want 1.2.3.4", raw[4:8])
	}
}

func TestFromRaw_Truncated(t *testing.T) {
	for _, a := range []Addr{MustParse("10.0.0.1:1", 0), MustParse("[::1]:1", 0)} {
		raw := a.Raw()
		for n := familyHeaderLen; n < len(raw); n++ {
			if _, err := FromRaw(raw[:n]); !errors.Is(err, ErrTruncatedAddress) {
				t.Errorf("%s: FromRaw(%d bytes) error = %v, want ErrTruncatedAddress", a.Family(), n, err)
			}
		}
	}

	for _, n := range []int{0, 1} {
		if _, err := FromRaw(make([]byte, n)); !errors.Is(err, ErrTruncatedAddress) {
			t.Errorf("FromRaw(%d bytes) error = %v, want ErrTruncatedAddress", n, err)
		}
	}
}

func TestFromRaw_Oversized(t *testing.T) {
	raw := MustParse("10.0.0.1:1", 0).Raw()
	padded := append(raw, 0, 0, 0, 0)
	if _, err := FromRaw(padded); !errors.Is(err, ErrTruncatedAddress) {
		t.Errorf("FromRaw(padded) error = %v, want ErrTruncatedAddress", err)
	}

	if _, err := FromRaw(make([]byte, sizeofAny+1)); !errors.Is(err, ErrTruncatedAddress) {
		t.Errorf("FromRaw(storage+1) error = %v, want ErrTruncatedAddress", err)
	}
}

func TestFromRaw_UnknownFamily(t *testing.T) {
	var sa rawAny
	initAny(&sa, Family(0xf0))
	raw := copyOut(unsafe.Pointer(&sa), sizeofAny)

	if _, err := FromRaw(raw); !errors.Is(err, ErrInvalidAddressFamily) {
		t.Errorf("FromRaw(unknown family) error = %v, want ErrInvalidAddressFamily", err)
	}
}
