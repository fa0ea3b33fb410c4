//go:build aix || darwin || dragonfly || freebsd || netbsd || openbsd

package sockaddr

// BSD-derived sockaddrs start with a length byte followed by a one byte family.

func initInet4(sa *rawInet4) {
	sa.Len = uint8(sizeofInet4)
	sa.Family = uint8(IPv4)
}

func initInet6(sa *rawInet6) {
	sa.Len = uint8(sizeofInet6)
	sa.Family = uint8(IPv6)
}

func initAny(sa *rawAny, f Family) {
	sa.Addr.Len = uint8(sizeofAny)
	sa.Addr.Family = uint8(f)
}

func familyOf(sa *rawAny) Family {
	return Family(sa.Addr.Family)
}
