//go:build linux || solaris || windows

package sockaddr

func initInet4(sa *rawInet4) {
	sa.Family = uint16(IPv4)
}

func initInet6(sa *rawInet6) {
	sa.Family = uint16(IPv6)
}

func initAny(sa *rawAny, f Family) {
	sa.Addr.Family = uint16(f)
}

func familyOf(sa *rawAny) Family {
	return Family(sa.Addr.Family)
}
