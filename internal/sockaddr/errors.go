package sockaddr

import "errors"

var (
	// ErrInvalidAddressFamily is returned for families other than
	// Unspecified, IPv4 and IPv6, or when a family lacks the requested
	// canonical address.
	ErrInvalidAddressFamily = errors.New("unsupported address family")

	// ErrAddressParse is returned when text is not a literal IP endpoint.
	ErrAddressParse = errors.New("unable to parse as IP address")

	// ErrTruncatedAddress is returned when a native binary endpoint does not
	// have the size its family requires.
	ErrTruncatedAddress = errors.New("truncated address")

	// ErrFamilyNotSet is returned when a port is set on an unspecified address.
	ErrFamilyNotSet = errors.New("address family not set")
)
