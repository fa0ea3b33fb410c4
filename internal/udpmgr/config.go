package udpmgr

// Config holds socket options applied to every socket the Manager binds.
type Config struct {
	// ReuseAddr sets SO_REUSEADDR so other processes may bind the same
	// endpoint (needed for broadcast discovery on a shared port).
	ReuseAddr bool

	// ReusePort sets SO_REUSEPORT where the platform supports it.
	ReusePort bool

	// Broadcast sets SO_BROADCAST so sends to broadcast addresses are allowed.
	Broadcast bool

	// ControlMessages asks the OS for the destination address and receiving
	// interface of each datagram. Ignored where unsupported.
	ControlMessages bool

	// MaxDatagramSize is the receive buffer size. Longer datagrams are
	// truncated by the OS.
	MaxDatagramSize int

	// ReadBuffer and WriteBuffer set SO_RCVBUF and SO_SNDBUF.
	// 0 keeps the OS default.
	ReadBuffer  int
	WriteBuffer int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReuseAddr:       true,
		ReusePort:       false,
		Broadcast:       true,
		ControlMessages: true,
		MaxDatagramSize: 0x10000,
	}
}

func (c Config) bufferSize() int {
	if c.MaxDatagramSize <= 0 {
		return DefaultConfig().MaxDatagramSize
	}
	return c.MaxDatagramSize
}
