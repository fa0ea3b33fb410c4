package udpmgr

import (
	"time"

	"github.com/postalsys/udpshare/internal/sockaddr"
)

// Datagram is one received UDP datagram.
type Datagram struct {
	// Src is the sender.
	Src sockaddr.Addr

	// Local is the address the receiving socket is bound to.
	Local sockaddr.Addr

	// Dst is the address the datagram was sent to, when the OS reports it
	// (for example a broadcast address received on a wildcard socket).
	// Otherwise it equals Local.
	Dst sockaddr.Addr

	// IfIndex is the receiving interface index, 0 if unknown.
	IfIndex int

	// Payload is shared by every listener of the socket and must not be
	// modified.
	Payload []byte

	// Received is when the datagram was read from the socket.
	Received time.Time
}

// Handler receives datagrams for a Listener.
type Handler interface {
	// HandleDatagram is called from the socket's receive loop. A returned
	// error is logged and does not affect other listeners.
	HandleDatagram(d Datagram) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(d Datagram) error

// HandleDatagram calls f(d).
func (f HandlerFunc) HandleDatagram(d Datagram) error {
	return f(d)
}
