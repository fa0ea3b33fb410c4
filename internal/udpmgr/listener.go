package udpmgr

import (
	"runtime"
	"sync/atomic"

	"github.com/postalsys/udpshare/internal/logging"
	"github.com/postalsys/udpshare/internal/sockaddr"
)

// subscription is the registry's view of a Listener. It never points back at
// the Listener so that an abandoned Listener can be collected.
type subscription struct {
	handler Handler
	closed  atomic.Bool
}

// Listener is one subscription to a shared socket. It holds a reference on
// the socket until Close. A Listener that becomes unreachable without Close
// is released by the garbage collector, which may happen at any time after
// its last use; callers that want delivery must keep the Listener reachable.
type Listener struct {
	mgr     *Manager
	entry   *entry
	sub     *subscription
	cleanup runtime.Cleanup
}

// release is the state a collected Listener needs to drop its reference.
type release struct {
	mgr   *Manager
	entry *entry
	sub   *subscription
}

func newListener(m *Manager, e *entry, s *subscription) *Listener {
	l := &Listener{mgr: m, entry: e, sub: s}
	l.cleanup = runtime.AddCleanup(l, func(r release) {
		if r.sub.closed.Load() {
			return
		}
		r.mgr.logger.Debug("listener collected without Close", logging.KeyLocalAddr, r.entry.local.String())
		r.mgr.unsubscribe(r.entry, r.sub)
	}, release{mgr: m, entry: e, sub: s})
	return l
}

// LocalAddr returns the address the shared socket is bound to. After a
// port-0 subscribe this carries the port the OS assigned.
func (l *Listener) LocalAddr() sockaddr.Addr {
	return l.entry.local
}

// Close stops delivery to this listener and releases its reference. When no
// references remain the socket is closed. Once Close returns the handler is
// not invoked for datagrams read afterwards; a delivery already in progress
// on the receive loop may still complete.
func (l *Listener) Close() error {
	l.cleanup.Stop()
	return l.mgr.unsubscribe(l.entry, l.sub)
}

// Send transmits payload to dst from the listener's socket.
func (l *Listener) Send(dst sockaddr.Addr, payload []byte) error {
	if l.sub.closed.Load() {
		if l.mgr.isClosed() {
			return ErrManagerClosed
		}
		return ErrListenerClosed
	}
	err := l.mgr.send(l.entry, dst, payload)
	runtime.KeepAlive(l)
	return err
}
