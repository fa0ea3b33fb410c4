package udpmgr

import (
	"errors"
	"net"
	"net/netip"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/postalsys/udpshare/internal/logging"
	"github.com/postalsys/udpshare/internal/metrics"
	"github.com/postalsys/udpshare/internal/recovery"
	"github.com/postalsys/udpshare/internal/sockaddr"
)

// readErrorBackoff throttles the receive loop while the socket keeps failing.
const readErrorBackoff = 10 * time.Millisecond

// entry is one bound socket and the listeners sharing it.
type entry struct {
	local   sockaddr.Addr
	conn    *net.UDPConn
	packets *packetConn
	opened  time.Time

	// listeners is guarded by Manager.mu. Its length is the reference count.
	listeners []*subscription

	closed    atomic.Bool
	datagrams atomic.Uint64
	bytes     atomic.Uint64

	// errLog limits listener and read failure logs per socket.
	errLog *rate.Limiter
}

// receiveLoop reads datagrams until the socket is closed and hands each one
// to dispatch before reading the next.
func (m *Manager) receiveLoop(e *entry) {
	defer m.wg.Done()
	defer recovery.RecoverWithLog(m.logger, "udpmgr.receiveLoop")

	buf := make([]byte, m.cfg.bufferSize())

	for {
		p, err := e.packets.readFrom(buf)
		if err != nil {
			if e.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			m.metrics.RecordReadError()
			if e.errLog.Allow() {
				m.logger.Debug("socket read failed",
					logging.KeyLocalAddr, e.local.String(),
					logging.KeyError, err)
			}
			time.Sleep(readErrorBackoff)
			continue
		}

		d := Datagram{
			Src:      addrOf(p.src),
			Local:    e.local,
			Dst:      e.local,
			IfIndex:  p.ifIndex,
			Payload:  append([]byte(nil), buf[:p.n]...),
			Received: time.Now(),
		}
		if ip, ok := netip.AddrFromSlice(p.dst); ok {
			d.Dst = sockaddr.FromAddrPort(netip.AddrPortFrom(ip, e.local.Port()))
		}

		e.datagrams.Add(1)
		e.bytes.Add(uint64(p.n))
		m.datagramsReceived.Add(1)
		m.bytesReceived.Add(uint64(p.n))
		m.metrics.RecordReceive(p.n)

		m.dispatch(e, d)
	}
}

// dispatch delivers d to a snapshot of e's listeners in registration order.
// The registry lock is not held while handlers run, so handlers may
// subscribe or close listeners. Listeners closed after the snapshot was
// taken are skipped.
func (m *Manager) dispatch(e *entry, d Datagram) {
	m.mu.Lock()
	targets := make([]*subscription, len(e.listeners))
	copy(targets, e.listeners)
	m.mu.Unlock()

	start := time.Now()
	for _, sub := range targets {
		if sub.closed.Load() {
			continue
		}
		if err := m.deliver(sub, d); err != nil {
			reason := metrics.ReasonError
			if errors.Is(err, recovery.ErrPanic) {
				reason = metrics.ReasonPanic
			}
			m.dispatchErrors.Add(1)
			m.metrics.RecordDispatchError(reason)
			if e.errLog.Allow() {
				m.logger.Warn("listener failed",
					logging.KeyLocalAddr, e.local.String(),
					logging.KeyRemoteAddr, d.Src.String(),
					logging.KeyError, err)
			}
		}
	}
	m.metrics.RecordDispatch(time.Since(start).Seconds())
}

func (m *Manager) deliver(sub *subscription, d Datagram) (err error) {
	defer recovery.RecoverInto(m.logger, "udpmgr.handler", &err)
	return sub.handler.HandleDatagram(d)
}

func addrOf(a net.Addr) sockaddr.Addr {
	u, ok := a.(*net.UDPAddr)
	if !ok {
		return sockaddr.Addr{}
	}
	s, err := sockaddr.FromUDPAddr(u)
	if err != nil {
		return sockaddr.Addr{}
	}
	return s
}
