package udpmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/postalsys/udpshare/internal/logging"
	"github.com/postalsys/udpshare/internal/metrics"
	"github.com/postalsys/udpshare/internal/sockaddr"
)

var (
	// ErrBind is returned when the OS refuses to bind a socket.
	ErrBind = errors.New("bind failed")

	// ErrSend is returned when the OS fails to transmit a datagram.
	ErrSend = errors.New("send failed")

	// ErrListenerClosed is returned when a released Listener is used again.
	ErrListenerClosed = errors.New("listener already closed")

	// ErrManagerClosed is returned by every operation after Manager.Close.
	ErrManagerClosed = errors.New("udp manager closed")

	// ErrNotBound is returned by SendFrom when no socket is bound to the
	// requested local address.
	ErrNotBound = errors.New("no socket bound to local address")

	// ErrFamilyMismatch is returned when sending to a destination whose
	// family differs from the socket's.
	ErrFamilyMismatch = errors.New("address family mismatch")
)

// Stats is a snapshot of Manager activity.
type Stats struct {
	Sockets           int    `json:"sockets"`
	Listeners         int    `json:"listeners"`
	Binds             uint64 `json:"binds"`
	DatagramsReceived uint64 `json:"datagrams_received"`
	BytesReceived     uint64 `json:"bytes_received"`
	DatagramsSent     uint64 `json:"datagrams_sent"`
	BytesSent         uint64 `json:"bytes_sent"`
	DispatchErrors    uint64 `json:"dispatch_errors"`
	SendErrors        uint64 `json:"send_errors"`
}

// SocketInfo describes one bound socket.
type SocketInfo struct {
	Local     sockaddr.Addr `json:"local"`
	Listeners int           `json:"listeners"`
	Datagrams uint64        `json:"datagrams"`
	Bytes     uint64        `json:"bytes"`
	Opened    time.Time     `json:"opened"`
}

// Manager owns a set of shared UDP sockets keyed by local address.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[sockaddr.Addr]*entry
	closed  bool

	binds             atomic.Uint64
	datagramsReceived atomic.Uint64
	bytesReceived     atomic.Uint64
	datagramsSent     atomic.Uint64
	bytesSent         atomic.Uint64
	dispatchErrors    atomic.Uint64
	sendErrors        atomic.Uint64

	wg sync.WaitGroup
}

// New creates a Manager. A nil logger discards output; nil metrics use the
// process-wide default instance.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.Default()
	}

	return &Manager{
		cfg:     cfg,
		logger:  logging.Component(logger, "udpmgr"),
		metrics: m,
		entries: make(map[sockaddr.Addr]*entry),
	}
}

// Subscribe registers h for every datagram arriving on the socket bound to
// local, binding that socket if this is its first listener. Subscribing
// with port 0 binds a fresh ephemeral port; Listener.LocalAddr reports it.
//
// If the bind fails nothing is registered and the error wraps ErrBind and
// the OS error.
func (m *Manager) Subscribe(local sockaddr.Addr, h Handler) (*Listener, error) {
	if h == nil {
		return nil, errors.New("subscribe: nil handler")
	}
	if local.IsUnspecified() {
		return nil, fmt.Errorf("subscribe %s: %w", local, sockaddr.ErrInvalidAddressFamily)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	e, ok := m.entries[local]
	if !ok {
		var err error
		e, err = m.bindLocked(local)
		if err != nil {
			return nil, err
		}
	}

	sub := &subscription{handler: h}
	e.listeners = append(e.listeners, sub)
	m.metrics.RecordSubscribe()

	m.logger.Debug("listener subscribed",
		logging.KeyLocalAddr, e.local.String(),
		logging.KeyListeners, len(e.listeners))

	return newListener(m, e, sub), nil
}

// bindLocked opens, registers and starts a new socket entry.
// Must be called with m.mu held.
func (m *Manager) bindLocked(local sockaddr.Addr) (*entry, error) {
	lc := net.ListenConfig{Control: m.cfg.control}
	pc, err := lc.ListenPacket(context.Background(), local.Network(), local.AddrPort().String())
	if err != nil {
		m.metrics.RecordBindError()
		m.logger.Warn("bind failed",
			logging.KeyLocalAddr, local.String(),
			logging.KeyError, err)
		return nil, fmt.Errorf("%w %s: %w", ErrBind, local, err)
	}
	conn := pc.(*net.UDPConn)

	if m.cfg.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(m.cfg.ReadBuffer); err != nil {
			m.logger.Debug("set read buffer failed", logging.KeyLocalAddr, local.String(), logging.KeyError, err)
		}
	}
	if m.cfg.WriteBuffer > 0 {
		if err := conn.SetWriteBuffer(m.cfg.WriteBuffer); err != nil {
			m.logger.Debug("set write buffer failed", logging.KeyLocalAddr, local.String(), logging.KeyError, err)
		}
	}

	// Port 0 resolves to an ephemeral port; key the entry by what the OS chose.
	key := local
	if local.Port() == 0 {
		bound, err := sockaddr.FromUDPAddr(conn.LocalAddr().(*net.UDPAddr))
		if err == nil && bound.Family() == local.Family() {
			key = bound
		}
		if existing, ok := m.entries[key]; ok {
			conn.Close()
			return existing, nil
		}
	}

	packets, err := newPacketConn(conn, key.Family(), m.cfg.ControlMessages)
	if err != nil {
		m.logger.Debug("control messages unavailable",
			logging.KeyLocalAddr, key.String(),
			logging.KeyError, err)
	}

	e := &entry{
		local:   key,
		conn:    conn,
		packets: packets,
		opened:  time.Now(),
		errLog:  rate.NewLimiter(rate.Every(time.Second), 5),
	}
	m.entries[key] = e

	m.binds.Add(1)
	m.metrics.RecordBind()
	m.logger.Info("socket bound", logging.KeyLocalAddr, key.String())

	m.wg.Add(1)
	go m.receiveLoop(e)

	return e, nil
}

// unsubscribe removes sub from e and closes e's socket when sub was the last
// listener.
func (m *Manager) unsubscribe(e *entry, sub *subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if sub.closed.Load() {
		return ErrListenerClosed
	}

	sub.closed.Store(true)
	e.listeners = slices.DeleteFunc(e.listeners, func(x *subscription) bool { return x == sub })
	m.metrics.RecordUnsubscribe()

	m.logger.Debug("listener released",
		logging.KeyLocalAddr, e.local.String(),
		logging.KeyListeners, len(e.listeners))

	if len(e.listeners) > 0 {
		return nil
	}

	// Last listener: close while still holding the lock so a concurrent
	// Subscribe for the same address binds only after the old socket is gone.
	if m.entries[e.local] == e {
		delete(m.entries, e.local)
	}
	return m.closeEntryLocked(e)
}

// closeEntryLocked closes e's socket. Closing an already closed entry is a
// no-op. Must be called with m.mu held.
func (m *Manager) closeEntryLocked(e *entry) error {
	if e.closed.Swap(true) {
		return nil
	}

	m.metrics.RecordSocketClose()
	m.logger.Info("socket closed", logging.KeyLocalAddr, e.local.String())

	if err := e.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close %s: %w", e.local, err)
	}
	return nil
}

// SendFrom transmits payload to dst from the socket bound to local.
func (m *Manager) SendFrom(local, dst sockaddr.Addr, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	e, ok := m.entries[local]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("send from %s: %w", local, ErrNotBound)
	}
	return m.send(e, dst, payload)
}

func (m *Manager) send(e *entry, dst sockaddr.Addr, payload []byte) error {
	if dst.Family() != e.local.Family() {
		m.recordSendError()
		return fmt.Errorf("%w to %s from %s: %w", ErrSend, dst, e.local, ErrFamilyMismatch)
	}

	n, err := e.conn.WriteToUDPAddrPort(payload, dst.AddrPort())
	if err != nil {
		m.recordSendError()
		return fmt.Errorf("%w to %s from %s: %w", ErrSend, dst, e.local, err)
	}

	m.datagramsSent.Add(1)
	m.bytesSent.Add(uint64(n))
	m.metrics.RecordSend(n)
	return nil
}

func (m *Manager) recordSendError() {
	m.sendErrors.Add(1)
	m.metrics.RecordSendError()
}

// Close force-closes every socket regardless of outstanding listeners and
// waits for all receive loops to exit. Afterwards every Listener is invalid
// and every operation returns ErrManagerClosed. Calling Close again is a
// no-op that returns nil. Close must not be called from a Handler.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	var errs []error
	for key, e := range m.entries {
		for _, sub := range e.listeners {
			sub.closed.Store(true)
			m.metrics.RecordUnsubscribe()
		}
		e.listeners = nil
		if err := m.closeEntryLocked(e); err != nil {
			errs = append(errs, err)
		}
		delete(m.entries, key)
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.logger.Info("udp manager closed")
	return errors.Join(errs...)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Stats returns a snapshot of manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	sockets := len(m.entries)
	listeners := 0
	for _, e := range m.entries {
		listeners += len(e.listeners)
	}
	m.mu.Unlock()

	return Stats{
		Sockets:           sockets,
		Listeners:         listeners,
		Binds:             m.binds.Load(),
		DatagramsReceived: m.datagramsReceived.Load(),
		BytesReceived:     m.bytesReceived.Load(),
		DatagramsSent:     m.datagramsSent.Load(),
		BytesSent:         m.bytesSent.Load(),
		DispatchErrors:    m.dispatchErrors.Load(),
		SendErrors:        m.sendErrors.Load(),
	}
}

// Sockets lists the bound sockets ordered by local address.
func (m *Manager) Sockets() []SocketInfo {
	m.mu.Lock()
	infos := make([]SocketInfo, 0, len(m.entries))
	for _, e := range m.entries {
		infos = append(infos, SocketInfo{
			Local:     e.local,
			Listeners: len(e.listeners),
			Datagrams: e.datagrams.Load(),
			Bytes:     e.bytes.Load(),
			Opened:    e.opened,
		})
	}
	m.mu.Unlock()

	slices.SortFunc(infos, func(a, b SocketInfo) int { return a.Local.Compare(b.Local) })
	return infos
}
