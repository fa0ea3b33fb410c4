// Package daemon wires the UDP manager, its listeners and the health and
// control servers into one long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/postalsys/udpshare/internal/config"
	"github.com/postalsys/udpshare/internal/control"
	"github.com/postalsys/udpshare/internal/health"
	"github.com/postalsys/udpshare/internal/logging"
	"github.com/postalsys/udpshare/internal/metrics"
	"github.com/postalsys/udpshare/internal/sockaddr"
	"github.com/postalsys/udpshare/internal/sysinfo"
	"github.com/postalsys/udpshare/internal/udpmgr"
)

// Daemon owns one UDP manager and everything subscribed to it.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	mgr      *udpmgr.Manager

	listeners     []*udpmgr.Listener
	healthServer  *health.Server
	controlServer *control.Server

	startedAt atomic.Int64
	running   atomic.Bool
	stopOnce  sync.Once
}

// New creates a daemon from cfg. Nothing is bound until Start.
func New(cfg *config.Config) (*Daemon, error) {
	return NewWithLogger(cfg, logging.NewLogger(cfg.Log.Level, cfg.Log.Format))
}

// NewWithLogger is like New but logs to logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.Component(logger, "daemon"),
		registry: reg,
		mgr:      udpmgr.New(managerConfig(cfg.Sockets), logger, metrics.NewMetricsWithRegistry(reg)),
	}

	if cfg.Health.Enabled {
		d.healthServer = health.NewServer(health.ServerConfig{
			Address:      cfg.Health.Address,
			ReadTimeout:  cfg.Health.ReadTimeout,
			WriteTimeout: cfg.Health.WriteTimeout,
			Gatherer:     reg,
		}, d)
	}

	if cfg.Control.Enabled {
		ctl := control.DefaultServerConfig()
		ctl.SocketPath = cfg.Control.SocketPath
		d.controlServer = control.NewServer(ctl, d)
	}

	return d, nil
}

func managerConfig(s config.SocketsConfig) udpmgr.Config {
	return udpmgr.Config{
		ReuseAddr:       s.ReuseAddr,
		ReusePort:       s.ReusePort,
		Broadcast:       s.Broadcast,
		ControlMessages: s.ControlMessages,
		MaxDatagramSize: int(s.MaxDatagramSize),
		ReadBuffer:      int(s.ReadBuffer),
		WriteBuffer:     int(s.WriteBuffer),
	}
}

// Start subscribes to every configured listen address and starts the
// enabled servers. If any step fails everything started so far is undone.
func (d *Daemon) Start() error {
	if d.running.Load() {
		return fmt.Errorf("daemon already running")
	}

	addrs, err := d.cfg.ListenAddrs()
	if err != nil {
		return err
	}

	d.logger.Info("starting daemon",
		logging.KeyCount, len(addrs),
		"echo", d.cfg.Echo)

	for _, addr := range addrs {
		l, err := d.mgr.Subscribe(addr, d.handler())
		if err != nil {
			d.rollback()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		d.listeners = append(d.listeners, l)
		d.logger.Info("listening", logging.KeyLocalAddr, l.LocalAddr().String())
	}

	if d.healthServer != nil {
		if err := d.healthServer.Start(); err != nil {
			d.rollback()
			return fmt.Errorf("start health server: %w", err)
		}
		d.logger.Info("health server started",
			logging.KeyAddress, d.healthServer.Address().String())
	}

	if d.controlServer != nil {
		if err := d.controlServer.Start(); err != nil {
			if d.healthServer != nil {
				d.healthServer.Stop()
			}
			d.rollback()
			return fmt.Errorf("start control server: %w", err)
		}
		d.logger.Info("control server started",
			logging.KeyAddress, d.controlServer.SocketPath())
	}

	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)

	d.logger.Info("daemon started", logging.KeyListeners, len(d.listeners))
	return nil
}

func (d *Daemon) rollback() {
	for _, l := range d.listeners {
		l.Close()
	}
	d.listeners = nil
}

// handler logs each datagram and, in echo mode, returns the payload to the
// sender from the receiving socket.
func (d *Daemon) handler() udpmgr.Handler {
	return udpmgr.HandlerFunc(func(dg udpmgr.Datagram) error {
		if d.logger.Enabled(context.Background(), slog.LevelDebug) {
			d.logger.Debug("datagram received",
				logging.KeyLocalAddr, dg.Local.String(),
				logging.KeyRemoteAddr, dg.Src.String(),
				logging.KeyDstAddr, dg.Dst.String(),
				logging.KeyIfIndex, dg.IfIndex,
				logging.KeyInterface, sysinfo.InterfaceName(dg.IfIndex),
				logging.KeyBytes, len(dg.Payload))
		}

		if !d.cfg.Echo || dg.Src.IsUnspecified() {
			return nil
		}
		return d.mgr.SendFrom(dg.Local, dg.Src, dg.Payload)
	})
}

// Stop shuts down the servers, releases every listener and closes the
// manager. Only the first call does any work.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.logger.Info("stopping daemon")
		d.running.Store(false)

		var errs []error
		if d.healthServer != nil {
			if e := d.healthServer.Stop(); e != nil {
				errs = append(errs, fmt.Errorf("stop health server: %w", e))
			}
		}
		if d.controlServer != nil {
			if e := d.controlServer.Stop(); e != nil {
				errs = append(errs, fmt.Errorf("stop control server: %w", e))
			}
		}

		for _, l := range d.listeners {
			if e := l.Close(); e != nil && !errors.Is(e, udpmgr.ErrListenerClosed) {
				errs = append(errs, e)
			}
		}
		d.listeners = nil

		if e := d.mgr.Close(); e != nil {
			errs = append(errs, e)
		}

		err = errors.Join(errs...)
		d.logger.Info("daemon stopped")
	})

	return err
}

// StopWithContext stops with a timeout.
func (d *Daemon) StopWithContext(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- d.Stop()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the daemon is running.
func (d *Daemon) IsRunning() bool {
	return d.running.Load()
}

// Uptime returns the time since Start, or 0 when not running.
func (d *Daemon) Uptime() time.Duration {
	if !d.running.Load() {
		return 0
	}
	return time.Since(time.Unix(0, d.startedAt.Load()))
}

// Stats returns UDP manager statistics.
func (d *Daemon) Stats() udpmgr.Stats {
	return d.mgr.Stats()
}

// Sockets returns the bound socket table.
func (d *Daemon) Sockets() []udpmgr.SocketInfo {
	return d.mgr.Sockets()
}

// LocalAddrs returns the addresses the daemon's listeners are bound to.
func (d *Daemon) LocalAddrs() []sockaddr.Addr {
	addrs := make([]sockaddr.Addr, 0, len(d.listeners))
	for _, l := range d.listeners {
		addrs = append(addrs, l.LocalAddr())
	}
	return addrs
}

// HealthAddress returns the health server's listen address, or nil.
func (d *Daemon) HealthAddress() net.Addr {
	if d.healthServer == nil {
		return nil
	}
	return d.healthServer.Address()
}

// Gatherer returns the registry holding the daemon's metrics.
func (d *Daemon) Gatherer() prometheus.Gatherer {
	return d.registry
}
