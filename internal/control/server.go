// Package control provides a Unix socket control interface for udpshare.
package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/postalsys/udpshare/internal/sysinfo"
	"github.com/postalsys/udpshare/internal/udpmgr"
)

// DaemonInfo provides daemon information for the control interface.
type DaemonInfo interface {
	// IsRunning returns true if the daemon is running.
	IsRunning() bool

	// Uptime returns how long the daemon has been running.
	Uptime() time.Duration

	// Stats returns UDP manager statistics.
	Stats() udpmgr.Stats

	// Sockets returns the currently bound sockets.
	Sockets() []udpmgr.SocketInfo
}

// StatusResponse is the response for the status endpoint.
type StatusResponse struct {
	Running bool         `json:"running"`
	Uptime  string       `json:"uptime"`
	Stats   udpmgr.Stats `json:"stats"`
	System  sysinfo.Info `json:"system"`
}

// SocketsResponse is the response for the sockets endpoint.
type SocketsResponse struct {
	Sockets []udpmgr.SocketInfo `json:"sockets"`
}

// ServerConfig contains control server configuration.
type ServerConfig struct {
	// SocketPath is the path to the Unix socket file.
	SocketPath string

	// ReadTimeout for HTTP reads.
	ReadTimeout time.Duration

	// WriteTimeout for HTTP writes.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		SocketPath:   "./data/control.sock",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is a Unix socket HTTP server for control commands.
type Server struct {
	cfg      ServerConfig
	daemon   DaemonInfo
	server   *http.Server
	listener net.Listener
	running  atomic.Bool
}

// NewServer creates a new control server.
func NewServer(cfg ServerConfig, daemon DaemonInfo) *Server {
	s := &Server{
		cfg:    cfg,
		daemon: daemon,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/sockets", s.handleSockets)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start starts the control server.
func (s *Server) Start() error {
	// Remove a stale socket file left by a previous run
	if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	s.listener = ln
	s.running.Store(true)

	go s.server.Serve(ln)

	return nil
}

// Stop stops the control server and removes its socket file.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// SocketPath returns the socket path.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{
		Running: s.daemon.IsRunning(),
		Uptime:  s.daemon.Uptime().Truncate(time.Second).String(),
		Stats:   s.daemon.Stats(),
		System:  sysinfo.Collect(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleSockets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	socks := s.daemon.Sockets()
	if socks == nil {
		socks = []udpmgr.SocketInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SocketsResponse{Sockets: socks})
}
