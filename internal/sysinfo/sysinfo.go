// Package sysinfo collects host and network interface information shown by
// the status endpoints and used to name interfaces in datagram logs.
package sysinfo

import (
	"net"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"
)

var (
	// Version is the daemon version, set at build time via ldflags.
	// Example: go build -ldflags="-X github.com/postalsys/udpshare/internal/sysinfo.Version=1.0.0"
	Version = "dev"

	startTime = time.Now()
)

// Interface describes one network interface. Index matches the interface
// index reported with received datagrams.
type Interface struct {
	Index int      `json:"index"`
	Name  string   `json:"name"`
	Up    bool     `json:"up"`
	Addrs []string `json:"addrs,omitempty"`
}

// Info describes the host the daemon runs on.
type Info struct {
	Hostname   string      `json:"hostname"`
	OS         string      `json:"os"`
	Arch       string      `json:"arch"`
	Version    string      `json:"version"`
	StartTime  time.Time   `json:"start_time"`
	Interfaces []Interface `json:"interfaces"`
}

// Collect gathers host information.
func Collect() Info {
	hostname, _ := os.Hostname()

	return Info{
		Hostname:   hostname,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Version:    Version,
		StartTime:  startTime,
		Interfaces: Interfaces(),
	}
}

// Interfaces returns every interface with its addresses, ordered by index.
func Interfaces() []Interface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	out := make([]Interface, 0, len(ifaces))
	for _, ifi := range ifaces {
		entry := Interface{
			Index: ifi.Index,
			Name:  ifi.Name,
			Up:    ifi.Flags&net.FlagUp != 0,
		}
		if addrs, err := ifi.Addrs(); err == nil {
			for _, a := range addrs {
				entry.Addrs = append(entry.Addrs, a.String())
			}
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

var names sync.Map // int -> string

// InterfaceName returns the name of the interface with the given index, or
// the index in decimal when it is unknown. Zero means no interface and
// yields "".
func InterfaceName(index int) string {
	if index <= 0 {
		return ""
	}
	if name, ok := names.Load(index); ok {
		return name.(string)
	}

	ifi, err := net.InterfaceByIndex(index)
	if err != nil {
		return strconv.Itoa(index)
	}
	names.Store(index, ifi.Name)
	return ifi.Name
}

// StartTime returns when the process started.
func StartTime() time.Time {
	return startTime
}

// Uptime returns how long the process has been running.
func Uptime() time.Duration {
	return time.Since(startTime)
}
