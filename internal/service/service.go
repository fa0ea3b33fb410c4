// Package service installs udpshare as a system service.
// Only systemd on Linux is supported.
package service

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrUnsupported is returned on platforms without a service backend.
var ErrUnsupported = errors.New("service management is not supported on this platform")

// ErrNotRoot is returned when an operation needs elevated privileges.
var ErrNotRoot = errors.New("must run as root to manage the service")

// Config holds configuration for installing the service.
type Config struct {
	// Name is the unit name without the .service suffix
	Name string

	// Description is the unit description
	Description string

	// ConfigPath is the absolute path to the config file
	ConfigPath string

	// WorkingDir is the working directory and the only writable path
	WorkingDir string

	// User and Group run the daemon, empty for root
	User  string
	Group string

	// BindPrivileged grants CAP_NET_BIND_SERVICE so ports below 1024 can be bound
	// without running as root.
	BindPrivileged bool
}

// DefaultConfig returns a service configuration for the config file at
// configPath.
func DefaultConfig(configPath string) Config {
	absPath, _ := filepath.Abs(configPath)

	return Config{
		Name:        "udpshare",
		Description: "Shared UDP socket daemon",
		ConfigPath:  absPath,
		WorkingDir:  filepath.Dir(absPath),
	}
}

// IsRoot reports whether the process runs with UID 0.
func IsRoot() bool {
	return isRootImpl()
}

// IsSupported reports whether this platform has a service backend.
func IsSupported() bool {
	return runtime.GOOS == "linux"
}

// Install writes, enables and starts the service unit for the running
// executable.
func Install(cfg Config) error {
	if !IsSupported() {
		return ErrUnsupported
	}
	if !IsRoot() {
		return ErrNotRoot
	}
	if cfg.Name == "" || cfg.ConfigPath == "" {
		return fmt.Errorf("service name and config path are required")
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	return installImpl(cfg, execPath)
}

// Uninstall stops, disables and removes the service unit.
func Uninstall(name string) error {
	if !IsSupported() {
		return ErrUnsupported
	}
	if !IsRoot() {
		return ErrNotRoot
	}
	return uninstallImpl(name)
}

// Status returns the service manager's view of the service, e.g. "active".
func Status(name string) (string, error) {
	if !IsSupported() {
		return "", ErrUnsupported
	}
	return statusImpl(name)
}

// IsInstalled reports whether a unit for name exists.
func IsInstalled(name string) bool {
	return isInstalledImpl(name)
}

// runCommand executes a command and returns combined output.
var runCommand = func(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).CombinedOutput()
	return string(output), err
}
