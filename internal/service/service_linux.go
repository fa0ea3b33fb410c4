//go:build linux

package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// unitDir is where unit files are written.
var unitDir = "/etc/systemd/system"

func isRootImpl() bool {
	return os.Getuid() == 0
}

func unitPath(name string) string {
	return filepath.Join(unitDir, name+".service")
}

func installImpl(cfg Config, execPath string) error {
	path := unitPath(cfg.Name)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("service %s is already installed at %s", cfg.Name, path)
	}

	if err := os.WriteFile(path, []byte(generateSystemdUnit(cfg, execPath)), 0644); err != nil {
		return fmt.Errorf("failed to write systemd unit file: %w", err)
	}

	if output, err := runCommand("systemctl", "daemon-reload"); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to reload systemd: %s: %w", strings.TrimSpace(output), err)
	}

	if output, err := runCommand("systemctl", "enable", "--now", cfg.Name); err != nil {
		return fmt.Errorf("failed to enable service: %s: %w", strings.TrimSpace(output), err)
	}

	return nil
}

func uninstallImpl(name string) error {
	path := unitPath(name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("service %s is not installed", name)
	}

	// A unit that is already stopped or disabled is fine.
	runCommand("systemctl", "disable", "--now", name)

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove systemd unit file: %w", err)
	}

	if output, err := runCommand("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %s: %w", strings.TrimSpace(output), err)
	}
	runCommand("systemctl", "reset-failed", name)

	return nil
}

func statusImpl(name string) (string, error) {
	output, err := runCommand("systemctl", "is-active", name)
	status := strings.TrimSpace(output)

	if err != nil {
		// is-active exits non-zero for every state except active.
		switch status {
		case "inactive", "failed", "activating", "deactivating", "unknown":
			return status, nil
		}
		return "", fmt.Errorf("failed to get service status: %w", err)
	}

	return status, nil
}

func isInstalledImpl(name string) bool {
	_, err := os.Stat(unitPath(name))
	return err == nil
}

func generateSystemdUnit(cfg Config, execPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[Unit]\nDescription=%s\nAfter=network-online.target\nWants=network-online.target\n\n", cfg.Description)

	fmt.Fprintf(&b, "[Service]\nType=simple\nExecStart=%s run -c %s\nWorkingDirectory=%s\n", execPath, cfg.ConfigPath, cfg.WorkingDir)
	if cfg.User != "" {
		fmt.Fprintf(&b, "User=%s\n", cfg.User)
	}
	if cfg.Group != "" {
		fmt.Fprintf(&b, "Group=%s\n", cfg.Group)
	}
	if cfg.BindPrivileged {
		b.WriteString("AmbientCapabilities=CAP_NET_BIND_SERVICE\nCapabilityBoundingSet=CAP_NET_BIND_SERVICE\n")
	}
	b.WriteString("Restart=on-failure\nRestartSec=5\nTimeoutStopSec=15\n\n")

	fmt.Fprintf(&b, "NoNewPrivileges=true\nProtectSystem=strict\nProtectHome=read-only\nPrivateTmp=true\nReadWritePaths=%s\n\n", cfg.WorkingDir)

	fmt.Fprintf(&b, "StandardOutput=journal\nStandardError=journal\nSyslogIdentifier=%s\n\n", cfg.Name)

	b.WriteString("[Install]\nWantedBy=multi-user.target\n")

	return b.String()
}
