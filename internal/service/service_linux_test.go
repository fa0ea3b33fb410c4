//go:build linux

package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateSystemdUnit(t *testing.T) {
	cfg := Config{
		Name:        "udpshare",
		Description: "Shared UDP socket daemon",
		ConfigPath:  "/etc/udpshare/udpshare.yaml",
		WorkingDir:  "/etc/udpshare",
	}

	unit := generateSystemdUnit(cfg, "/usr/local/bin/udpshare")

	for _, want := range []string{
		"[Unit]",
		"Description=Shared UDP socket daemon",
		"After=network-online.target",
		"[Service]",
		"ExecStart=/usr/local/bin/udpshare run -c /etc/udpshare/udpshare.yaml",
		"WorkingDirectory=/etc/udpshare",
		"Restart=on-failure",
		"NoNewPrivileges=true",
		"ReadWritePaths=/etc/udpshare",
		"SyslogIdentifier=udpshare",
		"[Install]",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q:\n%s", want, unit)
		}
	}

	for _, absent := range []string{"User=", "Group=", "AmbientCapabilities="} {
		if strings.Contains(unit, absent) {
			t.Errorf("unit should not contain %q", absent)
		}
	}
}

func TestGenerateSystemdUnitWithUserAndCapability(t *testing.T) {
	cfg := Config{
		Name:           "udpshare",
		Description:    "test",
		ConfigPath:     "/etc/udpshare.yaml",
		WorkingDir:     "/etc",
		User:           "udpshare",
		Group:          "nogroup",
		BindPrivileged: true,
	}

	unit := generateSystemdUnit(cfg, "/usr/bin/udpshare")

	for _, want := range []string{
		"User=udpshare",
		"Group=nogroup",
		"AmbientCapabilities=CAP_NET_BIND_SERVICE",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q", want)
		}
	}
}

func withFakeSystemd(t *testing.T, fn func(name string, args ...string) (string, error)) (dir string, calls *[]string) {
	t.Helper()

	oldDir, oldRun := unitDir, runCommand
	t.Cleanup(func() { unitDir, runCommand = oldDir, oldRun })

	unitDir = t.TempDir()
	var recorded []string
	runCommand = func(name string, args ...string) (string, error) {
		recorded = append(recorded, name+" "+strings.Join(args, " "))
		return fn(name, args...)
	}
	return unitDir, &recorded
}

func TestInstallUninstallImpl(t *testing.T) {
	dir, calls := withFakeSystemd(t, func(string, ...string) (string, error) { return "", nil })

	cfg := DefaultConfig("/etc/udpshare/udpshare.yaml")
	if err := installImpl(cfg, "/usr/local/bin/udpshare"); err != nil {
		t.Fatalf("installImpl() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "udpshare.service"))
	if err != nil {
		t.Fatalf("unit file not written: %v", err)
	}
	if !strings.Contains(string(data), "ExecStart=/usr/local/bin/udpshare run") {
		t.Errorf("unexpected unit content:\n%s", data)
	}
	if !isInstalledImpl("udpshare") {
		t.Error("isInstalledImpl() = false after install")
	}

	if err := installImpl(cfg, "/usr/local/bin/udpshare"); err == nil {
		t.Error("second installImpl() should fail")
	}

	if err := uninstallImpl("udpshare"); err != nil {
		t.Fatalf("uninstallImpl() error = %v", err)
	}
	if isInstalledImpl("udpshare") {
		t.Error("isInstalledImpl() = true after uninstall")
	}
	if err := uninstallImpl("udpshare"); err == nil {
		t.Error("uninstallImpl() of a missing unit should fail")
	}

	want := []string{
		"systemctl daemon-reload",
		"systemctl enable --now udpshare",
		"systemctl disable --now udpshare",
		"systemctl daemon-reload",
		"systemctl reset-failed udpshare",
	}
	if strings.Join(*calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("systemctl calls = %q, want %q", *calls, want)
	}
}

func TestInstallImplReloadFailureRemovesUnit(t *testing.T) {
	dir, _ := withFakeSystemd(t, func(string, ...string) (string, error) {
		return "boom", errors.New("exit status 1")
	})

	if err := installImpl(DefaultConfig("/etc/udpshare.yaml"), "/usr/bin/udpshare"); err == nil {
		t.Fatal("installImpl() should fail when daemon-reload fails")
	}
	if _, err := os.Stat(filepath.Join(dir, "udpshare.service")); !os.IsNotExist(err) {
		t.Error("unit file should be removed after a failed reload")
	}
}

func TestStatusImpl(t *testing.T) {
	tests := []struct {
		output  string
		err     error
		want    string
		wantErr bool
	}{
		{"active\n", nil, "active", false},
		{"inactive\n", errors.New("exit status 3"), "inactive", false},
		{"failed\n", errors.New("exit status 3"), "failed", false},
		{"", errors.New("exec: not found"), "", true},
	}

	for _, tt := range tests {
		withFakeSystemd(t, func(string, ...string) (string, error) { return tt.output, tt.err })

		got, err := statusImpl("udpshare")
		if (err != nil) != tt.wantErr {
			t.Errorf("statusImpl() with %q error = %v, wantErr %v", tt.output, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("statusImpl() = %q, want %q", got, tt.want)
		}
	}
}
