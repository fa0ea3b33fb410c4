// Package wizard provides an interactive setup wizard for udpshare.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/postalsys/udpshare/internal/config"
	"github.com/postalsys/udpshare/internal/sockaddr"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// answers collects everything the forms ask for.
type answers struct {
	configPath string
	dataDir    string
	port       string
	bindings   []string // "any4", "any6", "loop4", "loop6"
	extra      string   // comma separated additional addresses
	echo       bool
	reuseAddr  bool
	broadcast  bool
	logLevel   string
	health     bool
	healthAddr string
	control    bool
}

func defaultAnswers() answers {
	return answers{
		configPath: "./udpshare.yaml",
		dataDir:    "./data",
		port:       strconv.Itoa(config.DefaultPort),
		bindings:   []string{"any4"},
		reuseAddr:  true,
		broadcast:  true,
		logLevel:   "info",
		health:     true,
		healthAddr: "127.0.0.1:8080",
		control:    true,
	}
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
	}
}

// Run executes the interactive setup wizard.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	a := defaultAnswers()

	if err := w.askBasicSetup(&a); err != nil {
		return nil, err
	}
	if err := w.askListen(&a); err != nil {
		return nil, err
	}
	if err := w.askSocketOptions(&a); err != nil {
		return nil, err
	}
	if err := w.askAdvancedOptions(&a); err != nil {
		return nil, err
	}

	cfg, err := buildConfig(a)
	if err != nil {
		return nil, err
	}

	if err := writeConfig(cfg, a.configPath); err != nil {
		return nil, err
	}

	w.printSummary(a.configPath, cfg)

	return &Result{
		Config:     cfg,
		ConfigPath: a.configPath,
	}, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
  _   _ ____  ____        _
 | | | |  _ \|  _ \   ___| |__   __ _ _ __ ___
 | | | | | | | |_) | / __| '_ \ / _' | '__/ _ \
 | |_| | |_| |  __/  \__ \ | | | (_| | | |  __/
  \___/|____/|_|     |___/_| |_|\__,_|_|  \___|
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  Shared UDP Socket Daemon - Setup Wizard\n")

	fmt.Println(banner)
	fmt.Println(subtitle)
}

func (w *Wizard) askBasicSetup(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Basic Setup").
				Description("Where to keep the configuration and runtime files."),

			huh.NewInput().
				Title("Config File Path").
				Description("Where to write the configuration file").
				Placeholder("./udpshare.yaml").
				Value(&a.configPath).
				Validate(validateConfigPath),

			huh.NewInput().
				Title("Data Directory").
				Description("Holds the control socket").
				Placeholder("./data").
				Value(&a.dataDir).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("data directory is required")
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askListen(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Listen Addresses").
				Description("Every address gets one shared socket."),

			huh.NewInput().
				Title("Default Port").
				Description("Used for addresses without an explicit port").
				Value(&a.port).
				Validate(validatePort),

			huh.NewMultiSelect[string]().
				Title("Bind To").
				Options(
					huh.NewOption("All IPv4 interfaces (0.0.0.0)", "any4"),
					huh.NewOption("All IPv6 interfaces ([::])", "any6"),
					huh.NewOption("IPv4 loopback (127.0.0.1)", "loop4"),
					huh.NewOption("IPv6 loopback ([::1])", "loop6"),
				).
				Value(&a.bindings),

			huh.NewInput().
				Title("Additional Addresses").
				Description("Comma separated, e.g. 192.168.1.10, [fe80::1]:6000").
				Value(&a.extra).
				Validate(validateExtra),

			huh.NewConfirm().
				Title("Echo datagrams back to the sender?").
				Value(&a.echo),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askSocketOptions(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Socket Options"),

			huh.NewConfirm().
				Title("Allow address reuse?").
				Description("SO_REUSEADDR, lets other processes share the port").
				Value(&a.reuseAddr),

			huh.NewConfirm().
				Title("Allow broadcast?").
				Description("SO_BROADCAST, needed to send to broadcast addresses").
				Value(&a.broadcast),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askAdvancedOptions(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Advanced Options").
				Description("Configure monitoring and logging."),

			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Debug (logs every datagram)", "debug"),
					huh.NewOption("Info (recommended)", "info"),
					huh.NewOption("Warning", "warn"),
					huh.NewOption("Error (quiet)", "error"),
				).
				Value(&a.logLevel),

			huh.NewConfirm().
				Title("Enable health check endpoint?").
				Description("HTTP endpoint for monitoring (/health, /healthz, /metrics, /sockets)").
				Value(&a.health),

			huh.NewConfirm().
				Title("Enable control socket?").
				Description("Unix socket for CLI commands (status, sockets)").
				Value(&a.control),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func validateConfigPath(s string) error {
	if s == "" {
		return fmt.Errorf("config path is required")
	}
	if !strings.HasSuffix(s, ".yaml") && !strings.HasSuffix(s, ".yml") {
		return fmt.Errorf("config file should have .yaml or .yml extension")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateExtra(s string) error {
	for _, entry := range splitList(s) {
		if _, err := sockaddr.Parse(entry, 1); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var bindingAddrs = map[string]string{
	"any4":  "0.0.0.0",
	"any6":  "[::]",
	"loop4": "127.0.0.1",
	"loop6": "[::1]",
}

func buildConfig(a answers) (*config.Config, error) {
	cfg := config.Default()

	port, err := strconv.ParseUint(a.port, 10, 16)
	if err != nil || port == 0 {
		return nil, fmt.Errorf("invalid port %q", a.port)
	}
	cfg.DefaultPort = uint16(port)

	cfg.Listen = []string{}
	for _, b := range a.bindings {
		if addr, ok := bindingAddrs[b]; ok {
			cfg.Listen = append(cfg.Listen, addr)
		}
	}
	cfg.Listen = append(cfg.Listen, splitList(a.extra)...)

	cfg.Echo = a.echo
	cfg.Sockets.ReuseAddr = a.reuseAddr
	cfg.Sockets.Broadcast = a.broadcast

	cfg.Log.Level = a.logLevel
	cfg.Log.Format = "text"

	cfg.Health.Enabled = a.health
	if a.health && a.healthAddr != "" {
		cfg.Health.Address = a.healthAddr
	}

	cfg.Control.Enabled = a.control
	if a.control {
		cfg.Control.SocketPath = filepath.Join(a.dataDir, "control.sock")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# udpshare configuration
# Generated by setup wizard

`
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *config.Config) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("─────────────────────────────────────────────────")

	fmt.Println()
	fmt.Println(divider)
	fmt.Println(style.Render("✓ Setup Complete!"))
	fmt.Println(divider)
	fmt.Println()

	fmt.Printf("  Config file:  %s\n", configPath)
	fmt.Printf("  Default port: %d\n", cfg.DefaultPort)
	for _, l := range cfg.Listen {
		fmt.Printf("  Listen:       %s\n", l)
	}
	if cfg.Echo {
		fmt.Println("  Echo:         enabled")
	}
	if cfg.Health.Enabled {
		fmt.Printf("  Health:       http://%s/health\n", cfg.Health.Address)
	}
	if cfg.Control.Enabled {
		fmt.Printf("  Control:      %s\n", cfg.Control.SocketPath)
	}

	fmt.Println()
	fmt.Println("  To start the daemon:")
	fmt.Printf("    udpshare run -c %s\n", configPath)
	fmt.Println()
}
