// Package config provides configuration parsing and validation for udpshare.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/postalsys/udpshare/internal/sockaddr"
)

// DefaultPort is the port applied to listen entries that carry none.
const DefaultPort = 5076

// Config represents the complete daemon configuration.
type Config struct {
	Log         LogConfig     `yaml:"log"`
	DefaultPort uint16        `yaml:"default_port"`
	Listen      []string      `yaml:"listen"`
	Echo        bool          `yaml:"echo"`
	Sockets     SocketsConfig `yaml:"sockets"`
	Health      HealthConfig  `yaml:"health"`
	Control     ControlConfig `yaml:"control"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// SocketsConfig holds options applied to every shared socket.
type SocketsConfig struct {
	ReuseAddr       bool     `yaml:"reuse_addr"`
	ReusePort       bool     `yaml:"reuse_port"`
	Broadcast       bool     `yaml:"broadcast"`
	ControlMessages bool     `yaml:"control_messages"`
	MaxDatagramSize ByteSize `yaml:"max_datagram_size"`
	ReadBuffer      ByteSize `yaml:"read_buffer"`  // 0 = OS default
	WriteBuffer     ByteSize `yaml:"write_buffer"` // 0 = OS default
}

// HealthConfig defines health check server settings.
type HealthConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ControlConfig defines control socket settings.
type ControlConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

// ByteSize is a size in bytes. In YAML it may be a plain integer or a
// human-readable string such as "64KiB" or "4 MB".
type ByteSize uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var n uint64
	if err := value.Decode(&n); err == nil {
		*b = ByteSize(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return uint64(b), nil
}

// String renders the size for humans.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DefaultPort: DefaultPort,
		Listen:      []string{},
		Sockets: SocketsConfig{
			ReuseAddr:       true,
			Broadcast:       true,
			ControlMessages: true,
			MaxDatagramSize: 0x10000,
		},
		Health: HealthConfig{
			Enabled:      false,
			Address:      "127.0.0.1:8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Control: ControlConfig{
			Enabled:    false,
			SocketPath: "./data/control.sock",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		// ${VAR:-default}
		if idx := strings.Index(name, ":-"); idx != -1 {
			if val, ok := os.LookupEnv(name[:idx]); ok {
				return val
			}
			return name[idx+2:]
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // Keep original if not found
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !isValidLogFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	if c.DefaultPort == 0 {
		errs = append(errs, "default_port must be between 1 and 65535")
	}

	for i, entry := range c.Listen {
		if _, err := sockaddr.Parse(entry, c.DefaultPort); err != nil {
			errs = append(errs, fmt.Sprintf("listen[%d]: %v", i, err))
		}
	}

	if c.Sockets.MaxDatagramSize < 512 || c.Sockets.MaxDatagramSize > 0x10000 {
		errs = append(errs, "sockets.max_datagram_size must be between 512 and 65536")
	}

	if c.Health.Enabled && c.Health.Address == "" {
		errs = append(errs, "health.address is required when enabled")
	}
	if c.Control.Enabled && c.Control.SocketPath == "" {
		errs = append(errs, "control.socket_path is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ListenAddrs parses every listen entry, applying DefaultPort where the entry
// has no port.
func (c *Config) ListenAddrs() ([]sockaddr.Addr, error) {
	addrs := make([]sockaddr.Addr, 0, len(c.Listen))
	for i, entry := range c.Listen {
		a, err := sockaddr.Parse(entry, c.DefaultPort)
		if err != nil {
			return nil, fmt.Errorf("listen[%d]: %w", i, err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}

// String returns the config as YAML.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
