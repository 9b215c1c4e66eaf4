package sofctl

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// CardInfo names the control device exposed to the host.
type CardInfo struct {
	ID        string `toml:"id"`
	Driver    string `toml:"driver"`
	Name      string `toml:"name"`
	MixerName string `toml:"mixername"`
}

// Config holds the locations of the DSP IPC socket and of the control table.
type Config struct {
	// Socket is the path of the DSP IPC socket.
	Socket string `toml:"socket"`
	// Network is "unixpacket" or "unix".
	Network string `toml:"network"`
	// Shm is the path of the global context segment holding the control table.
	Shm string `toml:"shm"`
	// Timeout bounds the wait for one reply. Zero waits forever.
	Timeout  Duration `toml:"timeout"`
	LogLevel string   `toml:"log_level"`
	Card     CardInfo `toml:"card"`
}

// Duration is a time.Duration that decodes from TOML strings such as "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = v

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Socket:   "/tmp/sof-ipc",
		Network:  "unixpacket",
		Shm:      "/dev/shm/sof-ctx",
		Timeout:  Duration{2 * time.Second},
		LogLevel: "warn",
		Card: CardInfo{
			ID:        "sof",
			Driver:    "SOF plugin",
			Name:      "SOF",
			MixerName: "SOF",
		},
	}
}

// LoadConfig reads a TOML configuration file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration can be used by Open.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Socket) == "" {
		return fmt.Errorf("socket is required")
	}

	if strings.TrimSpace(c.Shm) == "" {
		return fmt.Errorf("shm is required")
	}

	switch c.Network {
	case "unixpacket", "unix":
	default:
		return fmt.Errorf("unsupported network %q", c.Network)
	}

	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if _, ok := parseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	return nil
}
