package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort   = 8080
	DefaultClientName = "midistream"
	DefaultFormat     = "text"
	DefaultSendBuffer = 64
	DefaultPingPeriod = 54 * time.Second
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	MIDI   MIDIConfig   `yaml:"midi"`
	Bridge BridgeConfig `yaml:"bridge"`
	Stream StreamConfig `yaml:"stream"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort serves the control API, /midi/stream and /metrics (default 8080).
	HTTPPort int `yaml:"http_port"`

	// CORS controls cross-origin access to every route.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig lists the origins allowed to call the API and open streams.
type CORSConfig struct {
	// AllowedOrigins defaults to ["*"].
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MIDIConfig controls device enumeration and selection.
type MIDIConfig struct {
	// ClientName identifies this process in MIDI driver log output.
	ClientName string `yaml:"client_name"`

	// Device, if set, is selected at startup and re-selected when it changes
	// on reload.
	Device string `yaml:"device"`

	// Exclude hides inputs whose name contains any pattern (case-insensitive).
	Exclude []string `yaml:"exclude"`
}

// BridgeConfig controls the queue between the driver and the broadcast loop.
type BridgeConfig struct {
	// MaxPending caps queued events; the oldest is dropped on overflow.
	// 0 (the default) means unbounded.
	MaxPending int `yaml:"max_pending"`
}

// StreamConfig controls the WebSocket stream.
type StreamConfig struct {
	// Format is "text" (default) or "json".
	Format string `yaml:"format"`

	// SendBuffer is the per-client outbox depth. A client whose outbox is
	// full when an event is broadcast is disconnected.
	SendBuffer int `yaml:"send_buffer"`

	// PingPeriod is the keep-alive interval (default 54s).
	PingPeriod time.Duration `yaml:"ping_period"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug|info|warn|error.
	Level string `yaml:"level"`

	// Format is json or console.
	Format string `yaml:"format"`

	// File, if set, sends logs to a size-rotated file instead of stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads and parses the config file at path. A missing file yields the
// defaults. Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			CORS:     CORSConfig{AllowedOrigins: []string{"*"}},
		},
		MIDI: MIDIConfig{
			ClientName: DefaultClientName,
		},
		Stream: StreamConfig{
			Format:     DefaultFormat,
			SendBuffer: DefaultSendBuffer,
			PingPeriod: DefaultPingPeriod,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Bridge.MaxPending < 0 {
		return fmt.Errorf("bridge.max_pending must not be negative")
	}
	switch cfg.Stream.Format {
	case "text", "json":
	default:
		return fmt.Errorf("stream.format %q unknown: want text|json", cfg.Stream.Format)
	}
	if cfg.Stream.SendBuffer <= 0 {
		return fmt.Errorf("stream.send_buffer must be positive")
	}
	if cfg.Stream.PingPeriod <= 0 {
		return fmt.Errorf("stream.ping_period must be positive")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q unknown: want json|console", cfg.Log.Format)
	}
	return nil
}
