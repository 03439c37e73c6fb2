package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for kbdlightd.
//
// Defaults come from DefaultConfig, a config file is layered on top with
// LoadConfigFile, and explicitly set flags are applied last through
// FlagOverrides. Validate is called once all three are merged.
type Config struct {
	Backlight BacklightConfig `yaml:"backlight"`
	Input     InputConfig     `yaml:"input"`
	IPC       IPCConfig       `yaml:"ipc"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type BacklightConfig struct {
	Path       string `yaml:"path"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type InputConfig struct {
	// Devices, when non-empty, replaces discovery entirely.
	Devices       []string `yaml:"devices,omitempty"`
	IgnoreDevices []string `yaml:"ignore_devices,omitempty"`
	MouseMode     string   `yaml:"mouse_mode"`
	IgnoreKeys    []int32  `yaml:"ignore_keys,omitempty"`
	ShowKeys      bool     `yaml:"show_keys"`
	Hotplug       bool     `yaml:"hotplug"`
}

type IPCConfig struct {
	// SocketPath empty disables the control socket.
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	// Listen empty disables the HTTP surface (websocket, metrics, status).
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Backlight: BacklightConfig{
			Path:       defaultBacklightPath,
			TimeoutSec: defaultTimeoutSec,
		},
		Input: InputConfig{
			MouseMode: MouseModeAll.String(),
			Hotplug:   true,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocket,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected so typos do not silently fall back to defaults.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries flags the user set explicitly. A nil pointer
// means "not set"; a non-nil pointer is applied even if it is a zero value.
type FlagOverrides struct {
	BacklightPath *string
	TimeoutSec    *int

	IgnoreDevices *[]string
	MouseMode     *string
	IgnoreKeys    *[]int32
	ShowKeys      *bool

	IPCSocketPath *string
	HTTPListen    *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.BacklightPath != nil {
		cfg.Backlight.Path = *o.BacklightPath
	}
	if o.TimeoutSec != nil {
		cfg.Backlight.TimeoutSec = *o.TimeoutSec
	}
	if o.IgnoreDevices != nil {
		cfg.Input.IgnoreDevices = append(cfg.Input.IgnoreDevices, *o.IgnoreDevices...)
	}
	if o.MouseMode != nil {
		cfg.Input.MouseMode = *o.MouseMode
	}
	if o.IgnoreKeys != nil {
		cfg.Input.IgnoreKeys = append(cfg.Input.IgnoreKeys, *o.IgnoreKeys...)
	}
	if o.ShowKeys != nil {
		cfg.Input.ShowKeys = *o.ShowKeys
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPListen != nil {
		cfg.HTTP.Listen = *o.HTTPListen
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.Backlight.Path == "" {
		return errors.New("backlight.path must not be empty")
	}
	if c.Backlight.TimeoutSec <= 0 {
		return fmt.Errorf("%d is not a valid timeout (backlight.timeout_sec must be > 0)", c.Backlight.TimeoutSec)
	}
	if _, err := parseMouseMode(c.Input.MouseMode); err != nil {
		return fmt.Errorf("input.mouse_mode: %w", err)
	}
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// IdleTimeout returns the configured timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Backlight.TimeoutSec) * time.Second
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && p[1] == '/' {
		return filepath.Join(home, p[2:])
	}
	return p
}
