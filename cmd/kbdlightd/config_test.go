package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Backlight.Path != defaultBacklightPath {
		t.Fatalf("backlight path = %q", cfg.Backlight.Path)
	}
	if got := cfg.IdleTimeout(); got != 15*time.Second {
		t.Fatalf("IdleTimeout = %v, want 15s", got)
	}
	if !cfg.Input.Hotplug {
		t.Fatalf("hotplug should default to on")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kbdlightd.yaml")
	writeFile(t, path, content)
	return path
}

func TestLoadConfigFile_LayersOnDefaults(t *testing.T) {
	path := writeConfig(t, `
backlight:
  timeout_sec: 30
input:
  ignore_devices: [/dev/input/mouse1]
  mouse_mode: internal
  ignore_keys: [10, 0x70029]
http:
  listen: 127.0.0.1:8091
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	want := DefaultConfig()
	want.Backlight.TimeoutSec = 30
	want.Input.IgnoreDevices = []string{"/dev/input/mouse1"}
	want.Input.MouseMode = "internal"
	want.Input.IgnoreKeys = []int32{10, 0x70029}
	want.HTTP.Listen = "127.0.0.1:8091"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigFile_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "backlight:\n  timeout: 30\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	path := writeConfig(t, "backlight:\n  timeout_sec: 30\n---\nbacklight:\n  timeout_sec: 5\n")
	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "trailing document") {
		t.Fatalf("err = %v, want trailing document error", err)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.IgnoreDevices = []string{"from-file"}
	cfg.HTTP.Listen = ":8091"

	path := "/sys/class/leds/other/brightness"
	timeout := 5
	devs := []string{"from-flag"}
	mode := "2"
	keys := []int32{42}
	show := true
	empty := ""

	FlagOverrides{
		BacklightPath: &path,
		TimeoutSec:    &timeout,
		IgnoreDevices: &devs,
		MouseMode:     &mode,
		IgnoreKeys:    &keys,
		ShowKeys:      &show,
		HTTPListen:    &empty,
	}.Apply(&cfg)

	want := DefaultConfig()
	want.Backlight.Path = path
	want.Backlight.TimeoutSec = 5
	want.Input.IgnoreDevices = []string{"from-file", "from-flag"}
	want.Input.MouseMode = "2"
	want.Input.IgnoreKeys = []int32{42}
	want.Input.ShowKeys = true
	want.HTTP.Listen = ""

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagOverrides_NilLeavesConfig(t *testing.T) {
	cfg := DefaultConfig()
	FlagOverrides{}.Apply(&cfg)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("empty overrides changed config (-want +got):\n%s", diff)
	}
	FlagOverrides{}.Apply(nil)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"zero timeout", func(c *Config) { c.Backlight.TimeoutSec = 0 }, "not a valid timeout"},
		{"negative timeout", func(c *Config) { c.Backlight.TimeoutSec = -3 }, "not a valid timeout"},
		{"empty path", func(c *Config) { c.Backlight.Path = "" }, "backlight.path"},
		{"bad mouse mode", func(c *Config) { c.Input.MouseMode = "5" }, "not a valid mouse mode"},
		{"empty device", func(c *Config) { c.Input.Devices = []string{"/dev/input/event3", ""} }, "input.devices[1]"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("Validate err = %v, want containing %q", err, tt.errSub)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := map[string]string{
		"":             "",
		"/etc/kbd.yml": "/etc/kbd.yml",
		"~":            home,
		"~/kbd.yml":    filepath.Join(home, "kbd.yml"),
		"~other/x":     "~other/x",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
