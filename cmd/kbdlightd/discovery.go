package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// MouseMode selects which pointing devices count as activity.
type MouseMode int

const (
	MouseModeAll MouseMode = iota
	MouseModeInternal
	MouseModeNone
)

func (m MouseMode) String() string {
	switch m {
	case MouseModeAll:
		return "all"
	case MouseModeInternal:
		return "internal"
	case MouseModeNone:
		return "none"
	default:
		return fmt.Sprintf("MouseMode(%d)", int(m))
	}
}

// parseMouseMode accepts the numeric form used by -m (0..2) as well as the
// names used in the config file.
func parseMouseMode(s string) (MouseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return MouseModeAll, nil
	case "internal":
		return MouseModeInternal, nil
	case "none":
		return MouseModeNone, nil
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil || n < int64(MouseModeAll) || n > int64(MouseModeNone) {
		return 0, fmt.Errorf("%s is not a valid mouse mode", s)
	}
	return MouseMode(n), nil
}

var (
	allMiceRe      = regexp.MustCompile(`^.*mice.*$`)
	internalMiceRe = regexp.MustCompile(`^..*event-mouse.*$`)
)

// discoveryConfig describes where to look for devices. The paths are
// fields so tests can point them at a temporary tree.
type discoveryConfig struct {
	ProcDevices string
	DevInput    string
	ByPath      string
	MouseMode   MouseMode
	Ignored     []string
}

func defaultDiscoveryConfig(mode MouseMode, ignored []string) discoveryConfig {
	return discoveryConfig{
		ProcDevices: procInputDevices,
		DevInput:    devInputDir,
		ByPath:      devInputByPath,
		MouseMode:   mode,
		Ignored:     ignored,
	}
}

// discoverDevices returns the keyboards and mice to monitor, minus the
// ignored ones. Unreadable sources contribute nothing.
func discoverDevices(cfg discoveryConfig, logger *slog.Logger) []string {
	var devices []string

	keyboards := findKeyboards(cfg.ProcDevices, cfg.DevInput, cfg.Ignored, logger)
	if len(keyboards) == 0 {
		logger.Warn("no keyboards found", "source", cfg.ProcDevices)
	}
	devices = append(devices, keyboards...)

	switch cfg.MouseMode {
	case MouseModeAll:
		devices = append(devices, devicesInDir(cfg.DevInput, allMiceRe, cfg.Ignored)...)
	case MouseModeInternal:
		devices = append(devices, devicesInDir(cfg.ByPath, internalMiceRe, cfg.Ignored)...)
	case MouseModeNone:
	}
	return devices
}

// findKeyboards reads an input devices listing (/proc/bus/input/devices).
func findKeyboards(procPath, devDir string, ignored []string, logger *slog.Logger) []string {
	f, err := os.Open(procPath)
	if err != nil {
		logger.Debug("cannot read input device list", "path", procPath, "error", err)
		return nil
	}
	defer f.Close()
	return parseKeyboards(f, devDir, ignored, logger)
}

// parseKeyboards scans blocks like
//
//	N: Name="AT Translated Set 2 keyboard"
//	H: Handlers=sysrq kbd event3 leds
//
// and returns devDir/eventN for every block whose name mentions a keyboard.
func parseKeyboards(r io.Reader, devDir string, ignored []string, logger *slog.Logger) []string {
	var keyboards []string
	isKeyboard := false

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		lower := strings.ToLower(line)

		if strings.Contains(lower, "name=") {
			isKeyboard = strings.Contains(lower, "keyboard")
			logger.Debug("input device", "name", strings.TrimSpace(line), "keyboard", isKeyboard)
			continue
		}
		if !isKeyboard || !strings.Contains(lower, "handlers=") {
			continue
		}

		_, handlers, _ := strings.Cut(line, "=")
		for _, tok := range strings.Fields(handlers) {
			if !strings.HasPrefix(tok, "event") {
				continue
			}
			path := filepath.Join(devDir, tok)
			if isDeviceIgnored(path, ignored) {
				logger.Debug("keyboard ignored", "device", path)
			} else {
				keyboards = append(keyboards, path)
			}
			break
		}
	}
	return keyboards
}

// devicesInDir lists entries of dir whose full path matches re.
func devicesInDir(dir string, re *regexp.Regexp, ignored []string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if isDeviceIgnored(path, ignored) {
			continue
		}
		if re.MatchString(path) {
			out = append(out, path)
		}
	}
	return out
}

// isDeviceIgnored reports whether any ignore entry is a substring of device.
func isDeviceIgnored(device string, ignored []string) bool {
	for _, ig := range ignored {
		if ig != "" && strings.Contains(device, ig) {
			return true
		}
	}
	return false
}

// expandIgnoreList returns the entries plus, for entries that are symlinks
// (such as /dev/input/by-id/...-event-kbd), their resolved targets.
func expandIgnoreList(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e == "" {
			continue
		}
		out = append(out, e)

		fi, err := os.Lstat(e)
		if err != nil || fi.Mode()&os.ModeSymlink == 0 {
			continue
		}
		target, err := os.Readlink(e)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(e), target)
		}
		if abs, err := filepath.Abs(target); err == nil {
			target = abs
		}
		out = append(out, filepath.Clean(target))
	}
	return out
}
