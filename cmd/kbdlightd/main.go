package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("kbdlightd v%s\n", version)
	fmt.Println("Keyboard backlight idle daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  kbdlightd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Turns the keyboard backlight off after a period without keyboard or")
	fmt.Println("  mouse activity and restores the previous brightness on the next input.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file; flags set on the command line override it")
	fmt.Println()
	fmt.Println("  -i string")
	fmt.Println("        Space separated input devices to ignore, e.g. \"/dev/input/event3 /dev/input/mice\"")
	fmt.Println()
	fmt.Println("  -t int")
	fmt.Printf("        Idle timeout in seconds (default %d)\n", defaultTimeoutSec)
	fmt.Println()
	fmt.Println("  -m string")
	fmt.Println("        Mouse mode: 0/all (every mouse), 1/internal (built-in only), 2/none (default 0)")
	fmt.Println()
	fmt.Println("  -b string")
	fmt.Printf("        Brightness attribute (default %q)\n", defaultBacklightPath)
	fmt.Println()
	fmt.Println("  -f")
	fmt.Println("        Stay in foreground and do not detach")
	fmt.Println()
	fmt.Println("  -s int")
	fmt.Println("        Set brightness to the given value and exit")
	fmt.Println()
	fmt.Println("  -k string")
	fmt.Println("        Comma separated scan codes that do not count as activity, e.g. \"10,20\"")
	fmt.Println()
	fmt.Println("  -d")
	fmt.Println("        Print the scan code of every key press (find values for -k)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket for kbdlightctl, empty disables (default %q)\n", defaultIPCSocket)
	fmt.Println()
	fmt.Println("  -http-listen string")
	fmt.Println("        Address for /ws/state, /metrics, /healthz and /status, empty disables")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -h, -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Dim after 30 seconds, ignore the external mouse, stay in foreground")
	fmt.Println("  kbdlightd -t 30 -i \"/dev/input/mouse1\" -f")
	fmt.Println()
	fmt.Println("  # Turn the backlight on at level 2 and exit")
	fmt.Println("  kbdlightd -s 2")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to /dev/input (root or the 'input' group)")
	fmt.Println("  - Requires write access to the brightness attribute")
	fmt.Println()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath    = flag.String("config", "", "YAML config file")
		ignoreDevices = flag.String("i", "", "Space separated input devices to ignore")
		timeoutSec    = flag.Int("t", defaultTimeoutSec, "Idle timeout in seconds")
		mouseMode     = flag.String("m", "0", "Mouse mode: 0/all, 1/internal, 2/none")
		backlightPath = flag.String("b", defaultBacklightPath, "Brightness attribute")
		foreground    = flag.Bool("f", false, "Stay in foreground")
		setValue      = flag.Int64("s", -1, "Set brightness and exit")
		ignoreKeys    = flag.String("k", "", "Comma separated scan codes to ignore")
		showKeys      = flag.Bool("d", false, "Print scan codes")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		ipcSocketPath = flag.String("ipc-socket", defaultIPCSocket, "Unix domain socket for IPC")
		httpListen    = flag.String("http-listen", "", "HTTP listen address")
		_             = flag.Bool("version", false, "Print version and exit")
		_             = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	var ov FlagOverrides
	if set["b"] {
		ov.BacklightPath = backlightPath
	}
	if set["t"] {
		ov.TimeoutSec = timeoutSec
	}
	if set["i"] {
		devs := strings.Fields(*ignoreDevices)
		ov.IgnoreDevices = &devs
	}
	if set["m"] {
		ov.MouseMode = mouseMode
	}
	if set["k"] {
		codes, err := parseKeyCodes(*ignoreKeys)
		if err != nil {
			fatal(err)
		}
		ov.IgnoreKeys = &codes
	}
	if set["d"] {
		ov.ShowKeys = showKeys
	}
	if set["log-level"] {
		ov.LogLevel = logLevelStr
	}
	if set["ipc-socket"] {
		ov.IPCSocketPath = ipcSocketPath
	}
	if set["http-listen"] {
		ov.HTTPListen = httpListen
	}
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, logLevel)

	backlight := ExpandPath(cfg.Backlight.Path)

	// Set-and-exit: one write, nothing else.
	if set["s"] {
		if err := runSetMode(backlight, *setValue); err != nil {
			fatal(err)
		}
		return
	}

	mode, _ := parseMouseMode(cfg.Input.MouseMode)
	devices := selectDevices(cfg, mode, logger)
	if len(devices) == 0 {
		fatal(errors.New("no input device found or all ignored"))
	}

	initial, err := IsWritable(backlight)
	if err != nil {
		fatal(err)
	}

	if !*foreground && !isDetached() {
		pid, err := detach()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("kbdlightd started in background (pid %d)\n", pid)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting kbdlightd", "version", version)
	logger.Debug("configuration",
		"backlight", backlight,
		"timeout_sec", cfg.Backlight.TimeoutSec,
		"mouse_mode", mode,
		"ignore_devices", cfg.Input.IgnoreDevices,
		"ignore_keys", cfg.Input.IgnoreKeys,
		"show_keys", cfg.Input.ShowKeys,
		"hotplug", cfg.Input.Hotplug,
		"ipc_socket", cfg.IPC.SocketPath,
		"http_listen", cfg.HTTP.Listen)

	err = runDaemon(ctx, daemonOptions{
		cfg:     cfg,
		devices: devices,
		store:   newSysfsBrightness(backlight),
		initial: initial,
		keyOut:  os.Stdout,
		logger:  logger,
	})
	if err != nil {
		logger.Error("daemon stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// runSetMode writes v to the brightness attribute once.
func runSetMode(path string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%d is not a valid brightness (must be >= 0)", v)
	}
	return WriteValue(path, uint64(v))
}

// selectDevices returns the configured device list, or runs discovery
// when none is configured. The ignore list applies either way.
func selectDevices(cfg Config, mode MouseMode, logger *slog.Logger) []string {
	ignored := expandIgnoreList(cfg.Input.IgnoreDevices)

	if len(cfg.Input.Devices) == 0 {
		return discoverDevices(defaultDiscoveryConfig(mode, ignored), logger)
	}

	var out []string
	for _, d := range cfg.Input.Devices {
		d = ExpandPath(d)
		if isDeviceIgnored(d, ignored) {
			logger.Debug("configured device ignored", "device", d)
			continue
		}
		out = append(out, d)
	}
	return out
}
