package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// errNoDevices means none of the input devices could be opened.
var errNoDevices = errors.New("no input device could be opened")

// daemonOptions is everything runDaemon needs once startup checks passed.
type daemonOptions struct {
	cfg     Config
	devices []string
	store   BrightnessStore
	// initial is the brightness read by the startup probe.
	initial uint64

	keyOut io.Writer
	logger *slog.Logger

	// openDevice overrides how readers open devices. Nil means evdev.
	openDevice func(path string) (eventSource, error)
}

// runDaemon runs the readers, the controller and the optional control
// surfaces until ctx is canceled. It returns errNoDevices if no reader
// could be started; any other error comes from a surface that failed.
func runDaemon(ctx context.Context, opts daemonOptions) error {
	cfg := opts.cfg
	logger := opts.logger
	timeout := cfg.IdleTimeout()

	g, gctx := errgroup.WithContext(ctx)

	state := newBacklightState(opts.store, opts.initial, time.Now())

	var transitions chan Transition
	if cfg.HTTP.Listen != "" {
		transitions = make(chan Transition, 64)
		state.SetNotify(transitions)
	}

	filter := NewKeyFilter(cfg.Input.IgnoreKeys)
	sup := newReaderSupervisor(gctx, g, state, filter, cfg.Input.ShowKeys, opts.keyOut, logger)
	if opts.openDevice != nil {
		sup.open = opts.openDevice
	}

	if n := sup.StartAll(opts.devices); n == 0 {
		_ = g.Wait()
		return errNoDevices
	}
	logger.Info("monitoring input devices", "devices", sup.Devices(), "ignored_keys", filter.Codes())

	ctrl := newBrightnessController(state, timeout, logger)
	g.Go(func() error { return ctrl.run(gctx) })

	if cfg.Input.Hotplug {
		g.Go(func() error {
			if err := sup.watchHotplug(gctx, opts.devices); err != nil {
				logger.Warn("hotplug disabled", "error", err)
			}
			return nil
		})
	}

	control := newControlPlane(state, timeout, sup.Devices)

	if cfg.IPC.SocketPath != "" {
		g.Go(func() error {
			// The daemon is useful without its control socket.
			if err := runIPCServer(gctx, cfg.IPC.SocketPath, control, logger); err != nil {
				logger.Error("IPC server stopped", "socket", cfg.IPC.SocketPath, "error", err)
			}
			return nil
		})
	}

	if cfg.HTTP.Listen != "" {
		ws := NewStateServer(logger, state.Snapshot, HubConfig{})
		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), transitions, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Listen, newHTTPHandler(ws, control.Status), logger)
		})
	}

	logger.Info("kbdlightd running",
		"backlight", cfg.Backlight.Path,
		"brightness", opts.initial,
		"idle_timeout", timeout,
		"ipc", cfg.IPC.SocketPath,
		"http", cfg.HTTP.Listen)

	return g.Wait()
}
