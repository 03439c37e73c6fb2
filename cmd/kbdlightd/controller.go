package main

import (
	"context"
	"log/slog"
	"time"
)

// brightnessController is the idle-timeout loop. It is the only place
// that dims the backlight; input readers only ever restore it.
//
// It does not poll: each cycle sleeps exactly until the idle deadline,
// then re-checks, because activity may have moved the deadline while it
// slept.
type brightnessController struct {
	state   *backlightState
	timeout time.Duration
	logger  *slog.Logger

	now func() time.Time
}

func newBrightnessController(state *backlightState, timeout time.Duration, logger *slog.Logger) *brightnessController {
	return &brightnessController{
		state:   state,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// run drives the state machine until ctx is canceled.
// Brightness read/write failures are logged and retried on the next cycle.
func (c *brightnessController) run(ctx context.Context) error {
	c.logger.Debug("brightness controller started", "timeout", c.timeout)

	for {
		if ctx.Err() != nil {
			c.logger.Debug("brightness controller stopping (context canceled)")
			return nil
		}

		if idle := c.state.IdleFor(c.now()); idle < c.timeout {
			sleep := c.timeout - idle
			c.logger.Debug("sleeping until idle deadline", "sleep", sleep)
			if !sleepCtx(ctx, sleep) {
				continue
			}
		}

		checked, dimmed, err := c.state.DimIfIdle(c.now(), c.timeout)
		switch {
		case err != nil:
			c.logger.Warn("idle check failed", "error", err)
		case dimmed:
			c.logger.Info("idle timeout reached, backlight off", "idle_timeout", c.timeout)
		case checked:
			c.logger.Debug("idle timeout reached, backlight already off")
		}
	}
}

// sleepCtx sleeps for d and reports false if ctx was canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
