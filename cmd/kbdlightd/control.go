package main

import (
	"fmt"
	"time"
)

// controlPlane applies control requests to the shared state. The IPC
// server and the HTTP status route both go through it.
type controlPlane struct {
	state   *backlightState
	timeout time.Duration

	// devices lists the monitored devices; nil means none are reported.
	devices func() []string
	now     func() time.Time
}

func newControlPlane(state *backlightState, timeout time.Duration, devices func() []string) *controlPlane {
	return &controlPlane{
		state:   state,
		timeout: timeout,
		devices: devices,
		now:     time.Now,
	}
}

// Status returns the current state report.
func (c *controlPlane) Status() StatusReport {
	snap := c.state.Snapshot()
	devs := []string{}
	if c.devices != nil {
		if d := c.devices(); d != nil {
			devs = d
		}
	}
	return StatusReport{
		Brightness:    snap.Brightness,
		Original:      snap.Original,
		LastActivity:  snap.LastActivity,
		IdleTimeoutMs: c.timeout.Milliseconds(),
		Devices:       devs,
	}
}

// Handle applies req and returns the state afterwards.
func (c *controlPlane) Handle(req Request) (StatusReport, error) {
	now := c.now()

	switch r := req.(type) {
	case StatusRequest:

	case SetBrightnessRequest:
		if r.Value == nil {
			return StatusReport{}, fmt.Errorf("set_brightness: missing value")
		}
		if err := c.state.Set(*r.Value, now); err != nil {
			return StatusReport{}, err
		}

	case WakeRequest:
		if _, err := c.state.MarkActivity(now); err != nil {
			return StatusReport{}, err
		}

	case DimRequest:
		// A zero timeout makes the idle check pass unconditionally.
		if _, _, err := c.state.DimIfIdle(now, 0); err != nil {
			return StatusReport{}, err
		}

	default:
		return StatusReport{}, fmt.Errorf("unsupported request %T", req)
	}

	return c.Status(), nil
}
