package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_MSC = 0x04

	MSC_SCAN = 0x04
)

// Scan-code filtering.
//
// A physical key press on the keyboards this was tuned on reports one
// EV_MSC/MSC_SCAN event followed by the key-state event and its EV_SYN
// report. Ignoring a key therefore means dropping the scan event and the
// followUpEvents that come right after it.
const (
	eventsPerKeyPress = 3
	followUpEvents    = eventsPerKeyPress - 1
)

// Defaults
const (
	defaultBacklightPath = "/sys/class/leds/tpacpi::kbd_backlight/brightness"
	defaultTimeoutSec    = 15
	defaultIPCSocket     = "/run/kbdlightd.sock"

	procInputDevices = "/proc/bus/input/devices"
	devInputDir      = "/dev/input"
	devInputByPath   = "/dev/input/by-path"

	// hotplugSettleDelay gives udev time to finish permissions on a new node.
	hotplugSettleDelay = 100 * time.Millisecond
	// hotplugReattachTries bounds the wait for the old reader to exit.
	hotplugReattachTries = 5
)
