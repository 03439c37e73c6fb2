//go:build !linux

package main

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("evdev input is only supported on linux")

func openEpollDevice(path string) (eventSource, error) {
	return nil, fmt.Errorf("open %s: %w", path, errUnsupported)
}
