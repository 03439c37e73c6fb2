package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// errNotWritable is returned by IsWritable when the startup probe fails.
var errNotWritable = errors.New("brightness attribute not writable")

// BrightnessStore is the single unsigned integer behind a brightness
// attribute such as /sys/class/leds/<name>/brightness.
type BrightnessStore interface {
	Read() (uint64, error)
	Write(v uint64) error
}

// sysfsBrightness is a BrightnessStore backed by a file path.
type sysfsBrightness struct {
	path string
}

func newSysfsBrightness(path string) *sysfsBrightness {
	return &sysfsBrightness{path: path}
}

func (b *sysfsBrightness) Read() (uint64, error) {
	return ReadValue(b.path)
}

func (b *sysfsBrightness) Write(v uint64) error {
	return WriteValue(b.path, v)
}

func (b *sysfsBrightness) String() string { return b.path }

// ReadValue reads an unsigned integer from path.
func ReadValue(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// WriteValue writes v in decimal to path. The file must already exist;
// sysfs attributes are never created.
func WriteValue(path string, v uint64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open %s for writing: %w", path, err)
	}
	if _, err := f.WriteString(strconv.FormatUint(v, 10)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	// sysfs reports rejected values on close as well as on write.
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// IsWritable probes path by reading the current value and writing the
// same value back. The device state is left unchanged. On success the
// value read is returned.
func IsWritable(path string) (uint64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: %s does not exist: %v", errNotWritable, path, err)
	}
	v, err := ReadValue(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNotWritable, err)
	}
	if err := WriteValue(path, v); err != nil {
		return 0, fmt.Errorf("%w: %v", errNotWritable, err)
	}
	return v, nil
}
