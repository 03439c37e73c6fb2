//go:build linux

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// epollDevice reads input events from one evdev node.
//
// Instead of a plain blocking read(), the device fd is opened non-blocking
// and waited on with epoll together with an eventfd. Writing to the
// eventfd (Interrupt) wakes the waiter, so a reader on a quiet device
// still notices shutdown.
type epollDevice struct {
	path string

	mu     sync.Mutex
	closed bool
	fd     int
	epfd   int
	wakefd int

	buf    []byte
	events [2]unix.EpollEvent
}

// openEpollDevice opens path read-only and registers it with a fresh epoll
// instance alongside a wake eventfd.
func openEpollDevice(path string) (*epollDevice, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	d := &epollDevice{
		path:   path,
		fd:     fd,
		epfd:   epfd,
		wakefd: wakefd,
		buf:    make([]byte, inputEventSize),
	}

	for _, f := range []int{fd, wakefd} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(f)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, f, &ev); err != nil {
			d.Close()
			return nil, fmt.Errorf("epoll_ctl_add fd=%d: %w", f, err)
		}
	}
	return d, nil
}

func (d *epollDevice) Name() string { return d.path }

// ReadEvent returns the next event, waiting in epoll while the device has
// nothing to read.
func (d *epollDevice) ReadEvent() (inputEvent, error) {
	for {
		n, err := unix.Read(d.fd, d.buf)
		switch {
		case err == nil && n == 0:
			return inputEvent{}, errDeviceGone
		case err == nil:
			ev, derr := decodeInputEvent(d.buf[:n])
			if derr != nil {
				// mousedev nodes (/dev/input/mice) deliver PS/2 packets,
				// not input_event records. Any data is still activity.
				return packetEvent(), nil
			}
			return ev, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ENODEV):
			return inputEvent{}, errDeviceGone
		case !errors.Is(err, unix.EAGAIN):
			return inputEvent{}, fmt.Errorf("read %s: %w", d.path, err)
		}

		if err := d.wait(); err != nil {
			return inputEvent{}, err
		}
	}
}

// wait blocks until the device is readable, hangs up, or is interrupted.
func (d *epollDevice) wait() error {
	for {
		n, err := unix.EpollWait(d.epfd, d.events[:], -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		readable := false
		for i := 0; i < n; i++ {
			ev := d.events[i]
			if int(ev.Fd) == d.wakefd {
				d.drainWake()
				return errReadInterrupted
			}
			if ev.Events&unix.EPOLLIN != 0 {
				readable = true
				continue
			}
			if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return errDeviceGone
			}
		}
		if readable {
			return nil
		}
	}
}

// drainWake resets the eventfd counter so one Interrupt wakes one wait.
func (d *epollDevice) drainWake() {
	var b [8]byte
	_, _ = unix.Read(d.wakefd, b[:])
}

// Interrupt wakes a pending ReadEvent. It is a no-op once closed.
func (d *epollDevice) Interrupt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(d.wakefd, one[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close releases the device, epoll and eventfd descriptors.
func (d *epollDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for _, fd := range []int{d.wakefd, d.epfd, d.fd} {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
