package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// readerSupervisor starts one inputReader per device and tracks which
// devices currently have a running reader.
type readerSupervisor struct {
	state    *backlightState
	filter   *KeyFilter
	showKeys bool
	keyOut   io.Writer
	logger   *slog.Logger

	open func(path string) (eventSource, error)

	group *errgroup.Group
	ctx   context.Context

	// settle is the wait before each reattach attempt.
	settle time.Duration

	mu     sync.Mutex
	active map[string]bool
}

func newReaderSupervisor(ctx context.Context, group *errgroup.Group, state *backlightState, filter *KeyFilter, showKeys bool, keyOut io.Writer, logger *slog.Logger) *readerSupervisor {
	return &readerSupervisor{
		state:    state,
		filter:   filter,
		showKeys: showKeys,
		keyOut:   keyOut,
		logger:   logger,
		open:     openDevice,
		group:    group,
		ctx:      ctx,
		settle:   hotplugSettleDelay,
		active:   make(map[string]bool),
	}
}

// openDevice opens an evdev node for an inputReader.
func openDevice(path string) (eventSource, error) {
	d, err := openEpollDevice(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Start opens path and launches its reader. It returns an error if the
// device cannot be opened; a device that already has a reader is a no-op.
func (s *readerSupervisor) Start(path string) error {
	_, err := s.start(path)
	return err
}

// start is Start, also reporting whether a new reader was launched.
func (s *readerSupervisor) start(path string) (bool, error) {
	s.mu.Lock()
	if s.active[path] {
		s.mu.Unlock()
		return false, nil
	}
	src, err := s.open(path)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.active[path] = true
	s.mu.Unlock()

	r := &inputReader{
		src:      src,
		state:    s.state,
		filter:   s.filter,
		showKeys: s.showKeys,
		keyOut:   s.keyOut,
		logger:   s.logger,
	}
	s.group.Go(func() error {
		defer func() {
			s.mu.Lock()
			delete(s.active, path)
			s.mu.Unlock()
		}()
		return r.run(s.ctx)
	})
	return true, nil
}

// StartAll starts readers for every path, skipping (with a warning) the
// ones that cannot be opened. It returns the number started.
func (s *readerSupervisor) StartAll(paths []string) int {
	n := 0
	for _, p := range paths {
		if err := s.Start(p); err != nil {
			s.logger.Warn("skipping input device", "device", p, "error", err)
			continue
		}
		n++
	}
	return n
}

// Devices returns the devices that currently have a running reader.
func (s *readerSupervisor) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.active))
	for p := range s.active {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// watchHotplug restarts readers for monitored paths that are recreated
// after removal (suspend/resume, USB replug). Only paths in the original
// list are ever attached.
func (s *readerSupervisor) watchHotplug(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		wanted[filepath.Clean(p)] = true
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("hotplug watch failed", "dir", dir, "error", err)
			continue
		}
		s.logger.Debug("hotplug watching", "dir", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) || !wanted[filepath.Clean(ev.Name)] {
				continue
			}
			s.logger.Info("input device reappeared", "device", ev.Name)
			if !s.reattach(ctx, ev.Name) {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("hotplug watcher error", "error", err)
		}
	}
}

// reattach starts a reader for a recreated node. The node can reappear
// before the old reader has seen the removal, so while the path is still
// marked active it waits and tries again, up to hotplugReattachTries.
// It returns false only when ctx is canceled.
func (s *readerSupervisor) reattach(ctx context.Context, path string) bool {
	for i := 0; i < hotplugReattachTries; i++ {
		if !sleepCtx(ctx, s.settle) {
			return false
		}
		started, err := s.start(path)
		if err != nil {
			s.logger.Warn("reattach failed", "device", path, "error", err)
			return true
		}
		if started {
			return true
		}
	}
	s.logger.Debug("reader still attached, not reattaching", "device", path)
	return true
}
