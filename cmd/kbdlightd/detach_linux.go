package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// detachedEnv marks the re-executed child so it does not detach again.
const detachedEnv = "KBDLIGHTD_DETACHED"

func isDetached() bool {
	return os.Getenv(detachedEnv) == "1"
}

// detach re-executes the current binary in a new session with its
// standard streams on /dev/null and returns the child's pid. The parent
// is expected to exit right after.
func detach() (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), detachedEnv+"=1")
	cmd.Dir = "/"
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start detached daemon: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
