//go:build !linux

package main

import "errors"

func isDetached() bool { return false }

func detach() (int, error) {
	return 0, errors.New("detaching is only supported on linux; use -f")
}
