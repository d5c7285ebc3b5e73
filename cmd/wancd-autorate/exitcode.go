package main

import (
	"errors"

	"github.com/wanctl/wanctl/pkg/lockfile"
)

// Exit codes per the CLI surface: 0 success, 1 config/validation error,
// 2 lock held by another live instance, 130 interrupted.
const (
	exitOK          = 0
	exitConfigError = 1
	exitLockHeld    = 2
	exitInterrupted = 130
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, lockfile.ErrHeld) {
		return exitLockHeld
	}
	return exitConfigError
}
