// Package errors classifies failures of the weekly cycle phases.
package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
)

var (
	// ErrRevealIncomplete is returned by reset while pending matches still
	// wait for delivery.
	ErrRevealIncomplete = errors.New("pending matches not revealed yet")

	// ErrUnknownJob is returned when a job name is not registered.
	ErrUnknownJob = errors.New("unknown job")

	// ErrLockHeld means another worker is running the same phase.
	ErrLockHeld = errors.New("phase lock held by another worker")
)

// PhaseError records which cycle phase and store operation failed.
type PhaseError struct {
	Phase string
	Op    string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Phase, e.Op, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Phase wraps err with phase/op context. A nil err stays nil.
func Phase(phase, op string, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Op: op, Err: err}
}

// IsTransient reports whether retrying the same phase later could succeed
// without anyone changing data: timeouts, cancellations, dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, ErrRevealIncomplete),
		errors.Is(err, ErrUnknownJob):
		return false

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, ErrLockHeld):
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Is, As and New re-export the standard helpers so callers importing this
// package under its own name don't need a second alias.
func Is(err, target error) bool     { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func New(text string) error         { return errors.New(text) }
