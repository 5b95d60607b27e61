package domain

import "errors"

var (
	// ErrInvalidConfiguration rejects bad thresholds or config before any
	// state is affected.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidReading marks a malformed or timed-out sample. It is absorbed
	// into the safety classification as a Danger-level signal, never dropped.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrInvalidState rejects an operation requested from a state that
	// forbids it.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnsafeResetRejected rejects an emergency reset while a fresh sample
	// still violates emergency-level thresholds.
	ErrUnsafeResetRejected = errors.New("unsafe reset rejected")
)
