package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownRole is returned when a role identifier is outside the closed role set.
	ErrUnknownRole = errors.New("unknown role")
	// ErrInvalidTransition is returned when a status change skips a required state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NewID generates a new unique identifier (UUID v4 string) used for sessions.
func NewID() string { return uuid.NewString() }

// Clock returns the current time. Replaced in tests for deterministic timestamps.
type Clock func() time.Time

// SystemClock reports wall clock time in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
