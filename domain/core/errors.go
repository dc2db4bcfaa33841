package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrInvalidScheme    = errors.New("invalid compression scheme")
	ErrUnknownMaterial  = errors.New("unknown material")
	ErrUnknownComponent = errors.New("unknown instrument component")
	ErrInvalidParams    = errors.New("invalid correction parameters")

	// Data consistency errors
	ErrShapeMismatch  = errors.New("array shape mismatch")
	ErrMaskNotCovered = errors.New("background energy range does not cover signal energy range")
	ErrEmptyMask      = errors.New("energy bin mask has no enabled channel")
	ErrDetectorRange  = errors.New("detector id out of range")
	ErrEmptyFrame     = errors.New("frame has no time bins")

	// Numeric degeneracy errors
	ErrSaturatedTrigger = errors.New("saturated trigger rate")
	ErrLUTMiss          = errors.New("value not found in compression lookup table")
)

// Error constructors with context
func NewShapeError(field string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, expected %d", ErrShapeMismatch, field, got, want)
}

func NewDetectorRangeError(det int) error {
	return fmt.Errorf("%w: %d not in [0,31]", ErrDetectorRange, det)
}

func NewSaturationError(timeBin, group int) error {
	return fmt.Errorf("%w: time bin %d, trigger group %d", ErrSaturatedTrigger, timeBin, group)
}

func NewLUTMissError(scheme string, value float64) error {
	return fmt.Errorf("%w: value %g, scheme %s", ErrLUTMiss, value, scheme)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidScheme) ||
		errors.Is(err, ErrUnknownMaterial) ||
		errors.Is(err, ErrUnknownComponent) ||
		errors.Is(err, ErrInvalidParams)
}

func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrMaskNotCovered) ||
		errors.Is(err, ErrEmptyMask) ||
		errors.Is(err, ErrDetectorRange) ||
		errors.Is(err, ErrEmptyFrame)
}

func IsDegeneracyError(err error) bool {
	return errors.Is(err, ErrSaturatedTrigger) ||
		errors.Is(err, ErrLUTMiss)
}
