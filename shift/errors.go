package shift

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTime is returned for clock strings that are not 24-hour H:MM or HH:MM.
	ErrInvalidTime = errors.New("invalid time of day")

	// ErrMissingTimeRange is returned when a kind that needs a time range is
	// created without one.
	ErrMissingTimeRange = errors.New("missing time range")

	// ErrInvalidHours is returned for an explicit total that is negative or not finite.
	ErrInvalidHours = errors.New("invalid hours")

	// ErrMissingKind is returned when an entry is created without a kind.
	ErrMissingKind = errors.New("missing shift kind")

	// ErrInvalidWeek is returned for malformed "<ISOYear>-<ISOWeek>" identifiers.
	ErrInvalidWeek = errors.New("invalid week identifier")

	// ErrInvalidSlot is returned for day slots outside dia1..dia7.
	ErrInvalidSlot = errors.New("invalid day slot")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the raw field that failed validation.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v: %q", e.Field, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err was caused by invalid entry input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrMissingTimeRange) ||
		errors.Is(err, ErrMissingKind) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrInvalidWeek) ||
		errors.Is(err, ErrInvalidSlot)
}
