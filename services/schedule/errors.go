package schedule

import "errors"

var (
	// ErrInvalidTimezone is returned for zone names the timezone database
	// does not know. Unknown zones are never silently defaulted.
	ErrInvalidTimezone = errors.New("invalidTimezone")

	// ErrHorizonExceeded is returned when a request reaches beyond the
	// 30-day scheduling horizon.
	ErrHorizonExceeded = errors.New("horizonExceeded")

	// ErrInvalidPattern is returned for recurrence patterns that violate
	// their invariants (empty weekday set, no end condition, bad minutes).
	ErrInvalidPattern = errors.New("invalidRecurrencePattern")
)
