package booking

import "fmt"

// BookingError carries a machine-readable code alongside the message so
// handlers can map expected alternate outcomes to the right responses.
type BookingError struct {
	Code    string
	Message string
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrSlotUnavailable is an expected outcome of the listing/booking race, not
// a bug: the slot was open when listed and taken by the time of creation.
var ErrSlotUnavailable = &BookingError{
	Code:    "slotUnavailable",
	Message: "slot is no longer available",
}

// ErrNotPending is returned when Confirm is called on an occurrence that has
// already left the pending state.
var ErrNotPending = &BookingError{
	Code:    "notPending",
	Message: "occurrence is not pending",
}

// ErrNotEntitled is returned when the student lacks access or credits at
// confirmation time.
var ErrNotEntitled = &BookingError{
	Code:    "notEntitled",
	Message: "student has no active package or no remaining credits",
}

// ErrInvalidTransition is returned for lifecycle moves the state machine
// does not allow.
var ErrInvalidTransition = &BookingError{
	Code:    "invalidTransition",
	Message: "occurrence state does not allow this transition",
}
