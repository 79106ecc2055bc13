package models

import "time"

// RecurrenceFrequency is the cadence of a recurring class request.
// Weekly is the only supported cadence.
type RecurrenceFrequency string

const FrequencyWeekly RecurrenceFrequency = "weekly"

// RecurrencePattern describes a recurring class request. It is transient:
// patterns exist only while occurrences are being generated and are never
// persisted as their own entity. Exactly one of AfterCount or OnDate must be
// set; whichever is active, expansion always stops at the scheduling horizon.
type RecurrencePattern struct {
	Frequency  RecurrenceFrequency `json:"frequency"`
	DaysOfWeek []time.Weekday      `json:"daysOfWeek"`
	AfterCount int                 `json:"afterCount,omitempty"`
	OnDate     *time.Time          `json:"onDate,omitempty"`

	// StartMinute/EndMinute position each occurrence within its day,
	// as minutes from midnight UTC.
	StartMinute int `json:"startMinute"`
	EndMinute   int `json:"endMinute"`
}

// OccurrenceTime is one expanded occurrence interval.
type OccurrenceTime struct {
	StartUTC time.Time `json:"startUtc"`
	EndUTC   time.Time `json:"endUtc"`
}

// RecurrenceGap records an expanded occurrence that could not be booked
// because its slot was not open. Gaps are reported to the caller rather than
// failing the whole recurrence.
type RecurrenceGap struct {
	StartUTC time.Time `json:"startUtc"`
	EndUTC   time.Time `json:"endUtc"`
	Reason   string    `json:"reason"`
}

// RecurrenceResult is the outcome of booking a recurrence: the occurrences
// that were created plus the explicit gaps that were skipped.
type RecurrenceResult struct {
	GroupID     string            `json:"groupId"`
	Occurrences []ClassOccurrence `json:"occurrences"`
	Gaps        []RecurrenceGap   `json:"gaps"`
}
