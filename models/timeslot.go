package models

import "time"

// TimeSlot is a bookable interval stored as absolute UTC instants.
// It carries no wall-clock or zone information; projection into a viewer's
// timezone happens at the edge, never in storage.
type TimeSlot struct {
	ID       string    `bson:"id" json:"id"`
	StartUTC time.Time `bson:"startUtc" json:"startUtc"`
	EndUTC   time.Time `bson:"endUtc" json:"endUtc"`
}

// Duration returns the slot length.
func (ts TimeSlot) Duration() time.Duration {
	return ts.EndUTC.Sub(ts.StartUTC)
}

// Overlaps reports whether the slot intersects the half-open interval [start, end).
func (ts TimeSlot) Overlaps(start, end time.Time) bool {
	return ts.StartUTC.Before(end) && start.Before(ts.EndUTC)
}
