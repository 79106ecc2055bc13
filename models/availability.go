package models

import "time"

// AvailabilityWindow is a raw block of time a teacher has marked as open.
// Windows are created and deleted in bulk per horizon regeneration; they are
// never partially mutated. Generation tags the regeneration batch that wrote
// the window so a swap can replace a range atomically.
type AvailabilityWindow struct {
	ID          string    `bson:"id" json:"id"`
	TeacherID   string    `bson:"teacherId" json:"teacherId"`
	StartUTC    time.Time `bson:"startUtc" json:"startUtc"`
	EndUTC      time.Time `bson:"endUtc" json:"endUtc"`
	IsAvailable bool      `bson:"isAvailable" json:"isAvailable"`
	Generation  string    `bson:"generation" json:"-"`
}

// WeeklyTemplateEntry is one recurring block in a teacher's weekly schedule,
// expressed as minutes from midnight UTC. The nightly regeneration expands the
// template into concrete AvailabilityWindow rows over the horizon.
type WeeklyTemplateEntry struct {
	Weekday     time.Weekday `bson:"weekday" json:"weekday"`
	StartMinute int          `bson:"startMinute" json:"startMinute"`
	EndMinute   int          `bson:"endMinute" json:"endMinute"`
}
