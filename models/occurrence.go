package models

import "time"

// OccurrenceStatus is the lifecycle state of a single class occurrence.
type OccurrenceStatus string

const (
	OccurrencePending   OccurrenceStatus = "pending"
	OccurrenceScheduled OccurrenceStatus = "scheduled"
	OccurrenceCompleted OccurrenceStatus = "completed"
	OccurrenceCancelled OccurrenceStatus = "cancelled"
)

// ClassOccurrence is one concrete scheduled class between a teacher and a
// student. Occurrences generated from the same recurrence pattern share a
// RecurringGroupID but are otherwise independent; cancelling one does not
// cascade to its siblings.
type ClassOccurrence struct {
	ID               string           `bson:"id" json:"id"`
	TeacherID        string           `bson:"teacherId" json:"teacherId"`
	StudentID        string           `bson:"studentId" json:"studentId"`
	StartUTC         time.Time        `bson:"startUtc" json:"startUtc"`
	EndUTC           time.Time        `bson:"endUtc" json:"endUtc"`
	Status           OccurrenceStatus `bson:"status" json:"status"`
	RecurringGroupID string           `bson:"recurringGroupId,omitempty" json:"recurringGroupId,omitempty"`
	Notes            string           `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelReason     string           `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt        time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// Blocks reports whether the occurrence still holds its slot. Pending and
// Scheduled occurrences keep the slot off the open list; Completed and
// Cancelled ones release it.
func (o ClassOccurrence) Blocks() bool {
	return o.Status == OccurrencePending || o.Status == OccurrenceScheduled
}
