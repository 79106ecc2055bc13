package availabilityRepo

import (
	"context"
	"time"

	"tutorhive/models"
)

// Repository persists teacher availability windows. Windows are written in
// whole generations and swapped, never mutated in place.
type Repository interface {
	// ListOpen returns the available windows for a teacher intersecting
	// [from, to), ordered by start ascending.
	ListOpen(ctx context.Context, teacherID string, from, to time.Time) ([]models.AvailabilityWindow, error)

	// InsertGeneration writes a complete new window set tagged with one
	// generation id. The previous generation stays readable until
	// DeleteOtherGenerations removes it, so a partial failure never leaves
	// the teacher with zero availability.
	InsertGeneration(ctx context.Context, windows []models.AvailabilityWindow) error

	// DeleteOtherGenerations removes every window for the teacher in
	// [from, to) whose generation differs from keep.
	DeleteOtherGenerations(ctx context.Context, teacherID, keep string, from, to time.Time) error
}
