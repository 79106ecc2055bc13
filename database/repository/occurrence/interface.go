package occurrenceRepo

import (
	"context"
	"errors"
	"time"

	"tutorhive/models"
)

var (
	// ErrSlotTaken is surfaced when an insert loses the double-booking race:
	// the unique index on (teacherId, startUtc, endUtc) over non-cancelled
	// occurrences rejected the document.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrNotFound is returned when no occurrence matches the given id.
	ErrNotFound = errors.New("occurrence not found")
)

// Repository persists class occurrences.
type Repository interface {
	Insert(ctx context.Context, occ *models.ClassOccurrence) error
	GetByID(ctx context.Context, id string) (*models.ClassOccurrence, error)

	// UpdateStatus transitions an occurrence to the target status only if its
	// current status is one of from. It returns false when no document
	// matched, which callers use to detect state races.
	UpdateStatus(ctx context.Context, id string, from []models.OccurrenceStatus, to models.OccurrenceStatus, reason string) (bool, error)

	// ListBlocking returns the Pending and Scheduled occurrences for a
	// teacher intersecting [from, to), ordered by start ascending.
	ListBlocking(ctx context.Context, teacherID string, from, to time.Time) ([]models.ClassOccurrence, error)

	// ListPendingBefore returns Pending occurrences created before the
	// cutoff, for abandoned-checkout cleanup.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.ClassOccurrence, error)

	// ListByStudent returns a student's occurrences in [from, to).
	ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.ClassOccurrence, error)
}
