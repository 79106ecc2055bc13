package booking

import (
	"context"
	"time"

	"tutorhive/models"
)

// Service is the class-occurrence lifecycle:
//
//	Pending -> {Scheduled, Cancelled}
//	Scheduled -> {Completed, Cancelled}
//
// Pending and Cancelled are the only states reachable without entitlement
// confirmation.
type Service interface {
	// CreatePending creates a Pending occurrence for the slot, re-validating
	// openness to close the race between listing and booking.
	CreatePending(ctx context.Context, teacherID, studentID string, slot models.TimeSlot) (*models.ClassOccurrence, error)

	// Confirm moves a Pending occurrence to Scheduled once entitlement is
	// confirmed. Idempotent: confirming an already-Scheduled occurrence is a
	// no-op returning it unchanged.
	Confirm(ctx context.Context, occurrenceID string) (*models.ClassOccurrence, error)

	// CancelPending cancels an abandoned Pending occurrence. Silently a
	// no-op when the occurrence is no longer Pending; cleanup and
	// confirmation race harmlessly.
	CancelPending(ctx context.Context, occurrenceID string) error

	// Cancel cancels a Scheduled occurrence. Any refund is the credit
	// ledger's concern, triggered as a side effect.
	Cancel(ctx context.Context, occurrenceID, reason string) error

	// Complete marks a Scheduled occurrence whose end time has passed as
	// Completed and debits one credit.
	Complete(ctx context.Context, occurrenceID string) error

	// BookRecurring expands the pattern, creates a Pending occurrence per
	// open slot and reports closed slots as gaps.
	BookRecurring(ctx context.Context, teacherID, studentID string, pattern models.RecurrencePattern, startingFrom time.Time) (*models.RecurrenceResult, error)

	// CleanupAbandoned cancels Pending occurrences older than the TTL.
	CleanupAbandoned(ctx context.Context, olderThan time.Duration) (int, error)

	// ListForStudent returns the student's occurrences starting in [from, to),
	// newest lifecycle state included.
	ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.ClassOccurrence, error)
}

// EntitlementChecker is the ledger surface the booking engine sees. The two
// subsystems are coupled only through this check and the completion debit;
// they share no internal state.
type EntitlementChecker interface {
	Entitled(ctx context.Context, studentID string) (bool, error)
	ConsumeCredit(ctx context.Context, studentID, occurrenceID string) (*models.CreditLedgerState, error)
}
