package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	occurrenceRepo "tutorhive/database/repository/occurrence"
	"tutorhive/models"
	"tutorhive/services/schedule"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBookingService implements Service.
type DefaultBookingService struct {
	Occurrences  occurrenceRepo.Repository
	Availability schedule.AvailabilityService
	Entitlement  EntitlementChecker
	Logger       *zap.Logger
}

func (s *DefaultBookingService) CreatePending(ctx context.Context, teacherID, studentID string, slot models.TimeSlot) (*models.ClassOccurrence, error) {
	if !slot.StartUTC.Before(slot.EndUTC) {
		return nil, fmt.Errorf("%w: slot start must precede end", ErrInvalidTransition)
	}

	open, err := s.Availability.IsSlotOpen(ctx, teacherID, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to validate slot: %w", err)
	}
	if !open {
		return nil, ErrSlotUnavailable
	}

	now := time.Now().UTC()
	occ := &models.ClassOccurrence{
		ID:        uuid.New().String(),
		TeacherID: teacherID,
		StudentID: studentID,
		StartUTC:  slot.StartUTC.UTC(),
		EndUTC:    slot.EndUTC.UTC(),
		Status:    models.OccurrencePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The unique index over non-cancelled occurrences is the final arbiter:
	// the loser of a concurrent create gets ErrSlotTaken here, not a silent
	// second booking.
	if err := s.Occurrences.Insert(ctx, occ); err != nil {
		if errors.Is(err, occurrenceRepo.ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("failed to create occurrence: %w", err)
	}

	s.Logger.Info("pending booking created",
		zap.String("occurrenceID", occ.ID),
		zap.String("teacherID", teacherID),
		zap.String("studentID", studentID),
		zap.Time("startUtc", occ.StartUTC))
	return occ, nil
}

func (s *DefaultBookingService) Confirm(ctx context.Context, occurrenceID string) (*models.ClassOccurrence, error) {
	occ, err := s.Occurrences.GetByID(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ.Status == models.OccurrenceScheduled {
		// Duplicate confirm call; already done.
		return occ, nil
	}
	if occ.Status != models.OccurrencePending {
		return nil, ErrNotPending
	}

	entitled, err := s.Entitlement.Entitled(ctx, occ.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check entitlement: %w", err)
	}
	if !entitled {
		return nil, ErrNotEntitled
	}

	moved, err := s.Occurrences.UpdateStatus(ctx, occurrenceID,
		[]models.OccurrenceStatus{models.OccurrencePending}, models.OccurrenceScheduled, "")
	if err != nil {
		return nil, fmt.Errorf("failed to confirm occurrence: %w", err)
	}
	if !moved {
		// Lost a race since the read above: either a duplicate confirm won
		// (fine) or cleanup cancelled it.
		occ, err = s.Occurrences.GetByID(ctx, occurrenceID)
		if err != nil {
			return nil, err
		}
		if occ.Status == models.OccurrenceScheduled {
			return occ, nil
		}
		return nil, ErrNotPending
	}

	occ.Status = models.OccurrenceScheduled
	s.Logger.Info("booking confirmed", zap.String("occurrenceID", occurrenceID))
	return occ, nil
}

func (s *DefaultBookingService) CancelPending(ctx context.Context, occurrenceID string) error {
	moved, err := s.Occurrences.UpdateStatus(ctx, occurrenceID,
		[]models.OccurrenceStatus{models.OccurrencePending}, models.OccurrenceCancelled, "checkout abandoned")
	if err != nil {
		return fmt.Errorf("failed to cancel pending occurrence: %w", err)
	}
	if !moved {
		// Expected under concurrent cleanup and confirmation; last state
		// wins, nothing to do.
		s.Logger.Debug("cancelPending no-op on non-pending occurrence",
			zap.String("occurrenceID", occurrenceID))
	}
	return nil
}

func (s *DefaultBookingService) Cancel(ctx context.Context, occurrenceID, reason string) error {
	moved, err := s.Occurrences.UpdateStatus(ctx, occurrenceID,
		[]models.OccurrenceStatus{models.OccurrenceScheduled}, models.OccurrenceCancelled, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel occurrence: %w", err)
	}
	if !moved {
		return ErrInvalidTransition
	}
	s.Logger.Info("booking cancelled",
		zap.String("occurrenceID", occurrenceID), zap.String("reason", reason))
	return nil
}

func (s *DefaultBookingService) Complete(ctx context.Context, occurrenceID string) error {
	occ, err := s.Occurrences.GetByID(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if occ.Status != models.OccurrenceScheduled {
		return ErrInvalidTransition
	}
	if time.Now().UTC().Before(occ.EndUTC) {
		return fmt.Errorf("%w: occurrence has not ended yet", ErrInvalidTransition)
	}

	moved, err := s.Occurrences.UpdateStatus(ctx, occurrenceID,
		[]models.OccurrenceStatus{models.OccurrenceScheduled}, models.OccurrenceCompleted, "")
	if err != nil {
		return fmt.Errorf("failed to complete occurrence: %w", err)
	}
	if !moved {
		return ErrInvalidTransition
	}

	if _, err := s.Entitlement.ConsumeCredit(ctx, occ.StudentID, occurrenceID); err != nil {
		// The occurrence is completed either way; the debit is retried by
		// the caller, reconciliation audits catch the rest.
		s.Logger.Error("failed to debit credit for completed class",
			zap.String("occurrenceID", occurrenceID),
			zap.String("studentID", occ.StudentID),
			zap.Error(err))
	}
	return nil
}

func (s *DefaultBookingService) BookRecurring(ctx context.Context, teacherID, studentID string, pattern models.RecurrencePattern, startingFrom time.Time) (*models.RecurrenceResult, error) {
	times, err := schedule.ExpandRecurrence(pattern, startingFrom)
	if err != nil {
		return nil, err
	}

	result := &models.RecurrenceResult{GroupID: uuid.New().String()}
	now := time.Now().UTC()

	for _, occurrence := range times {
		slot := models.TimeSlot{StartUTC: occurrence.StartUTC, EndUTC: occurrence.EndUTC}
		open, err := s.Availability.IsSlotOpen(ctx, teacherID, slot)
		if err != nil {
			return nil, fmt.Errorf("failed to validate recurrence slot: %w", err)
		}
		if !open {
			result.Gaps = append(result.Gaps, models.RecurrenceGap{
				StartUTC: occurrence.StartUTC,
				EndUTC:   occurrence.EndUTC,
				Reason:   "slot not open",
			})
			continue
		}

		occ := &models.ClassOccurrence{
			ID:               uuid.New().String(),
			TeacherID:        teacherID,
			StudentID:        studentID,
			StartUTC:         occurrence.StartUTC,
			EndUTC:           occurrence.EndUTC,
			Status:           models.OccurrencePending,
			RecurringGroupID: result.GroupID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.Occurrences.Insert(ctx, occ); err != nil {
			if errors.Is(err, occurrenceRepo.ErrSlotTaken) {
				// Taken between the openness check and the insert; an
				// explicit gap, not a failure of the whole recurrence.
				result.Gaps = append(result.Gaps, models.RecurrenceGap{
					StartUTC: occurrence.StartUTC,
					EndUTC:   occurrence.EndUTC,
					Reason:   "slot taken concurrently",
				})
				continue
			}
			return nil, fmt.Errorf("failed to create recurring occurrence: %w", err)
		}
		result.Occurrences = append(result.Occurrences, *occ)
	}

	s.Logger.Info("recurrence booked",
		zap.String("groupID", result.GroupID),
		zap.String("teacherID", teacherID),
		zap.String("studentID", studentID),
		zap.Int("occurrences", len(result.Occurrences)),
		zap.Int("gaps", len(result.Gaps)))
	return result, nil
}

func (s *DefaultBookingService) ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.ClassOccurrence, error) {
	occs, err := s.Occurrences.ListByStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list student occurrences: %w", err)
	}
	return occs, nil
}

func (s *DefaultBookingService) CleanupAbandoned(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.Occurrences.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list abandoned occurrences: %w", err)
	}

	cancelled := 0
	for _, occ := range stale {
		if err := s.CancelPending(ctx, occ.ID); err != nil {
			s.Logger.Warn("cleanup failed for occurrence",
				zap.String("occurrenceID", occ.ID), zap.Error(err))
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		s.Logger.Info("abandoned pending bookings cancelled", zap.Int("count", cancelled))
	}
	return cancelled, nil
}
