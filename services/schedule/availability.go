package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	availabilityRepo "tutorhive/database/repository/availability"
	occurrenceRepo "tutorhive/database/repository/occurrence"
	"tutorhive/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService exposes a teacher's open slots and regenerates the
// underlying window set from the weekly template.
type AvailabilityService interface {
	OpenSlots(ctx context.Context, teacherID string, horizonStart, horizonEnd time.Time) ([]models.TimeSlot, error)
	IsSlotOpen(ctx context.Context, teacherID string, slot models.TimeSlot) (bool, error)
	RegenerateHorizon(ctx context.Context, teacherID string, template []models.WeeklyTemplateEntry, from time.Time) error
}

// DefaultAvailabilityService implements AvailabilityService.
type DefaultAvailabilityService struct {
	Windows     availabilityRepo.Repository
	Occurrences occurrenceRepo.Repository
	Logger      *zap.Logger
}

// OpenSlots subtracts the teacher's Pending and Scheduled occurrences from
// their availability windows and returns the remaining 30-minute slots in
// [horizonStart, horizonEnd), ordered by start ascending. Pure read, no side
// effects.
func (s *DefaultAvailabilityService) OpenSlots(ctx context.Context, teacherID string, horizonStart, horizonEnd time.Time) ([]models.TimeSlot, error) {
	if err := checkHorizon(horizonStart, horizonEnd); err != nil {
		return nil, err
	}

	windows, err := s.Windows.ListOpen(ctx, teacherID, horizonStart, horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	busy, err := s.Occurrences.ListBlocking(ctx, teacherID, horizonStart, horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocking occurrences: %w", err)
	}

	return CarveOpenSlots(windows, busy, horizonStart, horizonEnd), nil
}

// IsSlotOpen re-validates a single slot; used at booking-create time to close
// the race between listing and booking.
func (s *DefaultAvailabilityService) IsSlotOpen(ctx context.Context, teacherID string, slot models.TimeSlot) (bool, error) {
	open, err := s.OpenSlots(ctx, teacherID, slot.StartUTC, slot.EndUTC)
	if err != nil {
		return false, err
	}
	want := SlotID(slot.StartUTC, slot.EndUTC)
	for _, candidate := range open {
		if candidate.ID == want {
			return true, nil
		}
	}
	// Multi-slot bookings are open only if every 30-minute piece is open.
	if slot.Duration() > SlotGranularity {
		covered := coveredBy(open, slot.StartUTC, slot.EndUTC)
		return covered, nil
	}
	return false, nil
}

// RegenerateHorizon rebuilds the teacher's window set over the horizon from
// the weekly template. The new generation is fully written before the old one
// is deleted, so a failure part-way leaves the previous set serving reads.
func (s *DefaultAvailabilityService) RegenerateHorizon(ctx context.Context, teacherID string, template []models.WeeklyTemplateEntry, from time.Time) error {
	generation := uuid.New().String()
	horizonEnd := from.AddDate(0, 0, HorizonDays)

	var windows []models.AvailabilityWindow
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for ; day.Before(horizonEnd); day = day.AddDate(0, 0, 1) {
		for _, entry := range template {
			if entry.Weekday != day.Weekday() || entry.EndMinute <= entry.StartMinute {
				continue
			}
			start := day.Add(time.Duration(entry.StartMinute) * time.Minute)
			end := day.Add(time.Duration(entry.EndMinute) * time.Minute)
			windows = append(windows, models.AvailabilityWindow{
				ID:          uuid.New().String(),
				TeacherID:   teacherID,
				StartUTC:    start,
				EndUTC:      end,
				IsAvailable: true,
				Generation:  generation,
			})
		}
	}

	if err := s.Windows.InsertGeneration(ctx, windows); err != nil {
		return fmt.Errorf("failed to write availability generation: %w", err)
	}
	if err := s.Windows.DeleteOtherGenerations(ctx, teacherID, generation, from, horizonEnd); err != nil {
		// The new generation is already live; stale windows only mean
		// duplicates, which CarveOpenSlots dedupes.
		s.Logger.Warn("failed to delete previous availability generation",
			zap.String("teacherID", teacherID), zap.Error(err))
	}
	s.Logger.Info("availability horizon regenerated",
		zap.String("teacherID", teacherID),
		zap.Int("windows", len(windows)),
		zap.String("generation", generation))
	return nil
}

// CarveOpenSlots chops availability windows into 30-minute slots, drops every
// slot that intersects a busy occurrence, and returns the remainder sorted by
// start. Window edges that do not align to the 30-minute grid are truncated
// inward, never rounded out, so no slot is offered that the teacher did not
// grant.
func CarveOpenSlots(windows []models.AvailabilityWindow, busy []models.ClassOccurrence, from, to time.Time) []models.TimeSlot {
	seen := make(map[string]bool)
	var slots []models.TimeSlot

	for _, w := range windows {
		start := maxTime(w.StartUTC, from)
		end := minTime(w.EndUTC, to)
		start = alignUp(start)

		for cur := start; !cur.Add(SlotGranularity).After(end); cur = cur.Add(SlotGranularity) {
			slotEnd := cur.Add(SlotGranularity)
			candidate := models.TimeSlot{ID: SlotID(cur, slotEnd), StartUTC: cur, EndUTC: slotEnd}
			if overlapsAny(busy, candidate) {
				continue
			}
			if seen[candidate.ID] {
				continue
			}
			seen[candidate.ID] = true
			slots = append(slots, candidate)
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartUTC.Before(slots[j].StartUTC)
	})
	return slots
}

func checkHorizon(from, to time.Time) error {
	if !from.Before(to) {
		return fmt.Errorf("%w: horizon start must precede end", ErrHorizonExceeded)
	}
	// The horizon is measured in calendar days: a request may extend through
	// the end of the 30th day after today, whatever the current time of day.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	limit := today.AddDate(0, 0, HorizonDays+1)
	if to.After(limit) {
		return fmt.Errorf("%w: requested window ends %s, horizon is %d days", ErrHorizonExceeded, to.Format(DateLayout), HorizonDays)
	}
	return nil
}

func overlapsAny(busy []models.ClassOccurrence, slot models.TimeSlot) bool {
	for _, occ := range busy {
		if slot.Overlaps(occ.StartUTC, occ.EndUTC) {
			return true
		}
	}
	return false
}

// coveredBy reports whether [start, end) is fully tiled by open slots.
func coveredBy(open []models.TimeSlot, start, end time.Time) bool {
	cur := start
	for _, slot := range open {
		if slot.StartUTC.Equal(cur) {
			cur = slot.EndUTC
			if !cur.Before(end) {
				return true
			}
		}
	}
	return !cur.Before(end)
}

func alignUp(t time.Time) time.Time {
	aligned := t.Truncate(SlotGranularity)
	if aligned.Before(t) {
		aligned = aligned.Add(SlotGranularity)
	}
	return aligned
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
