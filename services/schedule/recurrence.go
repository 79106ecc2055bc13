package schedule

import (
	"fmt"
	"time"

	"tutorhive/models"
)

// MaxRecurrenceOccurrences caps AfterCount. One occurrence per day of the
// horizon is the natural ceiling; a larger count can never be satisfied
// inside 30 days anyway.
const MaxRecurrenceOccurrences = 30

// ExpandRecurrence walks forward day by day from startingFrom, emitting an
// occurrence for each date whose weekday is in the pattern's day set, until
// the active end condition is met. The 30-day horizon always wins: expansion
// stops there even when AfterCount has not been reached, and that is a
// partial result, not an error.
func ExpandRecurrence(pattern models.RecurrencePattern, startingFrom time.Time) ([]models.OccurrenceTime, error) {
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	days := make(map[time.Weekday]bool, len(pattern.DaysOfWeek))
	for _, d := range pattern.DaysOfWeek {
		days[d] = true
	}

	startDate := time.Date(startingFrom.Year(), startingFrom.Month(), startingFrom.Day(), 0, 0, 0, 0, time.UTC)
	horizon := startDate.AddDate(0, 0, HorizonDays)

	limit := pattern.AfterCount
	if limit == 0 || limit > MaxRecurrenceOccurrences {
		limit = MaxRecurrenceOccurrences
	}

	var out []models.OccurrenceTime
	emitted := make(map[string]bool)
	for day := startDate; !day.After(horizon) && len(out) < limit; day = day.AddDate(0, 0, 1) {
		if !days[day.Weekday()] {
			continue
		}
		if pattern.OnDate != nil && day.After(*pattern.OnDate) {
			break
		}
		// A date can only match the weekday set once; the guard protects
		// against malformed duplicate day entries.
		key := day.Format(DateLayout)
		if emitted[key] {
			continue
		}
		emitted[key] = true

		start := day.Add(time.Duration(pattern.StartMinute) * time.Minute)
		end := day.Add(time.Duration(pattern.EndMinute) * time.Minute)
		if start.After(horizon) {
			break
		}
		out = append(out, models.OccurrenceTime{StartUTC: start, EndUTC: end})
	}
	return out, nil
}

func validatePattern(pattern models.RecurrencePattern) error {
	if pattern.Frequency != models.FrequencyWeekly {
		return fmt.Errorf("%w: unsupported frequency %q", ErrInvalidPattern, pattern.Frequency)
	}
	if len(pattern.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: daysOfWeek must not be empty", ErrInvalidPattern)
	}
	for _, d := range pattern.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidPattern, d)
		}
	}
	if pattern.AfterCount < 0 {
		return fmt.Errorf("%w: afterCount must not be negative", ErrInvalidPattern)
	}
	if pattern.AfterCount == 0 && pattern.OnDate == nil {
		return fmt.Errorf("%w: an end condition is required", ErrInvalidPattern)
	}
	if pattern.AfterCount > 0 && pattern.OnDate != nil {
		return fmt.Errorf("%w: afterCount and onDate are mutually exclusive", ErrInvalidPattern)
	}
	if pattern.StartMinute < 0 || pattern.EndMinute > 24*60 || pattern.EndMinute <= pattern.StartMinute {
		return fmt.Errorf("%w: invalid slot minutes", ErrInvalidPattern)
	}
	return nil
}
