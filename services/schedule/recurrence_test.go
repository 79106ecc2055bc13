package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhive/models"
	"tutorhive/services/schedule"
)

func weeklyPattern(days []time.Weekday, count int) models.RecurrencePattern {
	return models.RecurrencePattern{
		Frequency:   models.FrequencyWeekly,
		DaysOfWeek:  days,
		AfterCount:  count,
		StartMinute: 9 * 60,
		EndMinute:   9*60 + 30,
	}
}

func TestExpand_HorizonWinsOverAfterCount(t *testing.T) {
	// GIVEN: Mon/Wed pattern with afterCount 20, starting on a Friday
	pattern := weeklyPattern([]time.Weekday{time.Monday, time.Wednesday}, 20)
	friday := time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Friday, friday.Weekday())

	// WHEN: expanding
	occurrences, err := schedule.ExpandRecurrence(pattern, friday)
	require.NoError(t, err)

	// THEN: only ~8 occurrences fit inside the 30-day horizon, and that is
	// a partial result, not an error
	assert.Len(t, occurrences, 8)
	horizon := friday.AddDate(0, 0, schedule.HorizonDays)
	for _, occ := range occurrences {
		assert.False(t, occ.StartUTC.After(horizon),
			"occurrence %s is beyond the horizon", occ.StartUTC)
		day := occ.StartUTC.Weekday()
		assert.True(t, day == time.Monday || day == time.Wednesday)
	}
}

func TestExpand_AfterCountStopsEarly(t *testing.T) {
	pattern := weeklyPattern([]time.Weekday{time.Monday}, 2)
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	occurrences, err := schedule.ExpandRecurrence(pattern, monday)
	require.NoError(t, err)

	require.Len(t, occurrences, 2)
	assert.Equal(t, monday.Add(9*time.Hour), occurrences[0].StartUTC)
	assert.Equal(t, monday.AddDate(0, 0, 7).Add(9*time.Hour), occurrences[1].StartUTC)
	assert.Equal(t, 30*time.Minute, occurrences[0].EndUTC.Sub(occurrences[0].StartUTC))
}

func TestExpand_OnDateEndCondition(t *testing.T) {
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	onDate := monday.AddDate(0, 0, 10)

	pattern := models.RecurrencePattern{
		Frequency:   models.FrequencyWeekly,
		DaysOfWeek:  []time.Weekday{time.Monday, time.Thursday},
		OnDate:      &onDate,
		StartMinute: 10 * 60,
		EndMinute:   10*60 + 30,
	}

	occurrences, err := schedule.ExpandRecurrence(pattern, monday)
	require.NoError(t, err)

	// Mondays on day 0 and 7, Thursday on day 3 and 10; day 10 is within onDate.
	assert.Len(t, occurrences, 4)
	for _, occ := range occurrences {
		assert.False(t, occ.StartUTC.After(onDate.Add(24*time.Hour)))
	}
}

func TestExpand_DuplicateWeekdayEntriesEmitOnce(t *testing.T) {
	// Malformed input listing the same weekday twice must not double-emit.
	pattern := weeklyPattern([]time.Weekday{time.Monday, time.Monday}, 3)
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	occurrences, err := schedule.ExpandRecurrence(pattern, monday)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, occ := range occurrences {
		seen[occ.StartUTC.Format("2006-01-02")]++
	}
	for date, count := range seen {
		assert.Equal(t, 1, count, "date %s emitted %d times", date, count)
	}
}

func TestExpand_InvalidPatterns(t *testing.T) {
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	_, err := schedule.ExpandRecurrence(weeklyPattern(nil, 5), start)
	assert.ErrorIs(t, err, schedule.ErrInvalidPattern, "empty weekday set")

	noEnd := weeklyPattern([]time.Weekday{time.Monday}, 0)
	_, err = schedule.ExpandRecurrence(noEnd, start)
	assert.ErrorIs(t, err, schedule.ErrInvalidPattern, "missing end condition")

	badFreq := weeklyPattern([]time.Weekday{time.Monday}, 5)
	badFreq.Frequency = "daily"
	_, err = schedule.ExpandRecurrence(badFreq, start)
	assert.ErrorIs(t, err, schedule.ErrInvalidPattern, "unsupported frequency")

	badMinutes := weeklyPattern([]time.Weekday{time.Monday}, 5)
	badMinutes.EndMinute = badMinutes.StartMinute
	_, err = schedule.ExpandRecurrence(badMinutes, start)
	assert.ErrorIs(t, err, schedule.ErrInvalidPattern, "zero-length slot")
}

func TestExpand_NeverBeyondHorizon(t *testing.T) {
	// Every weekday, absurd count: hard bound is still the horizon.
	pattern := weeklyPattern([]time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}, schedule.MaxRecurrenceOccurrences)
	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	occurrences, err := schedule.ExpandRecurrence(pattern, start)
	require.NoError(t, err)

	horizon := start.AddDate(0, 0, schedule.HorizonDays)
	assert.LessOrEqual(t, len(occurrences), schedule.MaxRecurrenceOccurrences)
	for _, occ := range occurrences {
		assert.False(t, occ.StartUTC.After(horizon))
	}
}
