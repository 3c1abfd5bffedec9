package sla

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func businessPolicy(startHour, endHour int) *domain.SlaPolicy {
	return &domain.SlaPolicy{
		Priority:           domain.TicketPriorityNormal,
		FirstResponseHours: 4,
		ResolutionHours:    24,
		BusinessHoursOnly:  true,
		BusinessStartHour:  startHour,
		BusinessEndHour:    endHour,
	}
}

func TestDeadlineCalendarMode(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := &domain.SlaPolicy{
		Priority:           domain.TicketPriorityNormal,
		FirstResponseHours: 4,
		ResolutionHours:    24,
	}

	start := time.Date(2025, 6, 6, 22, 30, 0, 0, time.UTC) // Friday night
	deadline, err := clock.Deadline(start, 24, policy)
	require.NoError(t, err)
	assert.Equal(t, start.Add(24*time.Hour), deadline, "calendar mode ignores weekends and hours")
}

func TestDeadlineSpillsIntoNextDay(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := businessPolicy(9, 18)

	// Monday 08:00, before the window opens. Monday contributes 9 hours,
	// the remaining hour lands Tuesday at 10:00.
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	deadline, err := clock.Deadline(start, 10, policy)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC), deadline)
}

func TestDeadlineSkipsWeekend(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := businessPolicy(9, 17)

	// Friday 16:00 leaves one hour in the window; the remaining three
	// resume Monday morning.
	start := time.Date(2025, 6, 6, 16, 0, 0, 0, time.UTC)
	deadline, err := clock.Deadline(start, 4, policy)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC), deadline)
}

func TestDeadlineSkipsHoliday(t *testing.T) {
	holidays := NewHolidayCalendars()
	holidays.Register("us-federal", us.IndependenceDay)
	clock := NewBusinessHoursClock(holidays)

	policy := businessPolicy(9, 17)
	policy.HolidayCalendar = "us-federal"

	// Thursday July 3rd 2025 contributes 8 hours; Friday the 4th is a
	// holiday and the weekend follows, so the rest lands Monday.
	start := time.Date(2025, 7, 3, 9, 0, 0, 0, time.UTC)
	deadline, err := clock.Deadline(start, 10, policy)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 7, 11, 0, 0, 0, time.UTC), deadline)
}

func TestDeadlineStartAfterWindowClose(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := businessPolicy(9, 17)

	// Monday 20:00 is past close; the full target runs Tuesday.
	start := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	deadline, err := clock.Deadline(start, 2, policy)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC), deadline)
}

func TestDeadlineCustomWeekendDays(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := businessPolicy(9, 17)
	policy.WeekendDays = []time.Weekday{time.Friday, time.Saturday}

	// Thursday 16:00 with a Friday/Saturday weekend resumes Sunday.
	start := time.Date(2025, 6, 5, 16, 0, 0, 0, time.UTC)
	deadline, err := clock.Deadline(start, 2, policy)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), deadline)
}

func TestDeadlineInvalidWindow(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := businessPolicy(10, 10)

	_, err := clock.Deadline(time.Now(), 2, policy)
	var invalid *domain.InvalidPolicyConfigurationError
	require.ErrorAs(t, err, &invalid)
}

func TestDeadlineIterationCap(t *testing.T) {
	clock := NewBusinessHoursClock(nil)
	policy := businessPolicy(9, 17)

	// 8 working hours per day can never satisfy this target within the
	// simulation bound.
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, err := clock.Deadline(start, maxSimulatedDays*8+1, policy)
	var invalid *domain.InvalidPolicyConfigurationError
	require.ErrorAs(t, err, &invalid)
}

func TestUnknownHolidayCalendarHasNoHolidays(t *testing.T) {
	holidays := NewHolidayCalendars()
	assert.False(t, holidays.IsHoliday("nope", time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)))
	assert.False(t, holidays.IsHoliday("", time.Now()))
}
