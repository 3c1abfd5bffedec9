package sla

import (
	"sync"
	"time"

	"github.com/rickar/cal/v2"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// maxSimulatedDays bounds the forward walk so a misconfigured policy that
// slipped past validation cannot loop forever.
const maxSimulatedDays = 3700

// HolidayCalendars holds named holiday definitions that SLA policies may
// reference. Days matching a holiday contribute zero business seconds.
type HolidayCalendars struct {
	mu        sync.RWMutex
	calendars map[string]*cal.Calendar
}

// NewHolidayCalendars creates an empty registry.
func NewHolidayCalendars() *HolidayCalendars {
	return &HolidayCalendars{calendars: make(map[string]*cal.Calendar)}
}

// Register adds or replaces a named calendar with the given holidays.
func (h *HolidayCalendars) Register(name string, holidays ...*cal.Holiday) {
	c := &cal.Calendar{Name: name}
	for _, holiday := range holidays {
		c.AddHoliday(holiday)
	}
	h.mu.Lock()
	h.calendars[name] = c
	h.mu.Unlock()
}

// IsHoliday reports whether day falls on a holiday of the named calendar.
// Unknown calendar names have no holidays.
func (h *HolidayCalendars) IsHoliday(name string, day time.Time) bool {
	if name == "" {
		return false
	}
	h.mu.RLock()
	c, ok := h.calendars[name]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	actual, observed, _ := c.IsHoliday(day)
	return actual || observed
}

// BusinessHoursClock converts duration-in-hours SLA targets into absolute
// deadlines, honoring a policy's business-hours window.
type BusinessHoursClock struct {
	holidays *HolidayCalendars
}

// NewBusinessHoursClock builds a clock backed by the given holiday registry.
// A nil registry means no holidays anywhere.
func NewBusinessHoursClock(holidays *HolidayCalendars) *BusinessHoursClock {
	if holidays == nil {
		holidays = NewHolidayCalendars()
	}
	return &BusinessHoursClock{holidays: holidays}
}

// Deadline computes the absolute deadline for a target of targetHours
// starting at start under the given policy.
//
// Calendar mode is plain wall-clock addition. Business-hours mode walks
// forward day by day, consuming only seconds inside the
// [BusinessStartHour, BusinessEndHour) window on working days; a start
// outside the window is first advanced to the next window open. The walk
// is deliberately an explicit simulation so partial-day starts and narrow
// multi-day windows are handled exactly.
func (c *BusinessHoursClock) Deadline(start time.Time, targetHours int, policy *domain.SlaPolicy) (time.Time, error) {
	target := time.Duration(targetHours) * time.Hour
	if !policy.BusinessHoursOnly {
		return start.Add(target), nil
	}
	if err := policy.Validate(); err != nil {
		return time.Time{}, err
	}

	remaining := target
	cursor := start
	for day := 0; day < maxSimulatedDays; day++ {
		if !c.isWorkingDay(cursor, policy) {
			cursor = nextDayStart(cursor)
			continue
		}
		open := atHour(cursor, policy.BusinessStartHour)
		windowEnd := atHour(cursor, policy.BusinessEndHour)
		if cursor.Before(open) {
			cursor = open
		}
		if !cursor.Before(windowEnd) {
			cursor = nextDayStart(cursor)
			continue
		}
		available := windowEnd.Sub(cursor)
		if available >= remaining {
			return cursor.Add(remaining), nil
		}
		remaining -= available
		cursor = nextDayStart(cursor)
	}
	return time.Time{}, &domain.InvalidPolicyConfigurationError{
		Reason: "business window never satisfies target",
	}
}

func (c *BusinessHoursClock) isWorkingDay(t time.Time, policy *domain.SlaPolicy) bool {
	for _, weekend := range policy.EffectiveWeekendDays() {
		if t.Weekday() == weekend {
			return false
		}
	}
	return !c.holidays.IsHoliday(policy.HolidayCalendar, t)
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		Add(time.Duration(hour) * time.Hour)
}

func nextDayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
