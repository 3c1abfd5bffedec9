package domain

import "time"

// SlaPolicy defines response and resolution targets for a priority within
// a company, optionally narrowed to one department.
type SlaPolicy struct {
	ID                 string
	CompanyID          string
	DepartmentID       *string
	Priority           TicketPriority
	FirstResponseHours int
	ResolutionHours    int
	BusinessHoursOnly  bool
	BusinessStartHour  int // inclusive, 0-23
	BusinessEndHour    int // exclusive, 1-24
	WeekendDays        []time.Weekday
	HolidayCalendar    string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DefaultWeekendDays is used when a policy does not configure its own.
var DefaultWeekendDays = []time.Weekday{time.Saturday, time.Sunday}

// EffectiveWeekendDays returns the configured weekend days or the default.
func (p *SlaPolicy) EffectiveWeekendDays() []time.Weekday {
	if len(p.WeekendDays) > 0 {
		return p.WeekendDays
	}
	return DefaultWeekendDays
}

// Validate rejects policy configurations that could never satisfy a target.
func (p *SlaPolicy) Validate() error {
	if p.FirstResponseHours <= 0 || p.ResolutionHours <= 0 {
		return &InvalidPolicyConfigurationError{Reason: "target hours must be positive"}
	}
	if !p.Priority.Valid() {
		return &InvalidPolicyConfigurationError{Reason: "unknown priority " + string(p.Priority)}
	}
	if !p.BusinessHoursOnly {
		return nil
	}
	if p.BusinessStartHour < 0 || p.BusinessStartHour > 23 {
		return &InvalidPolicyConfigurationError{Reason: "business start hour out of range"}
	}
	if p.BusinessEndHour < 1 || p.BusinessEndHour > 24 {
		return &InvalidPolicyConfigurationError{Reason: "business end hour out of range"}
	}
	if p.BusinessStartHour >= p.BusinessEndHour {
		return &InvalidPolicyConfigurationError{Reason: "business window has zero width"}
	}
	if len(p.EffectiveWeekendDays()) >= 7 {
		return &InvalidPolicyConfigurationError{Reason: "no working days configured"}
	}
	return nil
}

// SlaTracking is the per-ticket record of deadlines and their state.
type SlaTracking struct {
	ID                    string
	TicketID              string
	PolicyID              string
	FirstResponseDeadline time.Time
	ResolutionDeadline    time.Time
	FirstResponseAt       *time.Time
	ResolvedAt            *time.Time
	FirstResponseViolated bool
	ResolutionViolated    bool
	EscalationLevel       int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SlaClassification is the scheduler-facing view of a tracker's state.
type SlaClassification string

const (
	SlaOnTrack  SlaClassification = "ON_TRACK"
	SlaAtRisk   SlaClassification = "AT_RISK"
	SlaViolated SlaClassification = "VIOLATED"
)

// PendingDeadline returns the deadline that still awaits its event, or nil
// when both milestones are complete.
func (t *SlaTracking) PendingDeadline() *time.Time {
	if t.FirstResponseAt == nil {
		d := t.FirstResponseDeadline
		return &d
	}
	if t.ResolvedAt == nil {
		d := t.ResolutionDeadline
		return &d
	}
	return nil
}

// Classify compares now against the pending deadline. riskWindow is the
// lead time within which a still-unbreached deadline counts as at risk.
func (t *SlaTracking) Classify(now time.Time, riskWindow time.Duration) SlaClassification {
	deadline := t.PendingDeadline()
	if deadline == nil {
		return SlaOnTrack
	}
	if now.After(*deadline) {
		return SlaViolated
	}
	if deadline.Sub(now) <= riskWindow {
		return SlaAtRisk
	}
	return SlaOnTrack
}
