package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SavePolicyRequest creates or updates an SLA policy.
type SavePolicyRequest struct {
	CompanyID          string  `json:"company_id"`
	DepartmentID       *string `json:"department_id,omitempty"`
	Priority           string  `json:"priority"`
	FirstResponseHours int     `json:"first_response_hours"`
	ResolutionHours    int     `json:"resolution_hours"`
	BusinessHoursOnly  bool    `json:"business_hours_only"`
	BusinessStartHour  int     `json:"business_start_hour"`
	BusinessEndHour    int     `json:"business_end_hour"`
	WeekendDays        []int   `json:"weekend_days,omitempty"`
	HolidayCalendar    string  `json:"holiday_calendar,omitempty"`
	Active             *bool   `json:"active,omitempty"`
}

// ToPolicy maps the request onto a domain policy.
func (r SavePolicyRequest) ToPolicy() *domain.SlaPolicy {
	policy := &domain.SlaPolicy{
		CompanyID:          r.CompanyID,
		DepartmentID:       r.DepartmentID,
		Priority:           domain.TicketPriority(r.Priority),
		FirstResponseHours: r.FirstResponseHours,
		ResolutionHours:    r.ResolutionHours,
		BusinessHoursOnly:  r.BusinessHoursOnly,
		BusinessStartHour:  r.BusinessStartHour,
		BusinessEndHour:    r.BusinessEndHour,
		HolidayCalendar:    r.HolidayCalendar,
		Active:             true,
	}
	if r.Active != nil {
		policy.Active = *r.Active
	}
	for _, day := range r.WeekendDays {
		policy.WeekendDays = append(policy.WeekendDays, time.Weekday(day))
	}
	return policy
}

// PolicyResponse is the outward policy representation.
type PolicyResponse struct {
	ID                 string    `json:"id"`
	CompanyID          string    `json:"company_id"`
	DepartmentID       *string   `json:"department_id,omitempty"`
	Priority           string    `json:"priority"`
	FirstResponseHours int       `json:"first_response_hours"`
	ResolutionHours    int       `json:"resolution_hours"`
	BusinessHoursOnly  bool      `json:"business_hours_only"`
	BusinessStartHour  int       `json:"business_start_hour"`
	BusinessEndHour    int       `json:"business_end_hour"`
	WeekendDays        []int     `json:"weekend_days"`
	HolidayCalendar    string    `json:"holiday_calendar,omitempty"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FromPolicy maps the domain policy to its response form.
func FromPolicy(policy *domain.SlaPolicy) PolicyResponse {
	days := make([]int, 0, len(policy.WeekendDays))
	for _, day := range policy.WeekendDays {
		days = append(days, int(day))
	}
	return PolicyResponse{
		ID:                 policy.ID,
		CompanyID:          policy.CompanyID,
		DepartmentID:       policy.DepartmentID,
		Priority:           string(policy.Priority),
		FirstResponseHours: policy.FirstResponseHours,
		ResolutionHours:    policy.ResolutionHours,
		BusinessHoursOnly:  policy.BusinessHoursOnly,
		BusinessStartHour:  policy.BusinessStartHour,
		BusinessEndHour:    policy.BusinessEndHour,
		WeekendDays:        days,
		HolidayCalendar:    policy.HolidayCalendar,
		Active:             policy.Active,
		CreatedAt:          policy.CreatedAt,
		UpdatedAt:          policy.UpdatedAt,
	}
}

// LoginRequest is the agent login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the issued token.
type LoginResponse struct {
	Token   string `json:"token"`
	AgentID string `json:"agent_id"`
	Role    string `json:"role"`
	Name    string `json:"name"`
}
