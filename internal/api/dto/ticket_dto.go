package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// CreateTicketRequest is the ticket creation payload.
type CreateTicketRequest struct {
	CompanyID    string  `json:"company_id"`
	DepartmentID *string `json:"department_id,omitempty"`
	CustomerID   string  `json:"customer_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Priority     string  `json:"priority"`
}

// AssignTicketRequest attaches an agent to a ticket.
type AssignTicketRequest struct {
	AssigneeAgentID string `json:"assignee_agent_id"`
}

// SetStatusRequest moves a ticket between working states.
type SetStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// ResolveTicketRequest submits a resolution for approval.
type ResolveTicketRequest struct {
	Summary string `json:"summary"`
}

// ApprovalDecisionRequest carries an optional approval comment.
type ApprovalDecisionRequest struct {
	Comment string `json:"comment,omitempty"`
}

// RejectApprovalRequest carries the mandatory rejection reason.
type RejectApprovalRequest struct {
	Reason string `json:"reason"`
}

// ChangePriorityRequest changes ticket priority.
type ChangePriorityRequest struct {
	Priority string `json:"priority"`
}

// RateTicketRequest records a satisfaction rating.
type RateTicketRequest struct {
	Rating int `json:"rating"`
}

// TicketResponse is the outward ticket representation.
type TicketResponse struct {
	ID                 string     `json:"id"`
	Number             string     `json:"number"`
	CompanyID          string     `json:"company_id"`
	DepartmentID       *string    `json:"department_id,omitempty"`
	CustomerID         string     `json:"customer_id"`
	AssigneeAgentID    *string    `json:"assignee_agent_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	ApprovalStage      string     `json:"approval_stage"`
	ResolutionSummary  string     `json:"resolution_summary,omitempty"`
	EscalationLevel    int        `json:"escalation_level"`
	SatisfactionRating *int       `json:"satisfaction_rating,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	LastActivityAt     time.Time  `json:"last_activity_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

// FromTicket maps the domain ticket to its response form.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                 ticket.ID,
		Number:             ticket.Number,
		CompanyID:          ticket.CompanyID,
		DepartmentID:       ticket.DepartmentID,
		CustomerID:         ticket.CustomerID,
		AssigneeAgentID:    ticket.AssigneeID,
		Title:              ticket.Title,
		Description:        ticket.Description,
		Category:           ticket.Category,
		Status:             string(ticket.Status),
		Priority:           string(ticket.Priority),
		ApprovalStage:      string(ticket.ApprovalStage),
		ResolutionSummary:  ticket.ResolutionSummary,
		EscalationLevel:    ticket.EscalationLevel,
		SatisfactionRating: ticket.SatisfactionRating,
		CreatedAt:          ticket.CreatedAt,
		LastActivityAt:     ticket.LastActivityAt,
		ClosedAt:           ticket.ClosedAt,
	}
}

// SlaStatusResponse reports the live SLA view of a ticket.
type SlaStatusResponse struct {
	TicketID              string     `json:"ticket_id"`
	Classification        string     `json:"classification"`
	FirstResponseDeadline time.Time  `json:"first_response_deadline"`
	ResolutionDeadline    time.Time  `json:"resolution_deadline"`
	FirstResponseAt       *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`
	FirstResponseViolated bool       `json:"first_response_violated"`
	ResolutionViolated    bool       `json:"resolution_violated"`
	EscalationLevel       int        `json:"escalation_level"`
}
