package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketSlaAtRisk       EventType = "ticket_sla_at_risk"
	EventResolutionSubmitted   EventType = "resolution_submitted"
	EventResolutionApproved    EventType = "resolution_approved"
	EventResolutionRejected    EventType = "resolution_rejected"
	EventTicketClosed          EventType = "ticket_closed"
)

// Actor encapsulates actor metadata for an event. System events (scheduler
// escalations, risk notifications) carry no agent id.
type Actor struct {
	AgentID *string `json:"agent_id,omitempty"`
	System  bool    `json:"system,omitempty"`
}

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number       string                `json:"number"`
	CompanyID    string                `json:"company_id"`
	DepartmentID *string               `json:"department_id,omitempty"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeAgentID string `json:"assignee_agent_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationLevel int                   `json:"escalation_level"`
	Priority        domain.TicketPriority `json:"priority"`
}

// TicketSlaAtRiskPayload payload.
type TicketSlaAtRiskPayload struct {
	Deadline time.Time `json:"deadline"`
}

// ResolutionSubmittedPayload payload.
type ResolutionSubmittedPayload struct {
	Summary string `json:"summary"`
}

// ResolutionDecisionPayload payload for approvals and rejections.
type ResolutionDecisionPayload struct {
	Stage   domain.ApprovalStage `json:"stage"`
	Comment string               `json:"comment,omitempty"`
}
