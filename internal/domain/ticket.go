package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// IsClosed reports whether the status is terminal.
func (s TicketStatus) IsClosed() bool {
	return s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityNormal   TicketPriority = "NORMAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Bump returns the next priority level up, capped at CRITICAL.
func (p TicketPriority) Bump() TicketPriority {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityNormal
	case TicketPriorityNormal:
		return TicketPriorityHigh
	default:
		return TicketPriorityCritical
	}
}

// Valid reports whether the priority is a known level.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// ApprovalStage tags which approval a RESOLVED ticket is waiting for.
// Tickets outside RESOLVED always carry ApprovalStageNone, so stale
// approval flags cannot be represented.
type ApprovalStage string

const (
	ApprovalStageNone    ApprovalStage = "NONE"
	ApprovalStageManager ApprovalStage = "MANAGER"
	ApprovalStageAdmin   ApprovalStage = "ADMIN"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                  string
	Number              string
	CompanyID           string
	DepartmentID        *string
	CustomerID          string
	CreatorID           string
	AssigneeID          *string
	Title               string
	Description         string
	Category            string
	Status              TicketStatus
	Priority            TicketPriority
	ApprovalStage       ApprovalStage
	PreResolutionStatus TicketStatus
	ResolutionSummary   string
	EscalationLevel     int
	SatisfactionRating  *int
	Version             int64
	CreatedAt           time.Time
	LastActivityAt      time.Time
	ClosedAt            *time.Time
}
