package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// transitionRetries bounds how often a transition is retried after a
// version conflict before ConcurrentModificationError surfaces.
const transitionRetries = 3

// TicketService owns ticket status, escalation level and the
// resolution-approval workflow; it enforces legal transitions.
type TicketService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	sla        *SlaService
	dispatcher events.Dispatcher
	clock      domain.Clock
	locks      *ticketLocks
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	Sla        *SlaService
	Dispatcher events.Dispatcher
	Clock      domain.Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CompanyID    string
	DepartmentID *string
	CustomerID   string
	CreatorID    string
	Title        string
	Description  string
	Category     string
	Priority     domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		sla:        deps.Sla,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		locks:      newTicketLocks(),
	}
}

// CreateTicket creates a NEW ticket and its SLA tracking record. Creation
// fails when no SLA policy applies; a ticket never exists without
// deadlines.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, *domain.SlaTracking, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, nil, apperrors.NewValidationError("title required", nil)
	}
	if input.CompanyID == "" || input.CustomerID == "" {
		return nil, nil, apperrors.NewValidationError("company and customer required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		Number:         generateTicketNumber(),
		CompanyID:      input.CompanyID,
		DepartmentID:   input.DepartmentID,
		CustomerID:     input.CustomerID,
		CreatorID:      input.CreatorID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Category:       input.Category,
		Status:         domain.TicketStatusNew,
		Priority:       priority,
		ApprovalStage:  domain.ApprovalStageNone,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	// Resolve before persisting so a missing policy aborts creation.
	if _, err := s.sla.ResolvePolicy(ctx, ticket); err != nil {
		return nil, nil, err
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, nil, err
	}
	tracking, err := s.sla.Create(ctx, ticket)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{AgentID: nilIfEmpty(input.CreatorID)},
		Payload: events.TicketCreatedPayload{
			Number:       ticket.Number,
			CompanyID:    ticket.CompanyID,
			DepartmentID: ticket.DepartmentID,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	return ticket, tracking, nil
}

// Assign moves a NEW ticket to OPEN and attaches the assignee. The
// assignee must be an active agent of the ticket's company.
func (s *TicketService) Assign(ctx context.Context, actor *domain.Agent, ticketID, assigneeID string) (*domain.Ticket, error) {
	assignee, err := s.agents.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": assigneeID})
		}
		return nil, err
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"agent_id": assigneeID})
	}

	var payload events.TicketAssignedPayload
	ticket, err := s.withTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status != domain.TicketStatusNew {
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "assign"}
		}
		if assignee.CompanyID != ticket.CompanyID {
			return false, apperrors.NewForbidden("assignee belongs to another company")
		}
		ticket.Status = domain.TicketStatusOpen
		ticket.AssigneeID = &assignee.ID
		payload = events.TicketAssignedPayload{AssigneeAgentID: assignee.ID}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  payload,
	})
	return ticket, nil
}

// SetStatus moves a ticket between the working states. Setting the same
// status again is a no-op that does not bump lastActivityAt.
func (s *TicketService) SetStatus(ctx context.Context, actor *domain.Agent, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if newStatus != domain.TicketStatusInProgress && newStatus != domain.TicketStatusPending {
		return nil, apperrors.NewValidationError("status must be IN_PROGRESS or PENDING", map[string]any{"status": newStatus})
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.withTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status == newStatus {
			return false, nil
		}
		switch ticket.Status {
		case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusEscalated:
		default:
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "set_status"}
		}
		oldStatus = ticket.Status
		ticket.Status = newStatus
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if oldStatus != "" {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: newStatus,
				Comment:   comment,
			},
		})
	}
	return ticket, nil
}

// RecordFirstResponse stamps the first-response milestone under the
// ticket's lock. Idempotent.
func (s *TicketService) RecordFirstResponse(ctx context.Context, ticketID string) error {
	unlock := s.locks.acquire(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}
	if ticket.Status.IsClosed() {
		return &domain.IllegalTransitionError{From: ticket.Status, Event: "first_response"}
	}
	return s.sla.RecordFirstResponse(ctx, ticketID, s.clock.Now())
}

// ResolveForApproval enters the resolution-approval workflow. The current
// status is persisted so a later reject is deterministic.
func (s *TicketService) ResolveForApproval(ctx context.Context, actor *domain.Agent, ticketID, summary string) (*domain.Ticket, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, apperrors.NewValidationError("resolution summary required", nil)
	}

	unlock := s.locks.acquire(ticketID)
	defer unlock()

	ticket, err := s.applyTransition(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		switch ticket.Status {
		case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusEscalated:
		default:
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "resolve_for_approval"}
		}
		ticket.PreResolutionStatus = ticket.Status
		ticket.Status = domain.TicketStatusResolved
		ticket.ApprovalStage = domain.ApprovalStageManager
		ticket.ResolutionSummary = strings.TrimSpace(summary)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.sla.RecordResolution(ctx, ticket.ID, s.clock.Now()); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventResolutionSubmitted,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.ResolutionSubmittedPayload{Summary: ticket.ResolutionSummary},
	})
	return ticket, nil
}

// ApproveByManager advances the approval workflow to the admin stage.
func (s *TicketService) ApproveByManager(ctx context.Context, actor *domain.Agent, ticketID, comment string) (*domain.Ticket, error) {
	if actor == nil || !actor.Role.AtLeast(domain.AgentRoleManager) {
		return nil, apperrors.NewForbidden("manager privilege required")
	}

	ticket, err := s.withTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status != domain.TicketStatusResolved || ticket.ApprovalStage != domain.ApprovalStageManager {
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "approve_by_manager"}
		}
		ticket.ApprovalStage = domain.ApprovalStageAdmin
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventResolutionApproved,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.ResolutionDecisionPayload{Stage: domain.ApprovalStageManager, Comment: comment},
	})
	return ticket, nil
}

// ApproveByAdmin closes the ticket. Closing is terminal.
func (s *TicketService) ApproveByAdmin(ctx context.Context, actor *domain.Agent, ticketID, comment string) (*domain.Ticket, error) {
	if actor == nil || actor.Role != domain.AgentRoleSuperAdmin {
		return nil, apperrors.NewForbidden("super admin privilege required")
	}

	ticket, err := s.withTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status != domain.TicketStatusResolved || ticket.ApprovalStage != domain.ApprovalStageAdmin {
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "approve_by_admin"}
		}
		now := s.clock.Now()
		ticket.Status = domain.TicketStatusClosed
		ticket.ApprovalStage = domain.ApprovalStageNone
		ticket.PreResolutionStatus = ""
		ticket.ClosedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventResolutionApproved,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.ResolutionDecisionPayload{Stage: domain.ApprovalStageAdmin, Comment: comment},
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
	})
	return ticket, nil
}

// RejectApproval returns the ticket to its pre-resolution status and
// clears the approval stage. Escalation level is untouched.
func (s *TicketService) RejectApproval(ctx context.Context, actor *domain.Agent, ticketID, reason string) (*domain.Ticket, error) {
	if actor == nil || !actor.Role.AtLeast(domain.AgentRoleManager) {
		return nil, apperrors.NewForbidden("manager privilege required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("rejection reason required", nil)
	}

	unlock := s.locks.acquire(ticketID)
	defer unlock()

	var stage domain.ApprovalStage
	ticket, err := s.applyTransition(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status != domain.TicketStatusResolved || ticket.ApprovalStage == domain.ApprovalStageNone {
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "reject_approval"}
		}
		stage = ticket.ApprovalStage
		destination := ticket.PreResolutionStatus
		if destination == "" || destination == domain.TicketStatusResolved {
			destination = domain.TicketStatusInProgress
		}
		ticket.Status = destination
		ticket.ApprovalStage = domain.ApprovalStageNone
		ticket.PreResolutionStatus = ""
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.sla.ClearResolution(ctx, ticket.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventResolutionRejected,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.ResolutionDecisionPayload{Stage: stage, Comment: reason},
	})
	return ticket, nil
}

// Escalate bumps the escalation level by exactly one, raises priority one
// step below CRITICAL and moves the ticket to ESCALATED. Legal from any
// non-closed status; invoked by the scheduler and by operators. Escalating
// an already-ESCALATED ticket is a re-entrant no-op, so racing callers
// produce exactly one level increment.
func (s *TicketService) Escalate(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	unlock := s.locks.acquire(ticketID)
	defer unlock()

	var payload events.TicketEscalatedPayload
	bumped := false
	ticket, err := s.applyTransition(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status.IsClosed() {
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "escalate"}
		}
		if ticket.Status == domain.TicketStatusEscalated {
			return false, nil
		}
		bumped = true
		ticket.EscalationLevel++
		if ticket.Priority != domain.TicketPriorityCritical {
			ticket.Priority = ticket.Priority.Bump()
		}
		ticket.Status = domain.TicketStatusEscalated
		ticket.ApprovalStage = domain.ApprovalStageNone
		ticket.PreResolutionStatus = ""
		payload = events.TicketEscalatedPayload{
			EscalationLevel: ticket.EscalationLevel,
			Priority:        ticket.Priority,
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !bumped {
		return ticket, nil
	}
	if err := s.sla.SetEscalationLevel(ctx, ticket.ID, ticket.EscalationLevel); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    events.Actor{System: true},
		Payload:  payload,
	})
	return ticket, nil
}

// ChangePriority updates the priority and recomputes pending SLA
// deadlines from the change instant forward.
func (s *TicketService) ChangePriority(ctx context.Context, actor *domain.Agent, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}

	unlock := s.locks.acquire(ticketID)
	defer unlock()

	var oldPriority domain.TicketPriority
	ticket, err := s.applyTransition(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.Status.IsClosed() {
			return false, &domain.IllegalTransitionError{From: ticket.Status, Event: "change_priority"}
		}
		if ticket.Priority == newPriority {
			return false, nil
		}
		oldPriority = ticket.Priority
		ticket.Priority = newPriority
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if oldPriority == "" {
		return ticket, nil
	}
	if _, err := s.sla.Recreate(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// RateSatisfaction records a customer rating on a closed ticket, once.
func (s *TicketService) RateSatisfaction(ctx context.Context, ticketID string, rating int) (*domain.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	unlock := s.locks.acquire(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !ticket.Status.IsClosed() {
		return nil, apperrors.NewConflict("ticket not closed", nil)
	}
	if ticket.SatisfactionRating != nil {
		return nil, apperrors.NewConflict("ticket already rated", nil)
	}
	ticket.SatisfactionRating = &rating
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, &domain.ConcurrentModificationError{TicketID: ticketID}
		}
		return nil, err
	}
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

// GetSlaClassification returns the current on-track/at-risk/violated view.
func (s *TicketService) GetSlaClassification(ctx context.Context, ticketID string) (domain.SlaClassification, error) {
	return s.sla.Reevaluate(ctx, ticketID, s.clock.Now())
}

// MarkSlaViolated flips the pending milestone's violation flag under the
// ticket's lock, so a milestone recorded at the same moment cannot be
// overwritten by the flag write. Reports whether the flag newly flipped.
func (s *TicketService) MarkSlaViolated(ctx context.Context, ticketID string, now time.Time) (bool, error) {
	unlock := s.locks.acquire(ticketID)
	defer unlock()
	return s.sla.MarkViolated(ctx, ticketID, now)
}

// withTicket serializes a mutating transition on one ticket: per-ticket
// lock, load, mutate, stamp lastActivityAt, optimistic save with bounded
// retry. A mutator returning (false, nil) is a re-entrant no-op and skips
// the save entirely. Transitions that also touch the SLA tracker acquire
// the lock themselves and call applyTransition, so ticket and tracker
// writes share one critical section.
func (s *TicketService) withTicket(ctx context.Context, ticketID string, mutate func(*domain.Ticket) (bool, error)) (*domain.Ticket, error) {
	unlock := s.locks.acquire(ticketID)
	defer unlock()
	return s.applyTransition(ctx, ticketID, mutate)
}

// applyTransition is withTicket's body; the caller must hold the
// ticket's lock.
func (s *TicketService) applyTransition(ctx context.Context, ticketID string, mutate func(*domain.Ticket) (bool, error)) (*domain.Ticket, error) {
	for attempt := 0; attempt < transitionRetries; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return nil, err
		}
		mutated, err := mutate(ticket)
		if err != nil {
			return nil, err
		}
		if !mutated {
			return ticket, nil
		}
		ticket.LastActivityAt = s.clock.Now()
		if err := s.tickets.Update(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		return ticket, nil
	}
	return nil, &domain.ConcurrentModificationError{TicketID: ticketID}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func actorOf(agent *domain.Agent) events.Actor {
	if agent == nil {
		return events.Actor{System: true}
	}
	id := agent.ID
	return events.Actor{AgentID: &id}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
