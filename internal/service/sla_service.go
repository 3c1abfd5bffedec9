package service

import (
	"context"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// DefaultRiskWindow is the lead time within which a pending deadline
// counts as at risk.
const DefaultRiskWindow = 2 * time.Hour

// SlaService owns the per-ticket SLA tracking record: deadline
// computation, milestone recording and classification. Tracker writes
// are read-modify-write, so callers mutate a given ticket's record only
// through TicketService, which holds that ticket's lock.
type SlaService struct {
	tracking   repository.SlaTrackingRepository
	resolver   *sla.PolicyResolver
	deadlines  *sla.BusinessHoursClock
	clock      domain.Clock
	riskWindow time.Duration
}

// SlaDependencies bundles collaborators for the SLA service.
type SlaDependencies struct {
	TrackingRepo repository.SlaTrackingRepository
	Resolver     *sla.PolicyResolver
	Deadlines    *sla.BusinessHoursClock
	Clock        domain.Clock
	RiskWindow   time.Duration
}

// NewSlaService constructs the service.
func NewSlaService(deps SlaDependencies) *SlaService {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	if deps.RiskWindow <= 0 {
		deps.RiskWindow = DefaultRiskWindow
	}
	return &SlaService{
		tracking:   deps.TrackingRepo,
		resolver:   deps.Resolver,
		deadlines:  deps.Deadlines,
		clock:      deps.Clock,
		riskWindow: deps.RiskWindow,
	}
}

// ResolvePolicy returns the applicable policy for the ticket's scope.
func (s *SlaService) ResolvePolicy(ctx context.Context, ticket *domain.Ticket) (*domain.SlaPolicy, error) {
	return s.resolver.Resolve(ctx, ticket.CompanyID, ticket.DepartmentID, ticket.Priority)
}

// Create computes both deadlines from the ticket's creation instant and
// persists a fresh tracking record with zero-valued violation flags.
func (s *SlaService) Create(ctx context.Context, ticket *domain.Ticket) (*domain.SlaTracking, error) {
	policy, err := s.ResolvePolicy(ctx, ticket)
	if err != nil {
		return nil, err
	}
	start := ticket.CreatedAt
	if start.IsZero() {
		start = s.clock.Now()
	}
	firstResponse, err := s.deadlines.Deadline(start, policy.FirstResponseHours, policy)
	if err != nil {
		return nil, err
	}
	resolution, err := s.deadlines.Deadline(start, policy.ResolutionHours, policy)
	if err != nil {
		return nil, err
	}
	tracking := &domain.SlaTracking{
		TicketID:              ticket.ID,
		PolicyID:              policy.ID,
		FirstResponseDeadline: firstResponse,
		ResolutionDeadline:    resolution,
	}
	if err := s.tracking.Create(ctx, tracking); err != nil {
		return nil, err
	}
	return tracking, nil
}

// Recreate recomputes deadlines after a priority change. Deadlines run
// from the change instant forward, and already-satisfied milestones keep
// their original deadline and verdict.
func (s *SlaService) Recreate(ctx context.Context, ticket *domain.Ticket) (*domain.SlaTracking, error) {
	tracking, err := s.tracking.GetByTicketID(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	policy, err := s.ResolvePolicy(ctx, ticket)
	if err != nil {
		return nil, err
	}
	from := s.clock.Now()
	if tracking.FirstResponseAt == nil {
		deadline, err := s.deadlines.Deadline(from, policy.FirstResponseHours, policy)
		if err != nil {
			return nil, err
		}
		tracking.FirstResponseDeadline = deadline
		tracking.FirstResponseViolated = false
	}
	if tracking.ResolvedAt == nil {
		deadline, err := s.deadlines.Deadline(from, policy.ResolutionHours, policy)
		if err != nil {
			return nil, err
		}
		tracking.ResolutionDeadline = deadline
		tracking.ResolutionViolated = false
	}
	tracking.PolicyID = policy.ID
	if err := s.tracking.Update(ctx, tracking); err != nil {
		return nil, err
	}
	return tracking, nil
}

// RecordFirstResponse sets the first-response timestamp once. A second
// call is a no-op, not an error, so the first verdict sticks.
func (s *SlaService) RecordFirstResponse(ctx context.Context, ticketID string, at time.Time) error {
	tracking, err := s.tracking.GetByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if tracking.FirstResponseAt != nil {
		return nil
	}
	tracking.FirstResponseAt = &at
	tracking.FirstResponseViolated = at.After(tracking.FirstResponseDeadline)
	return s.tracking.Update(ctx, tracking)
}

// RecordResolution sets the resolution timestamp once, idempotently.
func (s *SlaService) RecordResolution(ctx context.Context, ticketID string, at time.Time) error {
	tracking, err := s.tracking.GetByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if tracking.ResolvedAt != nil {
		return nil
	}
	tracking.ResolvedAt = &at
	tracking.ResolutionViolated = at.After(tracking.ResolutionDeadline)
	return s.tracking.Update(ctx, tracking)
}

// ClearResolution reopens the resolution milestone after a rejected
// approval, so the resolution deadline is pending again.
func (s *SlaService) ClearResolution(ctx context.Context, ticketID string) error {
	tracking, err := s.tracking.GetByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if tracking.ResolvedAt == nil {
		return nil
	}
	tracking.ResolvedAt = nil
	tracking.ResolutionViolated = false
	return s.tracking.Update(ctx, tracking)
}

// Reevaluate is the pure read used by the scheduler and dashboards.
func (s *SlaService) Reevaluate(ctx context.Context, ticketID string, now time.Time) (domain.SlaClassification, error) {
	tracking, err := s.tracking.GetByTicketID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return tracking.Classify(now, s.riskWindow), nil
}

// MarkViolated persists the derived violation flag for the pending
// milestone and reports whether it newly flipped. The flip is what makes
// repeated violation sweeps escalate a breached ticket exactly once.
func (s *SlaService) MarkViolated(ctx context.Context, ticketID string, now time.Time) (bool, error) {
	tracking, err := s.tracking.GetByTicketID(ctx, ticketID)
	if err != nil {
		return false, err
	}
	newly := false
	if tracking.FirstResponseAt == nil {
		if now.After(tracking.FirstResponseDeadline) && !tracking.FirstResponseViolated {
			tracking.FirstResponseViolated = true
			newly = true
		}
	} else if tracking.ResolvedAt == nil {
		if now.After(tracking.ResolutionDeadline) && !tracking.ResolutionViolated {
			tracking.ResolutionViolated = true
			newly = true
		}
	}
	if !newly {
		return false, nil
	}
	if err := s.tracking.Update(ctx, tracking); err != nil {
		return false, err
	}
	return true, nil
}

// SetEscalationLevel mirrors the ticket's escalation level on the tracker.
func (s *SlaService) SetEscalationLevel(ctx context.Context, ticketID string, level int) error {
	tracking, err := s.tracking.GetByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if tracking.EscalationLevel == level {
		return nil
	}
	tracking.EscalationLevel = level
	return s.tracking.Update(ctx, tracking)
}

// GetTracking returns the tracking record for a ticket.
func (s *SlaService) GetTracking(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	return s.tracking.GetByTicketID(ctx, ticketID)
}

// RiskWindow exposes the configured risk lead time.
func (s *SlaService) RiskWindow() time.Duration {
	return s.riskWindow
}
