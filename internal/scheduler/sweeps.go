package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/service"
)

// Sweeper walks the active ticket set and applies SLA checks. A failure
// on one ticket is logged and skipped; the sweep continues.
type Sweeper struct {
	machine    *service.TicketService
	sla        *service.SlaService
	tickets    ticketLister
	dispatcher events.Dispatcher
	suppressor Suppressor
	clock      domain.Clock
	workers    int
	logger     *zap.Logger
}

type ticketLister interface {
	ListActive(ctx context.Context) ([]domain.Ticket, error)
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	Machine    *service.TicketService
	Sla        *service.SlaService
	Tickets    ticketLister
	Dispatcher events.Dispatcher
	Suppressor Suppressor
	Clock      domain.Clock
	Workers    int
	Logger     *zap.Logger
}

// NewSweeper constructs a sweeper.
func NewSweeper(deps SweeperDependencies) *Sweeper {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	if deps.Workers <= 0 {
		deps.Workers = 4
	}
	if deps.Suppressor == nil {
		deps.Suppressor = NoopSuppressor{}
	}
	return &Sweeper{
		machine:    deps.Machine,
		sla:        deps.Sla,
		tickets:    deps.Tickets,
		dispatcher: deps.Dispatcher,
		suppressor: deps.Suppressor,
		clock:      deps.Clock,
		workers:    deps.Workers,
		logger:     deps.Logger,
	}
}

// SweepViolations escalates every active ticket whose pending milestone
// has newly passed its deadline. Returns how many tickets escalated.
func (s *Sweeper) SweepViolations(ctx context.Context) (int, error) {
	now := s.clock.Now()
	escalated := 0
	var mu sync.Mutex

	err := s.forEachActive(ctx, "violation", func(ctx context.Context, ticket domain.Ticket) error {
		newly, err := s.machine.MarkSlaViolated(ctx, ticket.ID, now)
		if err != nil {
			return err
		}
		if !newly {
			return nil
		}
		observability.ViolationsDetected.Inc()
		if _, err := s.machine.Escalate(ctx, ticket.ID); err != nil {
			return err
		}
		observability.Escalations.Inc()
		mu.Lock()
		escalated++
		mu.Unlock()
		return nil
	})
	return escalated, err
}

// SweepRisks emits an at-risk notification for tickets whose pending
// deadline falls inside the risk window. No state transition happens.
func (s *Sweeper) SweepRisks(ctx context.Context) (int, error) {
	now := s.clock.Now()
	notified := 0
	var mu sync.Mutex

	err := s.forEachActive(ctx, "risk", func(ctx context.Context, ticket domain.Ticket) error {
		tracking, err := s.sla.GetTracking(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if tracking.Classify(now, s.sla.RiskWindow()) != domain.SlaAtRisk {
			return nil
		}
		notify, err := s.suppressor.ShouldNotify(ctx, ticket.ID)
		if err != nil || !notify {
			return err
		}
		deadline := tracking.PendingDeadline()
		if deadline == nil {
			return nil
		}
		observability.RiskNotifications.Inc()
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.Event{
				Type:      events.EventTicketSlaAtRisk,
				TicketID:  ticket.ID,
				Actor:     events.Actor{System: true},
				Timestamp: now,
				Payload:   events.TicketSlaAtRiskPayload{Deadline: *deadline},
			})
		}
		mu.Lock()
		notified++
		mu.Unlock()
		return nil
	})
	return notified, err
}

// forEachActive fans the active ticket list out over the worker pool.
// Panics and errors are contained per ticket.
func (s *Sweeper) forEachActive(ctx context.Context, sweep string, visit func(context.Context, domain.Ticket) error) error {
	tickets, err := s.tickets.ListActive(ctx)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, ticket := range tickets {
		if ctx.Err() != nil {
			break
		}
		ticket := ticket
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					observability.SweepTicketFailures.WithLabelValues(sweep).Inc()
					s.logger.Error("sweep panic",
						zap.String("sweep", sweep),
						zap.String("ticket_id", ticket.ID),
						zap.Any("panic", r),
					)
				}
			}()
			if err := visit(ctx, ticket); err != nil {
				observability.SweepTicketFailures.WithLabelValues(sweep).Inc()
				s.logger.Error("sweep ticket failed",
					zap.String("sweep", sweep),
					zap.String("ticket_id", ticket.ID),
					zap.Error(err),
				)
			}
		}()
	}
	wg.Wait()
	return nil
}
