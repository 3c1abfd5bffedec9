package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// fakeClock is a settable clock for deterministic deadline tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires the services over in-memory repositories.
type testEnv struct {
	clock      *fakeClock
	dispatcher *recordingDispatcher
	ticketRepo *repository.MemoryTicketRepository
	trackRepo  *repository.MemorySlaTrackingRepository
	policyRepo *repository.MemorySlaPolicyRepository
	agentRepo  *repository.MemoryAgentRepository
	slaSvc     *SlaService
	ticketSvc  *TicketService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)) // Monday
	ticketRepo := repository.NewMemoryTicketRepository()
	trackRepo := repository.NewMemorySlaTrackingRepository()
	policyRepo := repository.NewMemorySlaPolicyRepository()
	agentRepo := repository.NewMemoryAgentRepository()
	dispatcher := &recordingDispatcher{}

	slaSvc := NewSlaService(SlaDependencies{
		TrackingRepo: trackRepo,
		Resolver:     sla.NewPolicyResolver(policyRepo),
		Deadlines:    sla.NewBusinessHoursClock(nil),
		Clock:        clock,
	})
	ticketSvc := NewTicketService(TicketDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Sla:        slaSvc,
		Dispatcher: dispatcher,
		Clock:      clock,
	})
	return &testEnv{
		clock:      clock,
		dispatcher: dispatcher,
		ticketRepo: ticketRepo,
		trackRepo:  trackRepo,
		policyRepo: policyRepo,
		agentRepo:  agentRepo,
		slaSvc:     slaSvc,
		ticketSvc:  ticketSvc,
	}
}

func (e *testEnv) addPolicy(t *testing.T, priority domain.TicketPriority, firstResponseHours, resolutionHours int) *domain.SlaPolicy {
	t.Helper()
	policy := &domain.SlaPolicy{
		CompanyID:          "acme",
		Priority:           priority,
		FirstResponseHours: firstResponseHours,
		ResolutionHours:    resolutionHours,
		Active:             true,
	}
	require.NoError(t, e.policyRepo.Create(context.Background(), policy))
	return policy
}

func (e *testEnv) addAgent(t *testing.T, role domain.AgentRole) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		CompanyID: "acme",
		Name:      "Sam",
		Email:     string(role) + "@acme.test",
		Role:      role,
		Active:    true,
	}
	require.NoError(t, e.agentRepo.Create(context.Background(), agent))
	return agent
}

func (e *testEnv) createTicket(t *testing.T, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, _, err := e.ticketSvc.CreateTicket(context.Background(), TicketCreateInput{
		CompanyID:   "acme",
		CustomerID:  "cust-1",
		CreatorID:   "cust-1",
		Title:       "printer on fire",
		Description: "it is very much on fire",
		Priority:    priority,
	})
	require.NoError(t, err)
	e.trackRepo.SetTicketCreatedAt(ticket.ID, ticket.CreatedAt)
	return ticket
}
