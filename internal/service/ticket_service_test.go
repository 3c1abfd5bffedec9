package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

func TestCreateTicketRequiresPolicy(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.ticketSvc.CreateTicket(context.Background(), TicketCreateInput{
		CompanyID:  "acme",
		CustomerID: "cust-1",
		CreatorID:  "cust-1",
		Title:      "no policy yet",
	})
	var notFound *domain.PolicyNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCreateTicketStartsNew(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)

	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.ApprovalStageNone, ticket.ApprovalStage)
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, ticket.Number)
	assert.Len(t, env.dispatcher.ofType(events.EventTicketCreated), 1)
}

func TestAssignMovesNewToOpen(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)

	updated, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, agent.ID, *updated.AssigneeID)

	// Assign is only legal from NEW.
	_, err = env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, domain.TicketStatusOpen, illegal.From)
}

func TestAssignRejectsForeignAgent(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)

	outsider := &domain.Agent{CompanyID: "other-co", Name: "Eve", Email: "eve@other.test", Role: domain.AgentRoleAgent, Active: true}
	require.NoError(t, env.agentRepo.Create(context.Background(), outsider))

	_, err := env.ticketSvc.Assign(context.Background(), outsider, ticket.ID, outsider.ID)
	require.Error(t, err)
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)

	_, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	updated, err := env.ticketSvc.SetStatus(context.Background(), agent, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	before := updated.LastActivityAt

	env.clock.Advance(time.Hour)
	again, err := env.ticketSvc.SetStatus(context.Background(), agent, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, before, again.LastActivityAt, "re-entrant status set must not bump activity")
}

func TestSetStatusIllegalFromNew(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)

	_, err := env.ticketSvc.SetStatus(context.Background(), nil, ticket.ID, domain.TicketStatusInProgress, "")
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestApprovalWorkflowHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)
	manager := env.addAgent(t, domain.AgentRoleManager)
	admin := env.addAgent(t, domain.AgentRoleSuperAdmin)

	_, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.SetStatus(context.Background(), agent, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)

	resolved, err := env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "replaced the fuser")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, domain.ApprovalStageManager, resolved.ApprovalStage)
	assert.Equal(t, domain.TicketStatusInProgress, resolved.PreResolutionStatus)

	staged, err := env.ticketSvc.ApproveByManager(context.Background(), manager, ticket.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStageAdmin, staged.ApprovalStage)

	closed, err := env.ticketSvc.ApproveByAdmin(context.Background(), admin, ticket.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Equal(t, domain.ApprovalStageNone, closed.ApprovalStage)
	require.NotNil(t, closed.ClosedAt)
	assert.Len(t, env.dispatcher.ofType(events.EventTicketClosed), 1)
}

func TestApproveByManagerRequiresRole(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)

	_, err := env.ticketSvc.ApproveByManager(context.Background(), agent, ticket.ID, "")
	require.Error(t, err)
}

func TestAdminCannotSkipManagerStage(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)
	admin := env.addAgent(t, domain.AgentRoleSuperAdmin)

	_, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "done")
	require.NoError(t, err)

	_, err = env.ticketSvc.ApproveByAdmin(context.Background(), admin, ticket.ID, "")
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestRejectReturnsToPreResolutionStatus(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)
	manager := env.addAgent(t, domain.AgentRoleManager)

	_, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.SetStatus(context.Background(), agent, ticket.ID, domain.TicketStatusPending, "")
	require.NoError(t, err)
	_, err = env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "done")
	require.NoError(t, err)

	rejected, err := env.ticketSvc.RejectApproval(context.Background(), manager, ticket.ID, "incomplete fix")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, rejected.Status)
	assert.Equal(t, domain.ApprovalStageNone, rejected.ApprovalStage)
	assert.Equal(t, domain.TicketStatus(""), rejected.PreResolutionStatus)

	// Resolution milestone reopened.
	tracking, err := env.slaSvc.GetTracking(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, tracking.ResolvedAt)

	// The workflow restarts from scratch: no dangling manager approval.
	_, err = env.ticketSvc.ApproveByManager(context.Background(), manager, ticket.ID, "")
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	manager := env.addAgent(t, domain.AgentRoleManager)

	_, err := env.ticketSvc.RejectApproval(context.Background(), manager, ticket.ID, "   ")
	require.Error(t, err)
}

func TestEscalateBumpsLevelAndPriority(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)

	escalated, err := env.ticketSvc.Escalate(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, escalated.EscalationLevel)
	assert.Equal(t, domain.TicketPriorityHigh, escalated.Priority)
	assert.Equal(t, domain.TicketStatusEscalated, escalated.Status)

	tracking, err := env.slaSvc.GetTracking(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tracking.EscalationLevel)
}

func TestEscalateCapsAtCritical(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityCritical, 1, 8)
	ticket := env.createTicket(t, domain.TicketPriorityCritical)

	escalated, err := env.ticketSvc.Escalate(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, escalated.Priority)
	assert.Equal(t, 1, escalated.EscalationLevel)
}

func TestEscalateClosedTicketIsIllegal(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)
	manager := env.addAgent(t, domain.AgentRoleManager)
	admin := env.addAgent(t, domain.AgentRoleSuperAdmin)

	_, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "done")
	require.NoError(t, err)
	_, err = env.ticketSvc.ApproveByManager(context.Background(), manager, ticket.ID, "")
	require.NoError(t, err)
	_, err = env.ticketSvc.ApproveByAdmin(context.Background(), admin, ticket.ID, "")
	require.NoError(t, err)

	_, err = env.ticketSvc.Escalate(context.Background(), ticket.ID)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestEscalateClearsPendingApproval(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)

	_, err := env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "done")
	require.NoError(t, err)

	escalated, err := env.ticketSvc.Escalate(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, escalated.Status)
	assert.Equal(t, domain.ApprovalStageNone, escalated.ApprovalStage)
}

func TestConcurrentEscalationsSerialize(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ticketSvc.Escalate(context.Background(), ticket.ID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	final, err := env.ticketSvc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, final.EscalationLevel, "racing escalations produce exactly one increment")
	assert.Len(t, env.dispatcher.ofType(events.EventTicketEscalated), 1)
}

func TestEscalatedTicketCanBeWorkedAndReescalated(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)
	agent := env.addAgent(t, domain.AgentRoleAgent)

	_, err := env.ticketSvc.Escalate(context.Background(), ticket.ID)
	require.NoError(t, err)

	// Working the escalated ticket brings it back to IN_PROGRESS; a later
	// escalation then counts again.
	_, err = env.ticketSvc.SetStatus(context.Background(), agent, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	again, err := env.ticketSvc.Escalate(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.EscalationLevel)

	// Escalated tickets can still enter the approval workflow.
	_, err = env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "fixed under pressure")
	require.NoError(t, err)
	resolved, err := env.ticketSvc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, domain.TicketStatusEscalated, resolved.PreResolutionStatus)
}

func TestChangePrioritySameValueIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)

	tracking, err := env.slaSvc.GetTracking(context.Background(), ticket.ID)
	require.NoError(t, err)
	before := tracking.ResolutionDeadline

	env.clock.Advance(time.Hour)
	_, err = env.ticketSvc.ChangePriority(context.Background(), nil, ticket.ID, domain.TicketPriorityNormal)
	require.NoError(t, err)

	tracking, err = env.slaSvc.GetTracking(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, before, tracking.ResolutionDeadline, "no recompute on identical priority")
	assert.Empty(t, env.dispatcher.ofType(events.EventTicketPriorityChanged))
}

func TestRateSatisfaction(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	ticket := env.createTicket(t, domain.TicketPriorityNormal)

	// Not closed yet.
	_, err := env.ticketSvc.RateSatisfaction(context.Background(), ticket.ID, 4)
	require.Error(t, err)

	agent := env.addAgent(t, domain.AgentRoleAgent)
	manager := env.addAgent(t, domain.AgentRoleManager)
	admin := env.addAgent(t, domain.AgentRoleSuperAdmin)
	_, err = env.ticketSvc.Assign(context.Background(), agent, ticket.ID, agent.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.ResolveForApproval(context.Background(), agent, ticket.ID, "done")
	require.NoError(t, err)
	_, err = env.ticketSvc.ApproveByManager(context.Background(), manager, ticket.ID, "")
	require.NoError(t, err)
	_, err = env.ticketSvc.ApproveByAdmin(context.Background(), admin, ticket.ID, "")
	require.NoError(t, err)

	rated, err := env.ticketSvc.RateSatisfaction(context.Background(), ticket.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, rated.SatisfactionRating)
	assert.Equal(t, 4, *rated.SatisfactionRating)

	// Only once.
	_, err = env.ticketSvc.RateSatisfaction(context.Background(), ticket.ID, 5)
	require.Error(t, err)
}

// trackingRepoWithGetHook lets a test interleave work between a tracker
// read and the write that follows it.
type trackingRepoWithGetHook struct {
	repository.SlaTrackingRepository
	onGet func(ticketID string)
}

func (r *trackingRepoWithGetHook) GetByTicketID(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	if r.onGet != nil {
		r.onGet(ticketID)
	}
	return r.SlaTrackingRepository.GetByTicketID(ctx, ticketID)
}

func TestFirstResponseSurvivesConcurrentViolationSweep(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	ticketRepo := repository.NewMemoryTicketRepository()
	trackRepo := repository.NewMemorySlaTrackingRepository()
	policyRepo := repository.NewMemorySlaPolicyRepository()
	hooked := &trackingRepoWithGetHook{SlaTrackingRepository: trackRepo}

	slaSvc := NewSlaService(SlaDependencies{
		TrackingRepo: hooked,
		Resolver:     sla.NewPolicyResolver(policyRepo),
		Deadlines:    sla.NewBusinessHoursClock(nil),
		Clock:        clock,
	})
	ticketSvc := NewTicketService(TicketDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  repository.NewMemoryAgentRepository(),
		Sla:        slaSvc,
		Clock:      clock,
	})

	require.NoError(t, policyRepo.Create(context.Background(), &domain.SlaPolicy{
		CompanyID:          "acme",
		Priority:           domain.TicketPriorityNormal,
		FirstResponseHours: 4,
		ResolutionHours:    24,
		Active:             true,
	}))
	ticket, _, err := ticketSvc.CreateTicket(context.Background(), TicketCreateInput{
		CompanyID:  "acme",
		CustomerID: "cust-1",
		CreatorID:  "cust-1",
		Title:      "printer on fire",
	})
	require.NoError(t, err)

	clock.Advance(6 * time.Hour) // past the first-response deadline

	// While the violation flag is being flipped, an agent records the
	// first response on another goroutine. The per-ticket lock must make
	// the recording wait instead of letting the flag write clobber it.
	var once sync.Once
	var wg sync.WaitGroup
	responded := make(chan error, 1)
	hooked.onGet = func(string) {
		once.Do(func() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				responded <- ticketSvc.RecordFirstResponse(context.Background(), ticket.ID)
			}()
			time.Sleep(50 * time.Millisecond)
		})
	}

	newly, err := ticketSvc.MarkSlaViolated(context.Background(), ticket.ID, clock.Now())
	require.NoError(t, err)
	assert.True(t, newly)

	wg.Wait()
	require.NoError(t, <-responded)

	tracking, err := trackRepo.GetByTicketID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, tracking.FirstResponseAt)
	assert.True(t, tracking.FirstResponseViolated)
}
