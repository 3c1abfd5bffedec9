package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// MemoryTicketRepository is an in-memory TicketRepository used by tests
// and local development without a database.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	nextID  int
}

// NewMemoryTicketRepository creates an empty in-memory repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*domain.Ticket), nextID: 1}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	r.nextID++
	ticket.Version = 1
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *MemoryTicketRepository) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.tickets {
		if stored.Number == number {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryTicketRepository) ListActive(_ context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, stored := range r.tickets {
		if !stored.Status.IsClosed() {
			result = append(result, *stored)
		}
	}
	return result, nil
}

func (r *MemoryTicketRepository) CountCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, stored := range r.tickets {
		if !stored.CreatedAt.Before(from) && stored.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// MemorySlaPolicyRepository is an in-memory SlaPolicyRepository.
type MemorySlaPolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]*domain.SlaPolicy
	nextID   int
}

// NewMemorySlaPolicyRepository creates an empty in-memory repository.
func NewMemorySlaPolicyRepository() *MemorySlaPolicyRepository {
	return &MemorySlaPolicyRepository{policies: make(map[string]*domain.SlaPolicy), nextID: 1}
}

func (r *MemorySlaPolicyRepository) Create(_ context.Context, policy *domain.SlaPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	policy.ID = fmt.Sprintf("policy-%d", r.nextID)
	r.nextID++
	now := time.Now()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	clone := *policy
	r.policies[policy.ID] = &clone
	return nil
}

func (r *MemorySlaPolicyRepository) Update(_ context.Context, policy *domain.SlaPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[policy.ID]; !ok {
		return ErrNotFound
	}
	policy.UpdatedAt = time.Now()
	clone := *policy
	r.policies[policy.ID] = &clone
	return nil
}

func (r *MemorySlaPolicyRepository) GetByID(_ context.Context, id string) (*domain.SlaPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *MemorySlaPolicyRepository) ListByCompany(_ context.Context, companyID string) ([]domain.SlaPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.SlaPolicy
	for _, stored := range r.policies {
		if stored.CompanyID == companyID {
			result = append(result, *stored)
		}
	}
	return result, nil
}

func (r *MemorySlaPolicyRepository) FindScoped(_ context.Context, companyID string, departmentID *string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.policies {
		if !stored.Active || stored.CompanyID != companyID || stored.Priority != priority {
			continue
		}
		if departmentID == nil && stored.DepartmentID == nil {
			clone := *stored
			return &clone, nil
		}
		if departmentID != nil && stored.DepartmentID != nil && *departmentID == *stored.DepartmentID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// MemorySlaTrackingRepository is an in-memory SlaTrackingRepository.
type MemorySlaTrackingRepository struct {
	mu       sync.RWMutex
	tracking map[string]*domain.SlaTracking // keyed by ticket id
	created  map[string]time.Time           // ticket creation times for report counting
	nextID   int
}

// NewMemorySlaTrackingRepository creates an empty in-memory repository.
func NewMemorySlaTrackingRepository() *MemorySlaTrackingRepository {
	return &MemorySlaTrackingRepository{
		tracking: make(map[string]*domain.SlaTracking),
		created:  make(map[string]time.Time),
		nextID:   1,
	}
}

func (r *MemorySlaTrackingRepository) Create(_ context.Context, tracking *domain.SlaTracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tracking[tracking.TicketID]; ok {
		tracking.ID = existing.ID
		tracking.CreatedAt = existing.CreatedAt
	} else {
		tracking.ID = fmt.Sprintf("tracking-%d", r.nextID)
		r.nextID++
		tracking.CreatedAt = time.Now()
	}
	tracking.UpdatedAt = time.Now()
	clone := *tracking
	r.tracking[tracking.TicketID] = &clone
	return nil
}

func (r *MemorySlaTrackingRepository) Update(_ context.Context, tracking *domain.SlaTracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracking[tracking.TicketID]; !ok {
		return ErrNotFound
	}
	tracking.UpdatedAt = time.Now()
	clone := *tracking
	r.tracking[tracking.TicketID] = &clone
	return nil
}

func (r *MemorySlaTrackingRepository) GetByTicketID(_ context.Context, ticketID string) (*domain.SlaTracking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.tracking[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

// SetTicketCreatedAt registers a creation time used by CountViolatedBetween.
func (r *MemorySlaTrackingRepository) SetTicketCreatedAt(ticketID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[ticketID] = at
}

func (r *MemorySlaTrackingRepository) CountViolatedBetween(_ context.Context, from, to time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for ticketID, stored := range r.tracking {
		createdAt, ok := r.created[ticketID]
		if !ok {
			createdAt = stored.CreatedAt
		}
		if createdAt.Before(from) || !createdAt.Before(to) {
			continue
		}
		if stored.FirstResponseViolated || stored.ResolutionViolated {
			count++
		}
	}
	return count, nil
}

// MemoryAgentRepository is an in-memory AgentRepository.
type MemoryAgentRepository struct {
	mu     sync.RWMutex
	agents map[string]*domain.Agent
	nextID int
}

// NewMemoryAgentRepository creates an empty in-memory repository.
func NewMemoryAgentRepository() *MemoryAgentRepository {
	return &MemoryAgentRepository{agents: make(map[string]*domain.Agent), nextID: 1}
}

func (r *MemoryAgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent.ID == "" {
		agent.ID = fmt.Sprintf("agent-%d", r.nextID)
		r.nextID++
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	clone := *agent
	r.agents[agent.ID] = &clone
	return nil
}

func (r *MemoryAgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *MemoryAgentRepository) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.agents {
		if strings.EqualFold(stored.Email, email) {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}
