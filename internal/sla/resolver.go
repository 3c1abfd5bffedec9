package sla

import (
	"context"
	"errors"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// PolicyResolver selects the applicable SLA policy for a
// (company, department, priority) triple.
type PolicyResolver struct {
	policies repository.SlaPolicyRepository
}

// NewPolicyResolver constructs the resolver.
func NewPolicyResolver(policies repository.SlaPolicyRepository) *PolicyResolver {
	return &PolicyResolver{policies: policies}
}

// Resolve applies the precedence order: a department-specific policy beats
// the company-wide default for the same priority. When neither exists the
// caller gets PolicyNotFoundError; no default policy is invented here, so
// misconfiguration surfaces instead of being masked.
func (r *PolicyResolver) Resolve(ctx context.Context, companyID string, departmentID *string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	if departmentID != nil {
		policy, err := r.policies.FindScoped(ctx, companyID, departmentID, priority)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	policy, err := r.policies.FindScoped(ctx, companyID, nil, priority)
	if err == nil {
		return policy, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &domain.PolicyNotFoundError{
			CompanyID:    companyID,
			DepartmentID: departmentID,
			Priority:     priority,
		}
	}
	return nil, err
}
