package service

import (
	"context"
	"errors"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// PolicyService administers SLA policies. Validation happens at save so
// an invalid configuration is rejected before any ticket depends on it.
type PolicyService struct {
	policies repository.SlaPolicyRepository
}

// NewPolicyService constructs the service.
func NewPolicyService(policies repository.SlaPolicyRepository) *PolicyService {
	return &PolicyService{policies: policies}
}

// Create validates and persists a new policy.
func (s *PolicyService) Create(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// Update validates and persists changes to an existing policy.
func (s *PolicyService) Update(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policy.ID})
		}
		return nil, err
	}
	return policy, nil
}

// GetByID fetches a policy.
func (s *PolicyService) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"policy_id": id})
		}
		return nil, err
	}
	return policy, nil
}

// ListByCompany lists a company's policies.
func (s *PolicyService) ListByCompany(ctx context.Context, companyID string) ([]domain.SlaPolicy, error) {
	return s.policies.ListByCompany(ctx, companyID)
}
