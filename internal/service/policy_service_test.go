package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func TestPolicyCreateRejectsInvalidConfiguration(t *testing.T) {
	env := newTestEnv(t)
	policies := NewPolicyService(env.policyRepo)

	cases := []struct {
		name   string
		policy *domain.SlaPolicy
	}{
		{"zero target hours", &domain.SlaPolicy{
			CompanyID: "acme", Priority: domain.TicketPriorityNormal,
			FirstResponseHours: 0, ResolutionHours: 48,
		}},
		{"unknown priority", &domain.SlaPolicy{
			CompanyID: "acme", Priority: "URGENT-ISH",
			FirstResponseHours: 4, ResolutionHours: 48,
		}},
		{"zero-width business window", &domain.SlaPolicy{
			CompanyID: "acme", Priority: domain.TicketPriorityNormal,
			FirstResponseHours: 4, ResolutionHours: 48,
			BusinessHoursOnly: true, BusinessStartHour: 17, BusinessEndHour: 9,
		}},
		{"seven weekend days", &domain.SlaPolicy{
			CompanyID: "acme", Priority: domain.TicketPriorityNormal,
			FirstResponseHours: 4, ResolutionHours: 48,
			BusinessHoursOnly: true, BusinessStartHour: 9, BusinessEndHour: 17,
			WeekendDays: []time.Weekday{0, 1, 2, 3, 4, 5, 6},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := policies.Create(context.Background(), tc.policy)
			var invalid *domain.InvalidPolicyConfigurationError
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestPolicyCreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	policies := NewPolicyService(env.policyRepo)

	policy, err := policies.Create(context.Background(), &domain.SlaPolicy{
		CompanyID: "acme", Priority: domain.TicketPriorityHigh,
		FirstResponseHours: 2, ResolutionHours: 24, Active: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, policy.ID)

	policy.ResolutionHours = 16
	updated, err := policies.Update(context.Background(), policy)
	require.NoError(t, err)
	assert.Equal(t, 16, updated.ResolutionHours)

	fetched, err := policies.GetByID(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, fetched.ResolutionHours)
}

func TestPolicyUpdateUnknownID(t *testing.T) {
	env := newTestEnv(t)
	policies := NewPolicyService(env.policyRepo)

	_, err := policies.Update(context.Background(), &domain.SlaPolicy{
		ID: "missing", CompanyID: "acme", Priority: domain.TicketPriorityHigh,
		FirstResponseHours: 2, ResolutionHours: 24,
	})
	require.Error(t, err)
}
