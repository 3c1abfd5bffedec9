package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/scheduler"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// SlaHandler serves SLA tracking, policy administration and the
// on-demand violation check.
type SlaHandler struct {
	tickets  *service.TicketService
	sla      *service.SlaService
	policies *service.PolicyService
	sched    *scheduler.Scheduler
}

// NewSlaHandler constructs the handler.
func NewSlaHandler(tickets *service.TicketService, sla *service.SlaService, policies *service.PolicyService, sched *scheduler.Scheduler) *SlaHandler {
	return &SlaHandler{tickets: tickets, sla: sla, policies: policies, sched: sched}
}

// TicketStatus returns a ticket's deadlines and live classification.
func (h *SlaHandler) TicketStatus(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	tracking, err := h.sla.GetTracking(c.Context(), ticketID)
	if err != nil {
		return err
	}
	classification, err := h.tickets.GetSlaClassification(c.Context(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SlaStatusResponse{
		TicketID:              ticketID,
		Classification:        string(classification),
		FirstResponseDeadline: tracking.FirstResponseDeadline,
		ResolutionDeadline:    tracking.ResolutionDeadline,
		FirstResponseAt:       tracking.FirstResponseAt,
		ResolvedAt:            tracking.ResolvedAt,
		FirstResponseViolated: tracking.FirstResponseViolated,
		ResolutionViolated:    tracking.ResolutionViolated,
		EscalationLevel:       tracking.EscalationLevel,
	})
}

// Check triggers the violation sweep on demand.
func (h *SlaHandler) Check(c *fiber.Ctx) error {
	if err := h.sched.RunViolationSweep(c.Context()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// CreatePolicy validates and stores a new policy.
func (h *SlaHandler) CreatePolicy(c *fiber.Ctx) error {
	var req dto.SavePolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	policy, err := h.policies.Create(c.Context(), req.ToPolicy())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromPolicy(policy))
}

// UpdatePolicy validates and updates an existing policy.
func (h *SlaHandler) UpdatePolicy(c *fiber.Ctx) error {
	var req dto.SavePolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	policy := req.ToPolicy()
	policy.ID = c.Params("id")
	updated, err := h.policies.Update(c.Context(), policy)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromPolicy(updated))
}

// ListPolicies lists a company's policies.
func (h *SlaHandler) ListPolicies(c *fiber.Ctx) error {
	companyID := c.Query("company_id")
	if companyID == "" {
		return apperrors.NewValidationError("company_id query parameter required", nil)
	}
	policies, err := h.policies.ListByCompany(c.Context(), companyID)
	if err != nil {
		return err
	}
	out := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		out = append(out, dto.FromPolicy(&policies[i]))
	}
	return c.JSON(out)
}
