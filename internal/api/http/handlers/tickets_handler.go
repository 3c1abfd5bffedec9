package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	actor := auth.AgentFromContext(c)
	creatorID := req.CustomerID
	if actor != nil {
		creatorID = actor.ID
	}
	ticket, tracking, err := h.tickets.CreateTicket(c.Context(), service.TicketCreateInput{
		CompanyID:    req.CompanyID,
		DepartmentID: req.DepartmentID,
		CustomerID:   req.CustomerID,
		CreatorID:    creatorID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ticket": dto.FromTicket(ticket),
		"sla": fiber.Map{
			"first_response_deadline": tracking.FirstResponseDeadline,
			"resolution_deadline":     tracking.ResolutionDeadline,
		},
	})
}

func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), auth.AgentFromContext(c), c.Params("id"), req.AssigneeAgentID)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.SetStatus(c.Context(), auth.AgentFromContext(c), c.Params("id"), domain.TicketStatus(req.Status), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) FirstResponse(c *fiber.Ctx) error {
	if err := h.tickets.RecordFirstResponse(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.ResolveForApproval(c.Context(), auth.AgentFromContext(c), c.Params("id"), req.Summary)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) ApproveByManager(c *fiber.Ctx) error {
	var req dto.ApprovalDecisionRequest
	_ = c.BodyParser(&req)
	ticket, err := h.tickets.ApproveByManager(c.Context(), auth.AgentFromContext(c), c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) ApproveByAdmin(c *fiber.Ctx) error {
	var req dto.ApprovalDecisionRequest
	_ = c.BodyParser(&req)
	ticket, err := h.tickets.ApproveByAdmin(c.Context(), auth.AgentFromContext(c), c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	var req dto.RejectApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.RejectApproval(c.Context(), auth.AgentFromContext(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	ticket, err := h.tickets.Escalate(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) ChangePriority(c *fiber.Ctx) error {
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.ChangePriority(c.Context(), auth.AgentFromContext(c), c.Params("id"), domain.TicketPriority(req.Priority))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

func (h *TicketsHandler) Rate(c *fiber.Ctx) error {
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.RateSatisfaction(c.Context(), c.Params("id"), req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}
