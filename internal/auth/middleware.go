package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

const agentContextKey = "current_agent"

// Middleware verifies the bearer token and loads the agent into the
// request context.
func Middleware(tokens *TokenManager, agents repository.AgentRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return apperrors.NewUnauthorized("missing bearer token")
		}
		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		agent, err := agents.GetByID(c.Context(), claims.AgentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("unknown agent")
			}
			return err
		}
		if !agent.Active {
			return apperrors.NewUnauthorized("agent disabled")
		}
		c.Locals(agentContextKey, agent)
		return c.Next()
	}
}

// RequireRole rejects requests from agents below the minimum role.
func RequireRole(min domain.AgentRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent := AgentFromContext(c)
		if agent == nil || !agent.Role.AtLeast(min) {
			return apperrors.NewForbidden("insufficient privileges")
		}
		return c.Next()
	}
}

// AgentFromContext returns the authenticated agent, or nil.
func AgentFromContext(c *fiber.Ctx) *domain.Agent {
	agent, _ := c.Locals(agentContextKey).(*domain.Agent)
	return agent
}
