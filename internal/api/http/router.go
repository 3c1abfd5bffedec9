package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// RouterDependencies bundles everything the HTTP surface needs.
type RouterDependencies struct {
	Logger  *zap.Logger
	Tokens  *auth.TokenManager
	Agents  repository.AgentRepository
	Tickets *handlers.TicketsHandler
	Sla     *handlers.SlaHandler
	Auth    *handlers.AuthHandler
	Health  *handlers.HealthHandler
}

// NewApp builds the fiber application with all routes registered.
func NewApp(deps RouterDependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(deps.Logger),
	})

	app.Use(recover.New())
	app.Use(observability.RequestLogger(deps.Logger))

	app.Get("/health/live", deps.Health.Live)
	app.Get("/health/ready", deps.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/auth/agents/login", deps.Auth.Login)

	authenticated := auth.Middleware(deps.Tokens, deps.Agents)
	v1 := app.Group("/api/v1", authenticated)

	tickets := v1.Group("/tickets")
	tickets.Post("/", deps.Tickets.Create)
	tickets.Get("/:id", deps.Tickets.Get)
	tickets.Post("/:id/assign", deps.Tickets.Assign)
	tickets.Post("/:id/status", deps.Tickets.SetStatus)
	tickets.Post("/:id/first-response", deps.Tickets.FirstResponse)
	tickets.Post("/:id/resolve", deps.Tickets.Resolve)
	tickets.Post("/:id/approve/manager", auth.RequireRole(domain.AgentRoleManager), deps.Tickets.ApproveByManager)
	tickets.Post("/:id/approve/admin", auth.RequireRole(domain.AgentRoleSuperAdmin), deps.Tickets.ApproveByAdmin)
	tickets.Post("/:id/reject", auth.RequireRole(domain.AgentRoleManager), deps.Tickets.Reject)
	tickets.Post("/:id/escalate", auth.RequireRole(domain.AgentRoleManager), deps.Tickets.Escalate)
	tickets.Post("/:id/priority", deps.Tickets.ChangePriority)
	tickets.Post("/:id/rating", deps.Tickets.Rate)
	tickets.Get("/:id/sla", deps.Sla.TicketStatus)

	sla := v1.Group("/sla")
	sla.Post("/check", auth.RequireRole(domain.AgentRoleManager), deps.Sla.Check)
	sla.Post("/policies", auth.RequireRole(domain.AgentRoleManager), deps.Sla.CreatePolicy)
	sla.Put("/policies/:id", auth.RequireRole(domain.AgentRoleManager), deps.Sla.UpdatePolicy)
	sla.Get("/policies", deps.Sla.ListPolicies)

	return app
}

// errorHandler maps engine errors to their HTTP shape.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fiber.Map{"code": "HTTP_ERROR", "message": fe.Message},
			})
		}

		domainErr := apperrors.ToDomainError(err)
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.Error(err))
		}
		body := fiber.Map{"code": domainErr.Code, "message": domainErr.Message}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
	}
}
