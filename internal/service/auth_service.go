package service

import (
	"context"
	"errors"

	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// AuthService authenticates agents and issues access tokens.
type AuthService struct {
	agents repository.AgentRepository
	tokens *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(agents repository.AgentRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{agents: agents, tokens: tokens}
}

// Login verifies credentials and returns a signed token with the agent.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Agent, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", nil, err
	}
	if !agent.Active {
		return "", nil, apperrors.NewUnauthorized("agent disabled")
	}
	if !auth.CheckPassword(agent.PasswordHash, password) {
		return "", nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.tokens.Generate(agent)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return token, agent, nil
}

// Register creates an agent with a hashed password.
func (s *AuthService) Register(ctx context.Context, agent *domain.Agent, password string) error {
	if len(password) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	agent.PasswordHash = hash
	agent.Active = true
	return s.agents.Create(ctx, agent)
}
