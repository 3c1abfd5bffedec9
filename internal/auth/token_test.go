package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func testAgent() *domain.Agent {
	return &domain.Agent{
		ID:        "agent-1",
		CompanyID: "acme",
		Role:      domain.AgentRoleManager,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour, "sla-engine")

	token, err := manager.Generate(testAgent())
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.Equal(t, "acme", claims.CompanyID)
	assert.Equal(t, domain.AgentRoleManager, claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour, "sla-engine").Generate(testAgent())
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour, "sla-engine").Verify(token)
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute, "sla-engine")
	token, err := manager.Generate(testAgent())
	require.NoError(t, err)

	_, err = manager.Verify(token)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
