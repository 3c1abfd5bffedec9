package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent      AgentRole = "AGENT"
	AgentRoleManager    AgentRole = "MANAGER"
	AgentRoleSuperAdmin AgentRole = "SUPER_ADMIN"
)

var roleRank = map[AgentRole]int{
	AgentRoleAgent:      1,
	AgentRoleManager:    2,
	AgentRoleSuperAdmin: 3,
}

// AtLeast reports whether the role has the given privilege or higher.
func (r AgentRole) AtLeast(min AgentRole) bool {
	return roleRank[r] >= roleRank[min]
}

// Agent models a support agent, manager or administrator.
type Agent struct {
	ID           string
	CompanyID    string
	DepartmentID *string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
