package models

import (
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
	dErrors "github.com/okatech-org/consulat-sub002/pkg/domain-errors"
)

// Role is a staff user's privilege level. Roles form a strict hierarchy;
// every capability check reduces to an AtLeast comparison against the
// capability table in the guard package.
type Role string

const (
	// RoleAgent is the least-privileged review role. Agents may only mutate
	// requests currently assigned to them.
	RoleAgent Role = "agent"
	// RoleManager may assign reviewers and roll requests back.
	RoleManager Role = "manager"
	// RoleAdministrator may additionally reopen rejected requests when the
	// deployment policy allows it.
	RoleAdministrator Role = "administrator"
	// RoleSuperAdministrator is maximally privileged and may override
	// terminal states.
	RoleSuperAdministrator Role = "super_administrator"
)

var roleLevel = map[Role]int{
	RoleAgent:              1,
	RoleManager:            2,
	RoleAdministrator:      3,
	RoleSuperAdministrator: 4,
}

// Level returns the role's rank in the hierarchy; 0 for unknown roles.
func (r Role) Level() int { return roleLevel[r] }

// IsValid reports whether r is a member of the closed role set.
func (r Role) IsValid() bool { return roleLevel[r] != 0 }

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool { return r.Level() >= other.Level() }

// String returns the wire representation.
func (r Role) String() string { return string(r) }

// ParseRole validates a string from a trust boundary into a Role.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+raw)
	}
	return r, nil
}

// Actor is the acting staff user as resolved by the transport layer.
// Decision functions receive it explicitly; nothing is read from hidden
// state.
type Actor struct {
	ID   id.UserID
	Role Role
}

// IsPrivileged reports whether the actor may perform privileged transitions
// (rollbacks). Managers and above qualify.
func (a Actor) IsPrivileged() bool { return a.Role.AtLeast(RoleManager) }

// IsMaxPrivileged reports whether the actor holds the maximally privileged
// role, the only one permitted to act on terminal requests.
func (a Actor) IsMaxPrivileged() bool { return a.Role == RoleSuperAdministrator }
