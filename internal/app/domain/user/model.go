package user

import "time"

// Role is the closed set of desk roles. Capability checks go through the
// methods below rather than string comparison at call sites.
type Role string

const (
	// RoleMaster administers users and can do everything a trader can.
	RoleMaster Role = "Master"
	// RoleTrader creates and manages operations and clients.
	RoleTrader Role = "Trader"
	// RoleOperator works the settlement queue: status changes and proofs.
	RoleOperator Role = "Operator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMaster || r == RoleTrader || r == RoleOperator
}

// CanCreateOperations reports whether the role may open new operations.
func (r Role) CanCreateOperations() bool {
	return r == RoleMaster || r == RoleTrader
}

// CanManageClients reports whether the role may create or edit clients.
func (r Role) CanManageClients() bool {
	return r == RoleMaster || r == RoleTrader
}

// CanManageUsers reports whether the role may administer user accounts.
func (r Role) CanManageUsers() bool {
	return r == RoleMaster
}

// Status marks whether a user may sign in.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// User is an authenticated actor of the back office.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	DNI          string

	Role   Role
	Status Status

	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastLogin  time.Time
	LastLogout time.Time
}

// Active reports whether the user may authenticate and act.
func (u User) Active() bool {
	return u.Status == StatusActive
}
