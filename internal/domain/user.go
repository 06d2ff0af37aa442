package domain

import "time"

// Role separates end-users who open tickets from support staff.
type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAgent
}

// User is the domain model for anyone who can sign in. Role is fixed at
// registration time.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
