package domain

import "time"

// Role distinguishes the two marketplace actors.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleFarmer Role = "FARMER"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	return r == RoleClient || r == RoleFarmer
}

// User is the domain model for marketplace accounts. Emails are stored
// lowercase and are unique.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated (userID, role) pair passed into every service
// call. The domain never reads caller identity from ambient state.
type Actor struct {
	UserID string
	Role   Role
}
