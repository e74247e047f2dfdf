package domain

import "time"

// Role is the coarse authorization level carried in access tokens. The
// project/time-tracking resolvers hang their own permissions off these.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleEnabler      Role = "ENABLER"
	RoleCollaborator Role = "COLLABORATOR"
)

// ParseRole validates a role string coming off the wire or out of storage.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleEnabler, RoleCollaborator:
		return Role(s), true
	}
	return "", false
}

// User is the stored identity record.
type User struct {
	ID           int64
	Email        string // stored lowercased, unique
	PasswordHash string // argon2id PHC encoded
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the request-scoped identity attached by the guard. Immutable
// for the lifetime of a request.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal returns the request-facing view of the user.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}
