package entity

import "time"

// Role is the caller's access level.
type Role string

const (
	RolePublic        Role = "PUBLIC"
	RoleBusinessOwner Role = "BUSINESS_OWNER"
	RoleAdmin         Role = "ADMIN"
)

// ParseRole maps a stored role to a Role; unknown values become PUBLIC.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleBusinessOwner:
		return Role(s)
	default:
		return RolePublic
	}
}

// User represents a row in the `users` table. Rows are created lazily the
// first time a Cognito subject is seen and are never deleted by this service.
type User struct {
	ID        string    `db:"id"`
	CognitoID string    `db:"cognito_id"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Profile holds the display fields supplied on first sight of a subject.
type Profile struct {
	CognitoID string
	Email     string
	FirstName string
	LastName  string
	Role      Role
}
