package model

// Role represents the role of a user in the validator backend.
type Role string

const (
	// RoleUser is a standard registered user who can submit ideas and comment.
	RoleUser Role = "user"
	// RoleAdmin can moderate ideas and comments.
	RoleAdmin Role = "admin"
)

// User is the identity part of a register/login response.
type User struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
