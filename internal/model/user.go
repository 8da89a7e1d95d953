package model

import "time"

type SystemRole string

const (
	SystemRoleUser       SystemRole = "USER"
	SystemRoleSuperAdmin SystemRole = "SUPER_ADMIN"
)

type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	SystemRole SystemRole `json:"system_role"`
	// Managed indicates a guardian-created profile without login credentials.
	Managed   bool       `json:"managed"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
