package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin manages the catalog and sees every loan.
	RoleAdmin Role = "admin"
	// RoleUser borrows books.
	RoleUser Role = "user"
)

// User is an account that can sign in. Borrowers are users with RoleUser.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
