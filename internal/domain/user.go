package domain

import "time"

// Roles assignable to dashboard accounts.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a dashboard account.
type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	Name             string
	Role             string
	TwoFactorEnabled bool
	TwoFactorSecret  string
	CreatedAt        time.Time
}
