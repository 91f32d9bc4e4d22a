package domain

import "time"

// Personnel statuses.
const (
	PersonnelActive   = "active"
	PersonnelOnLeave  = "on_leave"
	PersonnelInactive = "inactive"
)

// Personnel represents a tracked member of the organization.
type Personnel struct {
	ID         string
	Name       string
	Role       string
	Department string
	Status     string
	Email      string
	Phone      string
	JoinedAt   time.Time
	CreatedAt  time.Time
}
