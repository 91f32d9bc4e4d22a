package domain

import "time"

// Check-in statuses.
const (
	CheckedIn  = "checked_in"
	CheckedOut = "checked_out"
)

// CheckIn records a personnel arrival at a location. CheckedOutAt stays nil
// while the check-in is active.
type CheckIn struct {
	ID           string
	PersonnelID  string
	Location     string
	Latitude     float64
	Longitude    float64
	Status       string
	CheckedInAt  time.Time
	CheckedOutAt *time.Time
}

// Active reports whether the check-in is still open.
func (c CheckIn) Active() bool {
	return c.Status == CheckedIn && c.CheckedOutAt == nil
}
