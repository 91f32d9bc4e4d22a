package domain

import "time"

// TwoFactorChallenge states.
const (
	ChallengePending  = "pending"
	ChallengeVerified = "verified"
	ChallengeExpired  = "expired"
)

// TwoFactorChallenge tracks a login that still owes a second factor. A
// challenge, not a session token, is what the client holds between password
// success and code verification.
type TwoFactorChallenge struct {
	ID         string
	UserID     string
	Status     string
	Attempts   int
	ReturnTo   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}

// Expired reports whether the challenge is expired relative to now.
func (c TwoFactorChallenge) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.UTC().After(c.ExpiresAt.UTC())
}
