// Package memory provides an in-process repository for tests and for
// running the API without a database, seeded at startup and discarded on
// shutdown.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
)

// Repository keeps users and two-factor challenges in maps guarded by a mutex.
type Repository struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byEmail    map[string]string
	challenges map[string]domain.TwoFactorChallenge
}

var (
	_ repository.UserRepository      = (*Repository)(nil)
	_ repository.ChallengeRepository = (*Repository)(nil)
)

// New returns an empty Repository.
func New() *Repository {
	return &Repository{
		users:      make(map[string]domain.User),
		byEmail:    make(map[string]string),
		challenges: make(map[string]domain.TwoFactorChallenge),
	}
}

// CreateUser stores a user, rejecting duplicate emails.
func (r *Repository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.users[id]
	return &u, nil
}

// GetUserByID fetches a user by identifier.
func (r *Repository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// UpdateTwoFactor stores the enrollment secret and enabled flag.
func (r *Repository) UpdateTwoFactor(_ context.Context, userID, secret string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.TwoFactorSecret = secret
	u.TwoFactorEnabled = enabled
	r.users[userID] = u
	return nil
}

// CreateChallenge stores a two-factor challenge.
func (r *Repository) CreateChallenge(_ context.Context, challenge *domain.TwoFactorChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[challenge.ID] = *challenge
	return nil
}

// GetChallenge fetches a challenge by identifier.
func (r *Repository) GetChallenge(_ context.Context, id string) (*domain.TwoFactorChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// MarkChallengeVerified finalizes a pending challenge exactly once.
func (r *Repository) MarkChallengeVerified(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.Status != domain.ChallengePending {
		return repository.ErrNotFound
	}
	c.Status = domain.ChallengeVerified
	c.VerifiedAt = &at
	r.challenges[id] = c
	return nil
}

// MarkChallengeExpired transitions a challenge to the expired state.
func (r *Repository) MarkChallengeExpired(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = domain.ChallengeExpired
	r.challenges[id] = c
	return nil
}

// IncrementChallengeAttempts bumps the failed-attempt counter.
func (r *Repository) IncrementChallengeAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	c.Attempts++
	r.challenges[id] = c
	return c.Attempts, nil
}
