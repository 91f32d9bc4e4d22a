package repository

import (
	"context"
	"time"

	"github.com/levywanke/Tracking-System/internal/domain"
)

// UserRepository persists dashboard accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateTwoFactor(ctx context.Context, userID, secret string, enabled bool) error
}

// ChallengeRepository persists pending two-factor challenges.
type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, challenge *domain.TwoFactorChallenge) error
	GetChallenge(ctx context.Context, id string) (*domain.TwoFactorChallenge, error)
	MarkChallengeVerified(ctx context.Context, id string, at time.Time) error
	MarkChallengeExpired(ctx context.Context, id string) error
	IncrementChallengeAttempts(ctx context.Context, id string) (int, error)
}

// PersonnelRepository persists the organization roster.
type PersonnelRepository interface {
	CreatePersonnel(ctx context.Context, person *domain.Personnel) error
	GetPersonnelByID(ctx context.Context, id string) (*domain.Personnel, error)
	ListPersonnel(ctx context.Context, search string, limit, offset int) ([]domain.Personnel, error)
}

// EquipmentRepository persists tracked assets.
type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, item *domain.Equipment) error
	GetEquipmentByID(ctx context.Context, id string) (*domain.Equipment, error)
	ListEquipment(ctx context.Context, search string, limit, offset int) ([]domain.Equipment, error)
	UpdateEquipmentAssignment(ctx context.Context, id string, assignedTo *string, status string) error
}

// CheckInRepository persists location check-ins.
type CheckInRepository interface {
	CreateCheckIn(ctx context.Context, checkIn *domain.CheckIn) error
	GetActiveCheckIn(ctx context.Context, personnelID string) (*domain.CheckIn, error)
	CloseCheckIn(ctx context.Context, id string, at time.Time) error
	ListCheckIns(ctx context.Context, search string, limit, offset int) ([]domain.CheckIn, error)
	ListActiveCheckIns(ctx context.Context) ([]domain.CheckIn, error)
}
