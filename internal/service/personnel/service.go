package personnel

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
)

// CreateInput encapsulates roster creation attributes.
type CreateInput struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Status     string `json:"status"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	JoinedAt   string `json:"joined_at"`
}

// Service manages the organization roster.
type Service struct {
	personnel repository.PersonnelRepository
	logger    *slog.Logger
}

// New returns a personnel service.
func New(personnel repository.PersonnelRepository, logger *slog.Logger) Service {
	return Service{personnel: personnel, logger: logger}
}

var (
	errNameRequired  = errors.New("name is required")
	errInvalidStatus = errors.New("status must be active, on_leave or inactive")
)

func validStatus(status string) bool {
	switch status {
	case domain.PersonnelActive, domain.PersonnelOnLeave, domain.PersonnelInactive:
		return true
	}
	return false
}

// Create registers a roster record.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Personnel, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errNameRequired
	}
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = domain.PersonnelActive
	}
	if !validStatus(status) {
		return nil, errInvalidStatus
	}
	joined := time.Now().UTC()
	if input.JoinedAt != "" {
		parsed, err := time.Parse("2006-01-02", input.JoinedAt)
		if err != nil {
			return nil, errors.New("joined_at must be YYYY-MM-DD")
		}
		joined = parsed
	}
	person := &domain.Personnel{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(input.Name),
		Role:       strings.TrimSpace(input.Role),
		Department: strings.TrimSpace(input.Department),
		Status:     status,
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      strings.TrimSpace(input.Phone),
		JoinedAt:   joined,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.personnel.CreatePersonnel(ctx, person); err != nil {
		return nil, err
	}
	s.logger.Info("personnel created", "personnel_id", person.ID)
	return person, nil
}

// List returns roster records, optionally filtered by a substring search
// across name, id, department and role.
func (s Service) List(ctx context.Context, search string, limit, offset int) ([]domain.Personnel, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.personnel.ListPersonnel(ctx, strings.TrimSpace(search), limit, offset)
}

// Get returns a single roster record.
func (s Service) Get(ctx context.Context, id string) (*domain.Personnel, error) {
	return s.personnel.GetPersonnelByID(ctx, id)
}
