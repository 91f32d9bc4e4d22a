package equipment

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

// CreateInput encapsulates asset creation attributes.
type CreateInput struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Condition    string `json:"condition"`
	SerialNumber string `json:"serial_number"`
}

// AssignInput reassigns an asset.
type AssignInput struct {
	EquipmentID string  `json:"equipment_id"`
	AssignedTo  *string `json:"assigned_to"`
}

// Service manages tracked assets.
type Service struct {
	equipment repository.EquipmentRepository
	personnel repository.PersonnelRepository
	logger    *slog.Logger
}

// New returns an equipment service.
func New(equipment repository.EquipmentRepository, personnel repository.PersonnelRepository, logger *slog.Logger) Service {
	return Service{equipment: equipment, personnel: personnel, logger: logger}
}

var errEquipmentName = errors.New("equipment name is required")

// Create registers an asset as available.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Equipment, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errEquipmentName
	}
	item := &domain.Equipment{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Type:         strings.TrimSpace(input.Type),
		Status:       domain.EquipmentAvailable,
		Condition:    strings.TrimSpace(input.Condition),
		SerialNumber: strings.TrimSpace(input.SerialNumber),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.equipment.CreateEquipment(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("equipment created", "equipment_id", item.ID)
	return item, nil
}

// Assign hands an asset to a personnel record, or returns it to the pool
// when AssignedTo is nil. The assignee must exist.
func (s Service) Assign(ctx context.Context, input AssignInput) error {
	status := domain.EquipmentAvailable
	if input.AssignedTo != nil {
		if _, err := s.personnel.GetPersonnelByID(ctx, *input.AssignedTo); err != nil {
			return err
		}
		status = domain.EquipmentAssigned
	}
	if err := s.equipment.UpdateEquipmentAssignment(ctx, input.EquipmentID, input.AssignedTo, status); err != nil {
		return err
	}
	s.logger.Info("equipment assignment updated", "equipment_id", input.EquipmentID, "status", status)
	return nil
}

// List returns assets, optionally filtered by substring search across name,
// id, type and assignee name.
func (s Service) List(ctx context.Context, search string, limit, offset int) ([]domain.Equipment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.equipment.ListEquipment(ctx, strings.TrimSpace(search), limit, offset)
}
