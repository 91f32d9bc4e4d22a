package equipment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type equipmentRepoMock struct {
	createFunc  func(context.Context, *domain.Equipment) error
	getByIDFunc func(context.Context, string) (*domain.Equipment, error)
	listFunc    func(context.Context, string, int, int) ([]domain.Equipment, error)
	updateFunc  func(context.Context, string, *string, string) error
}

func (m equipmentRepoMock) CreateEquipment(ctx context.Context, item *domain.Equipment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, item)
	}
	return nil
}

func (m equipmentRepoMock) GetEquipmentByID(ctx context.Context, id string) (*domain.Equipment, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m equipmentRepoMock) ListEquipment(ctx context.Context, search string, limit, offset int) ([]domain.Equipment, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, search, limit, offset)
	}
	return nil, nil
}

func (m equipmentRepoMock) UpdateEquipmentAssignment(ctx context.Context, id string, assignedTo *string, status string) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, assignedTo, status)
	}
	return nil
}

type personnelRepoMock struct {
	getByIDFunc func(context.Context, string) (*domain.Personnel, error)
}

func (m personnelRepoMock) CreatePersonnel(context.Context, *domain.Personnel) error {
	return nil
}

func (m personnelRepoMock) GetPersonnelByID(ctx context.Context, id string) (*domain.Personnel, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m personnelRepoMock) ListPersonnel(context.Context, string, int, int) ([]domain.Personnel, error) {
	return nil, nil
}

func TestCreateStartsAvailable(t *testing.T) {
	var stored *domain.Equipment
	repo := equipmentRepoMock{
		createFunc: func(_ context.Context, item *domain.Equipment) error {
			stored = item
			return nil
		},
	}
	svc := New(repo, personnelRepoMock{}, newLogger())

	item, err := svc.Create(context.Background(), CreateInput{
		Name:         " Body Camera ",
		Type:         "Recording",
		Condition:    "good",
		SerialNumber: "SN-2023-0003",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected record to be persisted")
	}
	if item.Name != "Body Camera" {
		t.Fatalf("expected trimmed name, got %q", item.Name)
	}
	if item.Status != domain.EquipmentAvailable {
		t.Fatalf("expected available status, got %s", item.Status)
	}
	if time.Since(item.CreatedAt) > time.Minute {
		t.Fatalf("unexpected created_at: %s", item.CreatedAt)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc := New(equipmentRepoMock{}, personnelRepoMock{}, newLogger())
	if _, err := svc.Create(context.Background(), CreateInput{Name: "  "}); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestAssignToKnownPersonnel(t *testing.T) {
	var gotAssigned *string
	var gotStatus string
	repo := equipmentRepoMock{
		updateFunc: func(_ context.Context, _ string, assignedTo *string, status string) error {
			gotAssigned = assignedTo
			gotStatus = status
			return nil
		},
	}
	people := personnelRepoMock{
		getByIDFunc: func(_ context.Context, id string) (*domain.Personnel, error) {
			return &domain.Personnel{ID: id, Name: "John Smith"}, nil
		},
	}
	svc := New(repo, people, newLogger())

	assignee := "p-001"
	if err := svc.Assign(context.Background(), AssignInput{EquipmentID: "e-001", AssignedTo: &assignee}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if gotAssigned == nil || *gotAssigned != assignee {
		t.Fatalf("unexpected assignee: %v", gotAssigned)
	}
	if gotStatus != domain.EquipmentAssigned {
		t.Fatalf("expected assigned status, got %s", gotStatus)
	}
}

func TestAssignUnknownPersonnel(t *testing.T) {
	svc := New(equipmentRepoMock{}, personnelRepoMock{}, newLogger())
	assignee := "ghost"
	if err := svc.Assign(context.Background(), AssignInput{EquipmentID: "e-001", AssignedTo: &assignee}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignNilReturnsToPool(t *testing.T) {
	var gotStatus string
	repo := equipmentRepoMock{
		updateFunc: func(_ context.Context, _ string, assignedTo *string, status string) error {
			if assignedTo != nil {
				t.Fatalf("expected nil assignee")
			}
			gotStatus = status
			return nil
		},
	}
	svc := New(repo, personnelRepoMock{}, newLogger())

	if err := svc.Assign(context.Background(), AssignInput{EquipmentID: "e-001"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if gotStatus != domain.EquipmentAvailable {
		t.Fatalf("expected available status, got %s", gotStatus)
	}
}
