package location

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

type checkInRepoMock struct {
	createFunc     func(context.Context, *domain.CheckIn) error
	getActiveFunc  func(context.Context, string) (*domain.CheckIn, error)
	closeFunc      func(context.Context, string, time.Time) error
	listFunc       func(context.Context, string, int, int) ([]domain.CheckIn, error)
	listActiveFunc func(context.Context) ([]domain.CheckIn, error)
}

func (m checkInRepoMock) CreateCheckIn(ctx context.Context, checkIn *domain.CheckIn) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, checkIn)
	}
	return nil
}

func (m checkInRepoMock) GetActiveCheckIn(ctx context.Context, personnelID string) (*domain.CheckIn, error) {
	if m.getActiveFunc != nil {
		return m.getActiveFunc(ctx, personnelID)
	}
	return nil, repository.ErrNotFound
}

func (m checkInRepoMock) CloseCheckIn(ctx context.Context, id string, at time.Time) error {
	if m.closeFunc != nil {
		return m.closeFunc(ctx, id, at)
	}
	return nil
}

func (m checkInRepoMock) ListCheckIns(ctx context.Context, search string, limit, offset int) ([]domain.CheckIn, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, search, limit, offset)
	}
	return nil, nil
}

func (m checkInRepoMock) ListActiveCheckIns(ctx context.Context) ([]domain.CheckIn, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx)
	}
	return nil, nil
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

func knownPersonnel() personnelRepoMock {
	return personnelRepoMock{
		getByIDFunc: func(_ context.Context, id string) (*domain.Personnel, error) {
			return &domain.Personnel{ID: id, Name: "John Smith"}, nil
		},
	}
}

func TestCheckInCreatesRecord(t *testing.T) {
	var stored *domain.CheckIn
	repo := checkInRepoMock{
		createFunc: func(_ context.Context, checkIn *domain.CheckIn) error {
			stored = checkIn
			return nil
		},
	}
	svc := New(repo, knownPersonnel(), nil, newLogger())

	checkIn, err := svc.CheckIn(context.Background(), CheckInInput{
		PersonnelID: "p-001",
		Location:    " Headquarters ",
		Latitude:    40.7128,
		Longitude:   -74.0060,
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected record to be persisted")
	}
	if checkIn.Location != "Headquarters" {
		t.Fatalf("expected trimmed location, got %q", checkIn.Location)
	}
	if checkIn.Status != domain.CheckedIn {
		t.Fatalf("unexpected status: %s", checkIn.Status)
	}
	if checkIn.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCheckInRejectsBlankLocation(t *testing.T) {
	svc := New(checkInRepoMock{}, knownPersonnel(), nil, newLogger())
	if _, err := svc.CheckIn(context.Background(), CheckInInput{PersonnelID: "p-001", Location: "  "}); err == nil {
		t.Fatalf("expected error for blank location")
	}
}

func TestCheckInUnknownPersonnel(t *testing.T) {
	svc := New(checkInRepoMock{}, personnelRepoMock{}, nil, newLogger())
	if _, err := svc.CheckIn(context.Background(), CheckInInput{PersonnelID: "ghost", Location: "HQ"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckInAlreadyOpen(t *testing.T) {
	repo := checkInRepoMock{
		getActiveFunc: func(_ context.Context, personnelID string) (*domain.CheckIn, error) {
			return &domain.CheckIn{ID: "c-1", PersonnelID: personnelID, Status: domain.CheckedIn}, nil
		},
	}
	svc := New(repo, knownPersonnel(), nil, newLogger())
	if _, err := svc.CheckIn(context.Background(), CheckInInput{PersonnelID: "p-001", Location: "HQ"}); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestCheckOutClosesOpenRecord(t *testing.T) {
	var closedID string
	repo := checkInRepoMock{
		getActiveFunc: func(_ context.Context, personnelID string) (*domain.CheckIn, error) {
			return &domain.CheckIn{
				ID:          "c-1",
				PersonnelID: personnelID,
				Location:    "Headquarters",
				Status:      domain.CheckedIn,
				CheckedInAt: time.Now().Add(-time.Hour),
			}, nil
		},
		closeFunc: func(_ context.Context, id string, _ time.Time) error {
			closedID = id
			return nil
		},
	}
	svc := New(repo, knownPersonnel(), nil, newLogger())

	checkIn, err := svc.CheckOut(context.Background(), "p-001")
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if closedID != "c-1" {
		t.Fatalf("expected open record to be closed, got %q", closedID)
	}
	if checkIn.Status != domain.CheckedOut {
		t.Fatalf("unexpected status: %s", checkIn.Status)
	}
	if checkIn.CheckedOutAt == nil {
		t.Fatalf("expected check-out timestamp")
	}
}

func TestCheckOutWithoutOpenRecord(t *testing.T) {
	svc := New(checkInRepoMock{}, knownPersonnel(), nil, newLogger())
	if _, err := svc.CheckOut(context.Background(), "p-001"); !errors.Is(err, ErrNotCheckedIn) {
		t.Fatalf("expected ErrNotCheckedIn, got %v", err)
	}
}

func TestHistoryClampsPaging(t *testing.T) {
	var gotLimit, gotOffset int
	repo := checkInRepoMock{
		listFunc: func(_ context.Context, _ string, limit, offset int) ([]domain.CheckIn, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	svc := New(repo, personnelRepoMock{}, nil, newLogger())

	if _, err := svc.History(context.Background(), "", -1, -1); err != nil {
		t.Fatalf("history: %v", err)
	}
	if gotLimit != 50 || gotOffset != 0 {
		t.Fatalf("expected clamped paging, got limit=%d offset=%d", gotLimit, gotOffset)
	}
}
