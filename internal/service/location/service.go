package location

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
	"github.com/levywanke/Tracking-System/internal/ws"
)

var (
	// ErrAlreadyCheckedIn rejects a second open check-in for the same person.
	ErrAlreadyCheckedIn = errors.New("location: personnel already checked in")
	// ErrNotCheckedIn rejects a check-out without an open check-in.
	ErrNotCheckedIn = errors.New("location: personnel not checked in")

	errLocationRequired = errors.New("location name is required")
)

// FeedChannel is the hub channel dashboard clients subscribe to for live
// check-in events.
const FeedChannel = "checkins"

// CheckInInput records an arrival.
type CheckInInput struct {
	PersonnelID string  `json:"personnel_id"`
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Service tracks location check-ins and feeds the live dashboard stream.
type Service struct {
	checkIns  repository.CheckInRepository
	personnel repository.PersonnelRepository
	hub       *ws.Hub
	logger    *slog.Logger
}

// New returns a location service.
func New(checkIns repository.CheckInRepository, personnel repository.PersonnelRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{checkIns: checkIns, personnel: personnel, hub: hub, logger: logger}
}

// Hub exposes the live feed for websocket subscriptions.
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// CheckIn opens a check-in for a personnel record and broadcasts it.
func (s Service) CheckIn(ctx context.Context, input CheckInInput) (*domain.CheckIn, error) {
	if strings.TrimSpace(input.Location) == "" {
		return nil, errLocationRequired
	}
	person, err := s.personnel.GetPersonnelByID(ctx, input.PersonnelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.checkIns.GetActiveCheckIn(ctx, person.ID); err == nil {
		return nil, ErrAlreadyCheckedIn
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	checkIn := &domain.CheckIn{
		ID:          uuid.NewString(),
		PersonnelID: person.ID,
		Location:    strings.TrimSpace(input.Location),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Status:      domain.CheckedIn,
		CheckedInAt: time.Now().UTC(),
	}
	if err := s.checkIns.CreateCheckIn(ctx, checkIn); err != nil {
		return nil, err
	}
	s.logger.Info("personnel checked in", "personnel_id", person.ID, "location", checkIn.Location)
	s.broadcast("checked_in", person.Name, checkIn)
	return checkIn, nil
}

// CheckOut closes the personnel's open check-in and broadcasts it.
func (s Service) CheckOut(ctx context.Context, personnelID string) (*domain.CheckIn, error) {
	person, err := s.personnel.GetPersonnelByID(ctx, personnelID)
	if err != nil {
		return nil, err
	}
	checkIn, err := s.checkIns.GetActiveCheckIn(ctx, person.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotCheckedIn
		}
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.checkIns.CloseCheckIn(ctx, checkIn.ID, now); err != nil {
		return nil, err
	}
	checkIn.Status = domain.CheckedOut
	checkIn.CheckedOutAt = &now
	s.logger.Info("personnel checked out", "personnel_id", person.ID, "location", checkIn.Location)
	s.broadcast("checked_out", person.Name, checkIn)
	return checkIn, nil
}

// History returns check-ins, optionally filtered by substring search across
// personnel name, location and status.
func (s Service) History(ctx context.Context, search string, limit, offset int) ([]domain.CheckIn, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.checkIns.ListCheckIns(ctx, strings.TrimSpace(search), limit, offset)
}

// Active returns open check-ins for the map view.
func (s Service) Active(ctx context.Context) ([]domain.CheckIn, error) {
	return s.checkIns.ListActiveCheckIns(ctx)
}

type feedEvent struct {
	Event       string    `json:"event"`
	CheckInID   string    `json:"check_in_id"`
	PersonnelID string    `json:"personnel_id"`
	Personnel   string    `json:"personnel"`
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	At          time.Time `json:"at"`
}

func (s Service) broadcast(event, personnelName string, checkIn *domain.CheckIn) {
	if s.hub == nil {
		return
	}
	at := checkIn.CheckedInAt
	if checkIn.CheckedOutAt != nil {
		at = *checkIn.CheckedOutAt
	}
	payload, err := json.Marshal(feedEvent{
		Event:       event,
		CheckInID:   checkIn.ID,
		PersonnelID: checkIn.PersonnelID,
		Personnel:   personnelName,
		Location:    checkIn.Location,
		Latitude:    checkIn.Latitude,
		Longitude:   checkIn.Longitude,
		At:          at,
	})
	if err != nil {
		s.logger.Error("marshal check-in event", "error", err)
		return
	}
	s.hub.Broadcast(FeedChannel, payload)
}
