// README: Trip service implements posting, manual cancel, and status rewrites.
package trip

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"carpool/internal/bus"
	"carpool/internal/types"
)

var (
	ErrNotFound     = errors.New("trip not found")
	ErrInvalidState = errors.New("invalid trip state transition")
	ErrConflict     = errors.New("trip state conflict")
	ErrBadRequest   = errors.New("bad request")
)

// Repository is the persistence contract the service runs on. The pgx Store
// is the production implementation; tests inject an in-memory one.
type Repository interface {
	Create(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id types.ID) (*Trip, error)
	List(ctx context.Context) ([]*Trip, error)
	ListActive(ctx context.Context) ([]*Trip, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]*Trip, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

// ArrivalEstimator fills in a missing arrival time at posting. Optional;
// when nil (or failing) the engine falls back to departure + DefaultDuration.
type ArrivalEstimator interface {
	EstimateArrival(ctx context.Context, origin, dest string, departure time.Time) (time.Time, error)
}

type Service struct {
	repo         Repository
	events       bus.Publisher
	clock        types.Clock
	eta          ArrivalEstimator
	urgentWindow time.Duration
}

func NewService(repo Repository, events bus.Publisher, clock types.Clock, eta ArrivalEstimator, urgentWindow time.Duration) *Service {
	if urgentWindow <= 0 {
		urgentWindow = DefaultUrgentWindow
	}
	return &Service{repo: repo, events: events, clock: clock, eta: eta, urgentWindow: urgentWindow}
}

type PostCommand struct {
	DriverID      types.ID
	DriverPhone   string
	Kind          Kind
	OriginName    string
	OriginDesc    string
	DestName      string
	DestDesc      string
	DepartureTime time.Time
	ArrivalTime   *time.Time
	Price         types.Money
	Seats         int
	VehicleInfo   string
}

// Post creates one trip in PREPARING with a full seat counter.
func (s *Service) Post(ctx context.Context, cmd PostCommand) (types.ID, error) {
	if cmd.DriverID == "" || cmd.OriginName == "" || cmd.DestName == "" || cmd.Seats <= 0 {
		return "", ErrBadRequest
	}
	kind := cmd.Kind
	if kind == "" {
		kind = KindOffer
	}

	arrival := cmd.ArrivalTime
	if arrival == nil && s.eta != nil {
		if at, err := s.eta.EstimateArrival(ctx, cmd.OriginName, cmd.DestName, cmd.DepartureTime); err == nil {
			arrival = &at
		} else {
			log.Printf("[trip] arrival estimate failed, using default duration: %v", err)
		}
	}

	now := s.clock.Now()
	t := &Trip{
		ID:             newID(),
		DriverID:       cmd.DriverID,
		DriverPhone:    cmd.DriverPhone,
		Kind:           kind,
		OriginName:     cmd.OriginName,
		OriginDesc:     cmd.OriginDesc,
		DestName:       cmd.DestName,
		DestDesc:       cmd.DestDesc,
		DepartureTime:  cmd.DepartureTime,
		ArrivalTime:    arrival,
		Price:          cmd.Price,
		Seats:          cmd.Seats,
		AvailableSeats: cmd.Seats,
		VehicleInfo:    cmd.VehicleInfo,
		Status:         StatusPreparing,
		StatusVersion:  0,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return "", err
	}
	_ = s.repo.AppendEvent(ctx, &Event{
		TripID:     t.ID,
		FromStatus: "",
		ToStatus:   StatusPreparing,
		ActorType:  "driver",
		ActorID:    &cmd.DriverID,
		CreatedAt:  now,
	})
	_ = s.events.Publish(ctx, bus.Event{
		Kind:     bus.EventTripUpdated,
		TripID:   t.ID,
		DriverID: t.DriverID,
		ToStatus: string(StatusPreparing),
		At:       now,
	})
	return t.ID, nil
}

// PostBatch posts several trips in one call; the original client posts an
// array. Creation stops at the first failure and returns what succeeded.
func (s *Service) PostBatch(ctx context.Context, cmds []PostCommand) ([]types.ID, error) {
	ids := make([]types.ID, 0, len(cmds))
	for _, cmd := range cmds {
		id, err := s.Post(ctx, cmd)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Trip, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]*Trip, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) ListByDriver(ctx context.Context, driverID types.ID) ([]*Trip, error) {
	return s.repo.ListByDriver(ctx, driverID)
}

type CancelCommand struct {
	TripID    types.ID
	ActorType string
	ActorID   types.ID
}

// Cancel is the one backwards-reaching manual transition: any non-terminal
// trip may be cancelled by its driver or by staff.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	t, err := s.repo.Get(ctx, cmd.TripID)
	if err != nil {
		return err
	}
	if t.Terminal() {
		return ErrInvalidState
	}
	ok, err := s.repo.UpdateStatus(ctx, t.ID, t.Status, StatusCancelled, t.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	now := s.clock.Now()
	actorID := cmd.ActorID
	_ = s.repo.AppendEvent(ctx, &Event{
		TripID:     t.ID,
		FromStatus: t.Status,
		ToStatus:   StatusCancelled,
		ActorType:  cmd.ActorType,
		ActorID:    &actorID,
		CreatedAt:  now,
	})
	_ = s.events.Publish(ctx, bus.Event{
		Kind:       bus.EventTripUpdated,
		TripID:     t.ID,
		DriverID:   t.DriverID,
		FromStatus: string(t.Status),
		ToStatus:   string(StatusCancelled),
		At:         now,
	})
	return nil
}

// ApplyStatus persists an engine-computed status for a trip snapshot.
// Used by the reconciliation worker and by Recompute.
func (s *Service) ApplyStatus(ctx context.Context, t *Trip, to Status) error {
	if to == t.Status {
		return nil
	}
	ok, err := s.repo.UpdateStatus(ctx, t.ID, t.Status, to, t.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	now := s.clock.Now()
	_ = s.repo.AppendEvent(ctx, &Event{
		TripID:     t.ID,
		FromStatus: t.Status,
		ToStatus:   to,
		ActorType:  "system",
		ActorID:    nil,
		CreatedAt:  now,
	})
	_ = s.events.Publish(ctx, bus.Event{
		Kind:       bus.EventTripUpdated,
		TripID:     t.ID,
		DriverID:   t.DriverID,
		FromStatus: string(t.Status),
		ToStatus:   string(to),
		At:         now,
	})
	return nil
}

// Recompute re-derives a trip's status from the clock right away, so a seat
// change is reflected (FULL, back to PREPARING/URGENT) without waiting for
// the next reconciliation tick.
func (s *Service) Recompute(ctx context.Context, id types.ID) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.ScheduleInverted() {
		log.Printf("[trip] %s has arrival before departure; treating arrival as departure", t.Code())
	}
	target := NextStatusWithin(t, s.clock.Now(), s.urgentWindow)
	return s.ApplyStatus(ctx, t, target)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
