// README: Booking service implements creation, manual transitions with seat
// accounting, staff deletes, and the worker-driven automatic transitions.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"carpool/internal/bus"
	"carpool/internal/modules/inventory"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

var (
	ErrNotFound             = errors.New("booking not found")
	ErrInvalidState         = errors.New("invalid booking state transition")
	ErrConflict             = errors.New("booking state conflict")
	ErrTripUnavailable      = errors.New("trip is unavailable")
	ErrInsufficientCapacity = errors.New("insufficient seat capacity")
	ErrBadRequest           = errors.New("bad request")
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	ListByTrip(ctx context.Context, tripID types.ID) ([]*Booking, error)
	ListByPassenger(ctx context.Context, passengerID types.ID) ([]*Booking, error)
	ListByStatus(ctx context.Context, statuses []Status) ([]*Booking, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	Delete(ctx context.Context, id types.ID) error
	AppendEvent(ctx context.Context, e *Event) error
}

// Trips is the slice of the trip service a booking needs: snapshot reads and
// the immediate status recompute after a seat change.
type Trips interface {
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
	Recompute(ctx context.Context, id types.ID) error
}

// Seats is the inventory ledger boundary. Direct writes to available_seats
// are forbidden everywhere else.
type Seats interface {
	ReserveCheck(t *trip.Trip, seats int) error
	Adjust(ctx context.Context, tripID types.ID, delta int) (int, error)
}

type Service struct {
	repo   Repository
	trips  Trips
	seats  Seats
	events bus.Publisher
	clock  types.Clock
}

func NewService(repo Repository, trips Trips, seats Seats, events bus.Publisher, clock types.Clock) *Service {
	return &Service{repo: repo, trips: trips, seats: seats, events: events, clock: clock}
}

type CreateCommand struct {
	TripID         types.ID
	PassengerID    types.ID
	PassengerPhone string
	Seats          int
	Note           string
}

// Create registers a PENDING booking. PENDING holds no seats, so the
// capacity check is informational: it can pass here and confirmation can
// still fail later.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.TripID == "" || cmd.PassengerID == "" || cmd.Seats <= 0 {
		return "", ErrBadRequest
	}
	t, err := s.trips.Get(ctx, cmd.TripID)
	if err != nil {
		return "", err
	}
	if t.Terminal() {
		return "", ErrTripUnavailable
	}
	if err := s.seats.ReserveCheck(t, cmd.Seats); err != nil {
		if errors.Is(err, inventory.ErrInsufficientCapacity) {
			return "", ErrInsufficientCapacity
		}
		return "", ErrBadRequest
	}

	now := s.clock.Now()
	b := &Booking{
		ID:             newID(),
		TripID:         t.ID,
		PassengerID:    cmd.PassengerID,
		PassengerPhone: cmd.PassengerPhone,
		SeatsBooked:    cmd.Seats,
		TotalPrice:     t.Price.Times(cmd.Seats),
		Note:           cmd.Note,
		Status:         StatusPending,
		StatusVersion:  0,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return "", err
	}
	_ = s.repo.AppendEvent(ctx, &Event{
		BookingID:  b.ID,
		FromStatus: "",
		ToStatus:   StatusPending,
		ActorType:  "passenger",
		ActorID:    &cmd.PassengerID,
		CreatedAt:  now,
	})
	_ = s.events.Publish(ctx, bus.Event{
		Kind:        bus.EventBookingCreated,
		TripID:      t.ID,
		BookingID:   b.ID,
		DriverID:    t.DriverID,
		PassengerID: b.PassengerID,
		ToStatus:    string(StatusPending),
		Seats:       b.SeatsBooked,
		At:          now,
	})
	return b.ID, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByTrip(ctx context.Context, tripID types.ID) ([]*Booking, error) {
	return s.repo.ListByTrip(ctx, tripID)
}

func (s *Service) ListByPassenger(ctx context.Context, passengerID types.ID) ([]*Booking, error) {
	return s.repo.ListByPassenger(ctx, passengerID)
}

func (s *Service) ListByStatus(ctx context.Context, statuses []Status) ([]*Booking, error) {
	return s.repo.ListByStatus(ctx, statuses)
}

type TransitionCommand struct {
	BookingID types.ID
	NewStatus Status
	ActorType string
	ActorID   types.ID
}

// Transition applies a manual status change requested by a driver, the
// passenger, or staff. Seat accounting: entering a seat-holding status
// debits the ledger, leaving one credits it back; the debit is what can
// fail when the trip is oversubscribed.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) error {
	b, err := s.repo.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	t, err := s.trips.Get(ctx, b.TripID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if t.Terminal() || t.DepartureTime.Before(now) {
		return ErrTripUnavailable
	}
	if !CanTransition(b.Status, cmd.NewStatus) {
		return ErrInvalidState
	}

	delta := SeatDelta(b.Status, cmd.NewStatus, b.SeatsBooked)
	if delta < 0 {
		if _, err := s.seats.Adjust(ctx, t.ID, delta); err != nil {
			switch {
			case errors.Is(err, inventory.ErrInsufficientCapacity):
				return ErrInsufficientCapacity
			case errors.Is(err, inventory.ErrConflict):
				return ErrConflict
			}
			return err
		}
	}

	ok, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, cmd.NewStatus, b.StatusVersion)
	if err != nil || !ok {
		if delta < 0 {
			// Return the seats the failed transition debited.
			if _, cerr := s.seats.Adjust(ctx, t.ID, -delta); cerr != nil {
				log.Printf("[booking] %s compensation credit failed: %v", b.Code(), cerr)
			}
		}
		if err != nil {
			return err
		}
		return ErrConflict
	}

	if delta > 0 {
		if _, err := s.seats.Adjust(ctx, t.ID, delta); err != nil {
			log.Printf("[booking] %s seat credit failed: %v", b.Code(), err)
		}
	}
	if delta != 0 {
		if err := s.trips.Recompute(ctx, t.ID); err != nil && !errors.Is(err, trip.ErrConflict) {
			log.Printf("[booking] trip %s recompute failed: %v", t.Code(), err)
		}
	}

	s.recordTransition(ctx, b, t, cmd.NewStatus, cmd.ActorType, &cmd.ActorID, now)
	return nil
}

// AutoTransition is the worker-only path: boarding passengers when the trip
// departs and expiring stale PENDING bookings. These moves never carry a
// seat delta, and they bypass the manual adjacency table.
func (s *Service) AutoTransition(ctx context.Context, b *Booking, to Status) error {
	ok, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, to, b.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	t, err := s.trips.Get(ctx, b.TripID)
	if err != nil {
		// The notification loses the driver id but the transition stands.
		t = &trip.Trip{ID: b.TripID}
	}
	s.recordTransition(ctx, b, t, to, "system", nil, s.clock.Now())
	return nil
}

type DeleteCommand struct {
	BookingID types.ID
	ActorID   types.ID
}

// Delete removes a booking outright (staff action) and reverses any seat
// debit the booking held.
func (s *Service) Delete(ctx context.Context, cmd DeleteCommand) error {
	b, err := s.repo.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, b.ID); err != nil {
		return err
	}
	if Holding(b.Status) {
		if _, err := s.seats.Adjust(ctx, b.TripID, b.SeatsBooked); err != nil {
			log.Printf("[booking] %s delete credit failed: %v", b.Code(), err)
		}
		if err := s.trips.Recompute(ctx, b.TripID); err != nil && !errors.Is(err, trip.ErrConflict) {
			log.Printf("[booking] trip %s recompute failed: %v", b.TripID, err)
		}
	}
	_ = s.events.Publish(ctx, bus.Event{
		Kind:        bus.EventDataRefresh,
		TripID:      b.TripID,
		BookingID:   b.ID,
		PassengerID: b.PassengerID,
		At:          s.clock.Now(),
	})
	return nil
}

func (s *Service) recordTransition(ctx context.Context, b *Booking, t *trip.Trip, to Status, actorType string, actorID *types.ID, at time.Time) {
	_ = s.repo.AppendEvent(ctx, &Event{
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  at,
	})
	_ = s.events.Publish(ctx, bus.Event{
		Kind:        bus.EventBookingUpdated,
		TripID:      b.TripID,
		BookingID:   b.ID,
		DriverID:    t.DriverID,
		PassengerID: b.PassengerID,
		FromStatus:  string(b.Status),
		ToStatus:    string(to),
		Seats:       b.SeatsBooked,
		At:          at,
	})
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
