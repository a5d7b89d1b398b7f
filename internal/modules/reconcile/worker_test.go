// README: Reconciliation worker tests; drives Tick with a fake clock and
// in-memory trip and booking fakes.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carpool/internal/bus"
	"carpool/internal/config"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTrips struct {
	mu        sync.Mutex
	trips     map[types.ID]*trip.Trip
	failApply map[types.ID]error
}

func newFakeTrips(trips ...*trip.Trip) *fakeTrips {
	f := &fakeTrips{trips: make(map[types.ID]*trip.Trip), failApply: make(map[types.ID]error)}
	for _, t := range trips {
		f.trips[t.ID] = t
	}
	return f
}

func (f *fakeTrips) ListActive(ctx context.Context) ([]*trip.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*trip.Trip
	for _, t := range f.trips {
		if !t.Terminal() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTrips) Get(ctx context.Context, id types.ID) (*trip.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return nil, trip.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrips) ApplyStatus(ctx context.Context, t *trip.Trip, to trip.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failApply[t.ID]; err != nil {
		return err
	}
	stored := f.trips[t.ID]
	if to == stored.Status {
		return nil
	}
	stored.Status = to
	stored.StatusVersion++
	return nil
}

func (f *fakeTrips) status(id types.ID) trip.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trips[id].Status
}

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[types.ID]*booking.Booking
}

func newFakeBookings(bookings ...*booking.Booking) *fakeBookings {
	f := &fakeBookings{bookings: make(map[types.ID]*booking.Booking)}
	for _, b := range bookings {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookings) ListByStatus(ctx context.Context, statuses []booking.Status) ([]*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*booking.Booking
	for _, b := range f.bookings {
		for _, s := range statuses {
			if b.Status == s {
				cp := *b
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeBookings) AutoTransition(ctx context.Context, b *booking.Booking, to booking.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.bookings[b.ID]
	if !ok || stored.Status != b.Status || stored.StatusVersion != b.StatusVersion {
		return booking.ErrConflict
	}
	stored.Status = to
	stored.StatusVersion++
	return nil
}

func (f *fakeBookings) status(id types.ID) booking.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id].Status
}

type captureBus struct {
	mu     sync.Mutex
	events []bus.Event
}

func (c *captureBus) Publish(ctx context.Context, e bus.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureBus) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newWorkerUnder(trips *fakeTrips, bookings *fakeBookings, events *captureBus, clock *fakeClock) *Worker {
	return NewWorker(trips, bookings, events, clock, config.ReconcileConfig{
		TickSeconds:      60,
		UrgentWindowMins: 60,
	})
}

func TestTickPromotesUrgentTrips(t *testing.T) {
	trips := newFakeTrips(&trip.Trip{
		ID:             "t1",
		Kind:           trip.KindOffer,
		Status:         trip.StatusPreparing,
		DepartureTime:  base.Add(30 * time.Minute),
		Seats:          4,
		AvailableSeats: 4,
	})
	events := &captureBus{}
	w := newWorkerUnder(trips, newFakeBookings(), events, &fakeClock{now: base})

	if changed := w.Tick(context.Background()); changed != 1 {
		t.Fatalf("Tick changed = %d, want 1", changed)
	}
	if got := trips.status("t1"); got != trip.StatusUrgent {
		t.Errorf("trip status = %s, want URGENT", got)
	}
	if events.count(bus.EventDataRefresh) != 1 {
		t.Errorf("data.refresh events = %d, want 1", events.count(bus.EventDataRefresh))
	}
}

func TestTickBoardsHoldingBookingsOnDeparture(t *testing.T) {
	arrival := base.Add(2 * time.Hour)
	trips := newFakeTrips(&trip.Trip{
		ID:            "t1",
		Kind:          trip.KindOffer,
		Status:        trip.StatusUrgent,
		DepartureTime: base.Add(-5 * time.Minute),
		ArrivalTime:   &arrival,
		Seats:         3,
	})
	bookings := newFakeBookings(
		&booking.Booking{ID: "b1", TripID: "t1", PassengerID: "p1", SeatsBooked: 1, Status: booking.StatusConfirmed},
		&booking.Booking{ID: "b2", TripID: "t1", PassengerID: "p2", SeatsBooked: 1, Status: booking.StatusPickedUp},
		&booking.Booking{ID: "b3", TripID: "t1", PassengerID: "p3", SeatsBooked: 1, Status: booking.StatusPending},
	)
	w := newWorkerUnder(trips, bookings, &captureBus{}, &fakeClock{now: base})

	if changed := w.Tick(context.Background()); changed != 3 {
		t.Fatalf("Tick changed = %d, want 3", changed)
	}
	if got := trips.status("t1"); got != trip.StatusOnTrip {
		t.Errorf("trip status = %s, want ON_TRIP", got)
	}
	if got := bookings.status("b1"); got != booking.StatusOnBoard {
		t.Errorf("b1 status = %s, want ON_BOARD", got)
	}
	if got := bookings.status("b2"); got != booking.StatusOnBoard {
		t.Errorf("b2 status = %s, want ON_BOARD", got)
	}
	// A pending booking is not boarded and cannot expire before arrival.
	if got := bookings.status("b3"); got != booking.StatusPending {
		t.Errorf("b3 status = %s, want PENDING", got)
	}
}

func TestTickExpiresStalePendingOnTerminalTrip(t *testing.T) {
	arrival := base.Add(-time.Hour)
	trips := newFakeTrips(&trip.Trip{
		ID:            "t1",
		Kind:          trip.KindOffer,
		Status:        trip.StatusCompleted,
		DepartureTime: base.Add(-4 * time.Hour),
		ArrivalTime:   &arrival,
		Seats:         2,
	})
	bookings := newFakeBookings(
		&booking.Booking{ID: "b1", TripID: "t1", PassengerID: "p1", SeatsBooked: 1, Status: booking.StatusPending},
	)
	w := newWorkerUnder(trips, bookings, &captureBus{}, &fakeClock{now: base})

	if changed := w.Tick(context.Background()); changed != 1 {
		t.Fatalf("Tick changed = %d, want 1", changed)
	}
	if got := bookings.status("b1"); got != booking.StatusExpired {
		t.Errorf("b1 status = %s, want EXPIRED", got)
	}
}

func TestTickIsIdempotent(t *testing.T) {
	trips := newFakeTrips(&trip.Trip{
		ID:             "t1",
		Kind:           trip.KindOffer,
		Status:         trip.StatusPreparing,
		DepartureTime:  base.Add(30 * time.Minute),
		Seats:          4,
		AvailableSeats: 4,
	})
	events := &captureBus{}
	w := newWorkerUnder(trips, newFakeBookings(), events, &fakeClock{now: base})
	ctx := context.Background()

	if changed := w.Tick(ctx); changed != 1 {
		t.Fatalf("first Tick changed = %d, want 1", changed)
	}
	if changed := w.Tick(ctx); changed != 0 {
		t.Fatalf("second Tick changed = %d, want 0", changed)
	}
	if events.count(bus.EventDataRefresh) != 1 {
		t.Errorf("data.refresh events = %d, want 1 (quiet ticks stay quiet)", events.count(bus.EventDataRefresh))
	}
}

func TestTickSkipsFailingItems(t *testing.T) {
	trips := newFakeTrips(
		&trip.Trip{
			ID:            "t1",
			Kind:          trip.KindOffer,
			Status:        trip.StatusUrgent,
			DepartureTime: base.Add(-5 * time.Minute),
			Seats:         2,
		},
		&trip.Trip{
			ID:             "t2",
			Kind:           trip.KindOffer,
			Status:         trip.StatusPreparing,
			DepartureTime:  base.Add(30 * time.Minute),
			Seats:          4,
			AvailableSeats: 4,
		},
	)
	trips.failApply["t1"] = errors.New("connection reset")
	bookings := newFakeBookings(
		&booking.Booking{ID: "b1", TripID: "t1", PassengerID: "p1", SeatsBooked: 1, Status: booking.StatusConfirmed},
	)
	w := newWorkerUnder(trips, bookings, &captureBus{}, &fakeClock{now: base})

	if changed := w.Tick(context.Background()); changed != 1 {
		t.Fatalf("Tick changed = %d, want 1 (only the healthy trip)", changed)
	}
	if got := trips.status("t2"); got != trip.StatusUrgent {
		t.Errorf("t2 status = %s, want URGENT", got)
	}
	// The trip never reached ON_TRIP, so its passengers are not boarded yet.
	if got := bookings.status("b1"); got != booking.StatusConfirmed {
		t.Errorf("b1 status = %s, want CONFIRMED", got)
	}
}
