// README: Reconciliation worker; rewrites trip and booking statuses as
// wall-clock time advances and fires a refresh signal when anything moved.
package reconcile

import (
	"context"
	"log"
	"time"

	"carpool/internal/bus"
	"carpool/internal/config"
	"carpool/internal/modules/booking"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

type Trips interface {
	ListActive(ctx context.Context) ([]*trip.Trip, error)
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
	ApplyStatus(ctx context.Context, t *trip.Trip, to trip.Status) error
}

type Bookings interface {
	ListByStatus(ctx context.Context, statuses []booking.Status) ([]*booking.Booking, error)
	AutoTransition(ctx context.Context, b *booking.Booking, to booking.Status) error
}

type Worker struct {
	trips        Trips
	bookings     Bookings
	events       bus.Publisher
	clock        types.Clock
	tick         time.Duration
	urgentWindow time.Duration
}

func NewWorker(trips Trips, bookings Bookings, events bus.Publisher, clock types.Clock, cfg config.ReconcileConfig) *Worker {
	tick := time.Duration(cfg.TickSeconds) * time.Second
	if tick <= 0 {
		tick = time.Minute
	}
	urgent := time.Duration(cfg.UrgentWindowMins) * time.Minute
	if urgent <= 0 {
		urgent = trip.DefaultUrgentWindow
	}
	return &Worker{
		trips:        trips,
		bookings:     bookings,
		events:       events,
		clock:        clock,
		tick:         tick,
		urgentWindow: urgent,
	}
}

// Run ticks until the context is cancelled. The worker keeps no state
// between ticks, so overlapping or restarted runs are harmless.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one reconciliation pass and returns how many records moved.
// Every trip and booking is handled independently: a failure is logged and
// the pass continues with the next item.
func (w *Worker) Tick(ctx context.Context) int {
	now := w.clock.Now()
	changed := 0

	trips, err := w.trips.ListActive(ctx)
	if err != nil {
		log.Printf("[reconcile] list active trips: %v", err)
		return 0
	}

	tripByID := make(map[types.ID]*trip.Trip, len(trips))
	tripStatus := make(map[types.ID]trip.Status, len(trips))
	for _, t := range trips {
		tripByID[t.ID] = t
		if t.ScheduleInverted() {
			log.Printf("[reconcile] %s has arrival before departure; treating arrival as departure", t.Code())
		}
		target := trip.NextStatusWithin(t, now, w.urgentWindow)
		tripStatus[t.ID] = target
		if target == t.Status {
			continue
		}
		if err := w.trips.ApplyStatus(ctx, t, target); err != nil {
			log.Printf("[reconcile] trip %s %s->%s: %v", t.Code(), t.Status, target, err)
			tripStatus[t.ID] = t.Status
			continue
		}
		changed++
	}

	live, err := w.bookings.ListByStatus(ctx, []booking.Status{
		booking.StatusPending, booking.StatusConfirmed, booking.StatusPickedUp,
	})
	if err != nil {
		log.Printf("[reconcile] list live bookings: %v", err)
	}
	for _, b := range live {
		t, ok := tripByID[b.TripID]
		if !ok {
			// Trip already terminal; fetch it so PENDING bookings on it can
			// still expire.
			t, err = w.trips.Get(ctx, b.TripID)
			if err != nil {
				log.Printf("[reconcile] booking %s trip lookup: %v", b.Code(), err)
				continue
			}
			tripByID[b.TripID] = t
			tripStatus[b.TripID] = t.Status
		}

		var target booking.Status
		switch {
		case tripStatus[b.TripID] == trip.StatusOnTrip && booking.Holding(b.Status):
			target = booking.StatusOnBoard
		case b.Status == booking.StatusPending && now.After(t.ArrivalOrDefault()):
			target = booking.StatusExpired
		default:
			continue
		}
		if err := w.bookings.AutoTransition(ctx, b, target); err != nil {
			log.Printf("[reconcile] booking %s %s->%s: %v", b.Code(), b.Status, target, err)
			continue
		}
		changed++
	}

	if changed > 0 {
		if err := w.events.Publish(ctx, bus.Event{Kind: bus.EventDataRefresh, At: now}); err != nil {
			log.Printf("[reconcile] publish refresh: %v", err)
		}
	}
	return changed
}
