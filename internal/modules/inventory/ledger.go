// README: Seat inventory ledger; all seat-counter mutation funnels through here.
package inventory

import (
	"context"
	"errors"

	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

var (
	ErrInsufficientCapacity = errors.New("insufficient seat capacity")
	ErrConflict             = errors.New("seat adjustment conflict")
	ErrNotFound             = errors.New("trip not found")
	ErrBadRequest           = errors.New("bad request")
)

// Repository performs the seat adjustment as one conditional statement
// against the latest persisted value. A read-modify-write cycle here would
// let two concurrent confirmations oversell the trip.
type Repository interface {
	AdjustSeats(ctx context.Context, tripID types.ID, delta int) (int, error)
}

type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// ReserveCheck validates a requested seat count against a trip snapshot at
// booking-creation time. Informational only: PENDING bookings hold no seats,
// so nothing is mutated and confirmation may still fail later.
func (l *Ledger) ReserveCheck(t *trip.Trip, seats int) error {
	if seats <= 0 {
		return ErrBadRequest
	}
	if t.Kind == trip.KindRequest {
		// Request posts advertise demand; the counter is not a hard cap.
		return nil
	}
	if t.AvailableSeats < seats {
		return ErrInsufficientCapacity
	}
	return nil
}

// Adjust debits (delta < 0) or credits (delta > 0) a trip's seat counter and
// returns the new value. A lost race is retried once before surfacing.
func (l *Ledger) Adjust(ctx context.Context, tripID types.ID, delta int) (int, error) {
	if delta == 0 {
		return 0, ErrBadRequest
	}
	n, err := l.repo.AdjustSeats(ctx, tripID, delta)
	if errors.Is(err, ErrConflict) {
		n, err = l.repo.AdjustSeats(ctx, tripID, delta)
	}
	return n, err
}
