// README: Booking aggregate, status definitions, and the manual transition table.
package booking

import (
	"strings"
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPickedUp  Status = "PICKED_UP"
	StatusOnBoard   Status = "ON_BOARD"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
)

type Booking struct {
	ID             types.ID
	TripID         types.ID
	PassengerID    types.ID
	PassengerPhone string
	SeatsBooked    int
	TotalPrice     types.Money
	Note           string
	Status         Status
	StatusVersion  int
	CreatedAt      time.Time
}

type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// Code is the short display identifier shown to users ("S" + first five
// characters of the id, upper-cased). Display only, never a lookup key.
func (b *Booking) Code() string {
	id := string(b.ID)
	if len(id) > 5 {
		id = id[:5]
	}
	return "S" + strings.ToUpper(id)
}

// AllowedTransitions represents the manual booking state flow. REJECTED,
// CANCELLED, and EXPIRED are terminal; ON_BOARD accepts no manual edits.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusPickedUp, StatusCancelled, StatusExpired},
	StatusPickedUp:  {StatusOnBoard},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Holding reports whether a status counts against the trip's seat counter.
// PENDING deliberately does not: a reservation is provisional until the
// driver confirms it.
func Holding(s Status) bool {
	return s == StatusConfirmed || s == StatusPickedUp || s == StatusOnBoard
}

// SeatDelta is the ledger adjustment a from→to transition implies for a
// booking of the given size. Negative debits, positive credits.
func SeatDelta(from, to Status, seats int) int {
	switch {
	case !Holding(from) && Holding(to):
		return -seats
	case Holding(from) && !Holding(to):
		return seats
	}
	return 0
}
