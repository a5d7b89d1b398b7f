// README: Change-event bus decoupling state transitions from their side effects.
package bus

import (
	"context"
	"time"

	"carpool/internal/types"
)

const (
	EventTripUpdated    = "trip.updated"
	EventBookingCreated = "booking.created"
	EventBookingUpdated = "booking.updated"
	EventDataRefresh    = "data.refresh"
)

// Event describes one observed change. Status fields carry the raw status
// strings of the owning module so the bus stays import-free of domain packages.
type Event struct {
	Kind        string    `json:"kind"`
	TripID      types.ID  `json:"trip_id,omitempty"`
	BookingID   types.ID  `json:"booking_id,omitempty"`
	DriverID    types.ID  `json:"driver_id,omitempty"`
	PassengerID types.ID  `json:"passenger_id,omitempty"`
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status,omitempty"`
	Seats       int       `json:"seats,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}
