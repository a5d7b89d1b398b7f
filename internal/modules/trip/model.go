// README: Trip aggregate and status definitions.
package trip

import (
	"strings"
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusPreparing Status = "PREPARING"
	StatusUrgent    Status = "URGENT"
	StatusOnTrip    Status = "ON_TRIP"
	StatusFull      Status = "FULL"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Kind distinguishes a driver offering seats from a passenger requesting a
// ride. Seat capacity is a hard cap only for offers; request posts advertise
// demand and never derive FULL from the counter.
type Kind string

const (
	KindOffer   Kind = "offer"
	KindRequest Kind = "request"
)

// DefaultDuration is assumed when a trip is posted without an arrival time.
const DefaultDuration = 3 * time.Hour

type Trip struct {
	ID             types.ID
	DriverID       types.ID
	DriverPhone    string
	Kind           Kind
	OriginName     string
	OriginDesc     string
	DestName       string
	DestDesc       string
	DepartureTime  time.Time
	ArrivalTime    *time.Time
	Price          types.Money
	Seats          int
	AvailableSeats int
	VehicleInfo    string
	Status         Status
	StatusVersion  int
	CreatedAt      time.Time
}

type Event struct {
	ID         int64
	TripID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// Code is the short display identifier shown to users ("T" + first five
// characters of the id, upper-cased). Display only, never a lookup key.
func (t *Trip) Code() string {
	id := string(t.ID)
	if len(id) > 5 {
		id = id[:5]
	}
	return "T" + strings.ToUpper(id)
}

func (t *Trip) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

// ArrivalOrDefault resolves the effective arrival time: the stored one,
// or departure plus DefaultDuration when absent. An arrival earlier than
// departure is treated as arrival == departure.
func (t *Trip) ArrivalOrDefault() time.Time {
	if t.ArrivalTime == nil {
		return t.DepartureTime.Add(DefaultDuration)
	}
	if t.ArrivalTime.Before(t.DepartureTime) {
		return t.DepartureTime
	}
	return *t.ArrivalTime
}

// ScheduleInverted reports whether the stored schedule has arrival before
// departure, so callers can flag the bad data while still computing a status.
func (t *Trip) ScheduleInverted() bool {
	return t.ArrivalTime != nil && t.ArrivalTime.Before(t.DepartureTime)
}
