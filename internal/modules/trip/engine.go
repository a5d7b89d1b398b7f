// README: Pure trip status engine; maps (trip snapshot, now) to a target status.
package trip

import "time"

// DefaultUrgentWindow is how close to departure a trip turns URGENT.
const DefaultUrgentWindow = time.Hour

// NextStatus derives the status a trip should hold at the given instant.
// Deterministic and side-effect free; terminal statuses are never left.
func NextStatus(t *Trip, now time.Time) Status {
	return NextStatusWithin(t, now, DefaultUrgentWindow)
}

func NextStatusWithin(t *Trip, now time.Time, urgentWindow time.Duration) Status {
	if t.Terminal() {
		return t.Status
	}

	arrival := t.ArrivalOrDefault()
	if now.After(arrival) {
		return StatusCompleted
	}
	if !now.Before(t.DepartureTime) {
		return StatusOnTrip
	}

	// Trip is in the future.
	if t.Kind != KindRequest && t.AvailableSeats <= 0 {
		return StatusFull
	}
	if t.DepartureTime.Sub(now) <= urgentWindow {
		return StatusUrgent
	}
	return StatusPreparing
}
