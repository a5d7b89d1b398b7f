// README: Notification dispatcher; turns change events into passenger and
// driver notifications. Fire-and-forget: delivery failures never roll back
// the state transition that caused them.
package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"carpool/internal/bus"
	"carpool/internal/types"
)

// Store is where notifications are kept for in-app listing.
type Store interface {
	Push(ctx context.Context, n Notification) error
	List(ctx context.Context, recipientID types.ID) ([]Notification, error)
}

// Sink is the outbound delivery transport (broker, push gateway). Optional.
type Sink interface {
	Emit(ctx context.Context, n Notification) error
}

type Service struct {
	inbox Store
	sink  Sink
	clock types.Clock
}

func NewService(inbox Store, sink Sink, clock types.Clock) *Service {
	return &Service{inbox: inbox, sink: sink, clock: clock}
}

// statusLabels maps booking statuses to the wording passengers see.
var statusLabels = map[string]string{
	"CONFIRMED": "approved",
	"REJECTED":  "declined",
	"EXPIRED":   "expired",
	"CANCELLED": "cancelled",
	"ON_BOARD":  "marked on board",
	"PICKED_UP": "marked picked up",
}

// Run consumes the change feed until the context is cancelled.
func (s *Service) Run(ctx context.Context, events bus.Subscriber) error {
	ch, err := events.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			s.Handle(ctx, e)
		}
	}
}

// Handle builds and delivers the notifications one event implies.
func (s *Service) Handle(ctx context.Context, e bus.Event) {
	switch e.Kind {
	case bus.EventBookingUpdated:
		if e.PassengerID == "" || e.FromStatus == e.ToStatus {
			return
		}
		label, ok := statusLabels[e.ToStatus]
		if !ok {
			label = strings.ToLower(e.ToStatus)
		}
		severity := SeverityWarning
		if e.ToStatus == "CONFIRMED" {
			severity = SeveritySuccess
		}
		s.deliver(ctx, Notification{
			ID:          newID(),
			RecipientID: e.PassengerID,
			Title:       "Booking update",
			Message:     fmt.Sprintf("Your booking %s was %s.", shortCode("S", e.BookingID), label),
			Severity:    severity,
			CreatedAt:   s.clock.Now(),
		})

	case bus.EventBookingCreated:
		if e.DriverID != "" {
			s.deliver(ctx, Notification{
				ID:          newID(),
				RecipientID: e.DriverID,
				Title:       "New booking request",
				Message:     fmt.Sprintf("A passenger booked %d seat(s) on trip %s. Please review the order.", e.Seats, shortCode("T", e.TripID)),
				Severity:    SeverityInfo,
				CreatedAt:   s.clock.Now(),
			})
		}
		if e.PassengerID != "" {
			s.deliver(ctx, Notification{
				ID:          newID(),
				RecipientID: e.PassengerID,
				Title:       "Booking submitted",
				Message:     fmt.Sprintf("Your booking %s is waiting for the driver's approval.", shortCode("S", e.BookingID)),
				Severity:    SeverityInfo,
				CreatedAt:   s.clock.Now(),
			})
		}
	}
}

func (s *Service) List(ctx context.Context, recipientID types.ID) ([]Notification, error) {
	return s.inbox.List(ctx, recipientID)
}

func (s *Service) deliver(ctx context.Context, n Notification) {
	if err := s.inbox.Push(ctx, n); err != nil {
		log.Printf("[notify] inbox push for %s: %v", n.RecipientID, err)
	}
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, n); err != nil {
		log.Printf("[notify] sink emit for %s: %v", n.RecipientID, err)
	}
}

func shortCode(prefix string, id types.ID) string {
	v := string(id)
	if len(v) > 5 {
		v = v[:5]
	}
	return prefix + strings.ToUpper(v)
}

func newID() types.ID {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
