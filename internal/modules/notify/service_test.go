// README: Notification dispatcher tests.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"carpool/internal/bus"
	"carpool/internal/types"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type memInbox struct {
	mu      sync.Mutex
	byUser  map[types.ID][]Notification
	pushErr error
}

func newMemInbox() *memInbox {
	return &memInbox{byUser: make(map[types.ID][]Notification)}
}

func (m *memInbox) Push(ctx context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.byUser[n.RecipientID] = append([]Notification{n}, m.byUser[n.RecipientID]...)
	return nil
}

func (m *memInbox) List(ctx context.Context, recipientID types.ID) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUser[recipientID], nil
}

type fakeSink struct {
	mu      sync.Mutex
	emitted []Notification
	err     error
}

func (f *fakeSink) Emit(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.emitted = append(f.emitted, n)
	return nil
}

func TestHandleBookingUpdated(t *testing.T) {
	cases := []struct {
		name         string
		toStatus     string
		wantFragment string
		wantSeverity Severity
	}{
		{"confirmed", "CONFIRMED", "was approved", SeveritySuccess},
		{"rejected", "REJECTED", "was declined", SeverityWarning},
		{"expired", "EXPIRED", "was expired", SeverityWarning},
		{"cancelled", "CANCELLED", "was cancelled", SeverityWarning},
		{"boarded", "ON_BOARD", "was marked on board", SeverityWarning},
		{"unknown status falls back", "SOMETHING_NEW", "was something_new", SeverityWarning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			inbox := newMemInbox()
			svc := NewService(inbox, nil, &fakeClock{now: base})

			svc.Handle(ctx, bus.Event{
				Kind:        bus.EventBookingUpdated,
				BookingID:   "abcde12345",
				PassengerID: "p1",
				FromStatus:  "PENDING",
				ToStatus:    tc.toStatus,
			})

			ns, _ := svc.List(ctx, "p1")
			if len(ns) != 1 {
				t.Fatalf("got %d notifications, want 1", len(ns))
			}
			n := ns[0]
			if n.Title != "Booking update" {
				t.Errorf("title = %q", n.Title)
			}
			if !strings.Contains(n.Message, "SABCDE") {
				t.Errorf("message %q lacks the short code", n.Message)
			}
			if !strings.Contains(n.Message, tc.wantFragment) {
				t.Errorf("message %q lacks %q", n.Message, tc.wantFragment)
			}
			if n.Severity != tc.wantSeverity {
				t.Errorf("severity = %s, want %s", n.Severity, tc.wantSeverity)
			}
		})
	}
}

func TestHandleBookingCreatedNotifiesBothParties(t *testing.T) {
	ctx := context.Background()
	inbox := newMemInbox()
	sink := &fakeSink{}
	svc := NewService(inbox, sink, &fakeClock{now: base})

	svc.Handle(ctx, bus.Event{
		Kind:        bus.EventBookingCreated,
		TripID:      "trip1234",
		BookingID:   "bk1",
		DriverID:    "d1",
		PassengerID: "p1",
		Seats:       2,
	})

	ns, _ := svc.List(ctx, "d1")
	if len(ns) != 1 {
		t.Fatalf("driver got %d notifications, want 1", len(ns))
	}
	if !strings.Contains(ns[0].Message, "2 seat(s)") || !strings.Contains(ns[0].Message, "TTRIP1") {
		t.Errorf("unexpected message %q", ns[0].Message)
	}
	if ns[0].Severity != SeverityInfo {
		t.Errorf("severity = %s, want info", ns[0].Severity)
	}
	passenger, _ := svc.List(ctx, "p1")
	if len(passenger) != 1 {
		t.Fatalf("passenger got %d notifications, want 1", len(passenger))
	}
	if !strings.Contains(passenger[0].Message, "SBK1") || !strings.Contains(passenger[0].Message, "approval") {
		t.Errorf("unexpected passenger message %q", passenger[0].Message)
	}
	if len(sink.emitted) != 2 {
		t.Errorf("sink got %d notifications, want 2", len(sink.emitted))
	}
}

func TestHandleIgnoresNoise(t *testing.T) {
	ctx := context.Background()
	inbox := newMemInbox()
	svc := NewService(inbox, nil, &fakeClock{now: base})

	svc.Handle(ctx, bus.Event{Kind: bus.EventDataRefresh})
	svc.Handle(ctx, bus.Event{Kind: bus.EventTripUpdated, TripID: "t1", DriverID: "d1"})
	svc.Handle(ctx, bus.Event{Kind: bus.EventBookingUpdated, BookingID: "b1", PassengerID: "p1", FromStatus: "PENDING", ToStatus: "PENDING"})
	svc.Handle(ctx, bus.Event{Kind: bus.EventBookingUpdated, BookingID: "b1", FromStatus: "PENDING", ToStatus: "CONFIRMED"})

	for _, id := range []types.ID{"p1", "d1"} {
		if ns, _ := svc.List(ctx, id); len(ns) != 0 {
			t.Errorf("%s got %d notifications, want 0", id, len(ns))
		}
	}
}

func TestDeliverToleratesFailures(t *testing.T) {
	ctx := context.Background()
	inbox := newMemInbox()
	inbox.pushErr = errors.New("redis down")
	sink := &fakeSink{err: errors.New("broker down")}
	svc := NewService(inbox, sink, &fakeClock{now: base})

	// Must not panic or propagate; the transition already happened.
	svc.Handle(ctx, bus.Event{
		Kind:        bus.EventBookingUpdated,
		BookingID:   "b1",
		PassengerID: "p1",
		FromStatus:  "PENDING",
		ToStatus:    "CONFIRMED",
	})
}

func TestRunConsumesFromBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := newMemInbox()
	svc := NewService(inbox, nil, &fakeClock{now: base})
	feed := bus.NewMemory()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, feed) }()

	// Give the subscriber a moment to attach before publishing.
	deadline := time.After(2 * time.Second)
	for {
		_ = feed.Publish(ctx, bus.Event{
			Kind:        bus.EventBookingUpdated,
			BookingID:   "b1",
			PassengerID: "p1",
			FromStatus:  "PENDING",
			ToStatus:    "CONFIRMED",
		})
		ns, _ := svc.List(ctx, "p1")
		if len(ns) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("notification never arrived")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
