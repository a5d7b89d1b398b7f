// README: Booking store backed by PostgreSQL; status writes are version-guarded.
package booking

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const bookingColumns = `
    id, trip_id, passenger_id, passenger_phone, seats_booked,
    total_price, currency, note, status, status_version, created_at`

func (s *Store) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO bookings (
            id, trip_id, passenger_id, passenger_phone, seats_booked,
            total_price, currency, note, status, status_version, created_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9, $10, $11
        )`,
		string(b.ID),
		string(b.TripID),
		string(b.PassengerID),
		b.PassengerPhone,
		b.SeatsBooked,
		b.TotalPrice.Amount, b.TotalPrice.Currency,
		b.Note,
		string(b.Status),
		b.StatusVersion,
		b.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE id = $1`, string(id),
	)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Store) ListByTrip(ctx context.Context, tripID types.ID) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE trip_id = $1
        ORDER BY created_at DESC`, string(tripID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (s *Store) ListByPassenger(ctx context.Context, passengerID types.ID) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE passenger_id = $1
        ORDER BY created_at DESC`, string(passengerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (s *Store) ListByStatus(ctx context.Context, statuses []Status) ([]*Booking, error) {
	in := make([]string, len(statuses))
	for i, st := range statuses {
		in[i] = string(st)
	}
	rows, err := s.db.Query(ctx, `
        SELECT `+bookingColumns+`
        FROM bookings
        WHERE status = ANY($1)
        ORDER BY created_at ASC`, in)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// UpdateStatus flips the status only if the stored row still matches the
// snapshot the caller read.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $1,
            status_version = status_version + 1
        WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO booking_state_events (
            booking_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		actorID,
		e.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.TripID, &b.PassengerID, &b.PassengerPhone, &b.SeatsBooked,
		&b.TotalPrice.Amount, &b.TotalPrice.Currency,
		&b.Note, &b.Status, &b.StatusVersion, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookings(rows pgx.Rows) ([]*Booking, error) {
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
