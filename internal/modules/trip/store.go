// README: Trip store backed by PostgreSQL; status writes are version-guarded.
package trip

import (
	"context"
	"database/sql"
	"errors"
	"time"

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

const tripColumns = `
    id, driver_id, driver_phone, kind, origin_name, origin_desc, dest_name, dest_desc,
    departure_time, arrival_time, price, currency, seats, available_seats,
    vehicle_info, status, status_version, created_at`

func (s *Store) Create(ctx context.Context, t *Trip) error {
	var arrival *time.Time
	if t.ArrivalTime != nil {
		v := *t.ArrivalTime
		arrival = &v
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO trips (
            id, driver_id, driver_phone, kind, origin_name, origin_desc, dest_name, dest_desc,
            departure_time, arrival_time, price, currency, seats, available_seats,
            vehicle_info, status, status_version, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8,
            $9, $10, $11, $12, $13, $14,
            $15, $16, $17, $18
        )`,
		string(t.ID),
		string(t.DriverID),
		t.DriverPhone,
		string(t.Kind),
		t.OriginName, t.OriginDesc, t.DestName, t.DestDesc,
		t.DepartureTime, arrival,
		t.Price.Amount, t.Price.Currency,
		t.Seats, t.AvailableSeats,
		t.VehicleInfo,
		string(t.Status),
		t.StatusVersion,
		t.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        WHERE id = $1`, string(id),
	)
	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Store) List(ctx context.Context) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        ORDER BY departure_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrips(rows)
}

// ListActive returns trips still subject to reconciliation.
func (s *Store) ListActive(ctx context.Context) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        WHERE status NOT IN ('COMPLETED', 'CANCELLED')
        ORDER BY departure_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrips(rows)
}

func (s *Store) ListByDriver(ctx context.Context, driverID types.ID) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+tripColumns+`
        FROM trips
        WHERE driver_id = $1
        ORDER BY departure_time ASC`, string(driverID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrips(rows)
}

// UpdateStatus flips the status only if the stored row still matches the
// snapshot the caller read. A false return means the caller lost a race.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trips
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

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO trip_state_events (
            trip_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.TripID),
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

func scanTrip(row rowScanner) (*Trip, error) {
	var t Trip
	var arrival sql.NullTime
	err := row.Scan(
		&t.ID, &t.DriverID, &t.DriverPhone, &t.Kind,
		&t.OriginName, &t.OriginDesc, &t.DestName, &t.DestDesc,
		&t.DepartureTime, &arrival,
		&t.Price.Amount, &t.Price.Currency,
		&t.Seats, &t.AvailableSeats,
		&t.VehicleInfo, &t.Status, &t.StatusVersion, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if arrival.Valid {
		v := arrival.Time
		t.ArrivalTime = &v
	}
	return &t, nil
}

func scanTrips(rows pgx.Rows) ([]*Trip, error) {
	var out []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
