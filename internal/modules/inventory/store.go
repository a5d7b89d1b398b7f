// README: Seat ledger store; single-statement guarded update on the trips row.
package inventory

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

// AdjustSeats applies the delta only while the result stays within
// [0, seats]. The WHERE clause is the serialization point: of two
// concurrent confirmations for the last seat, exactly one matches.
func (s *Store) AdjustSeats(ctx context.Context, tripID types.ID, delta int) (int, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE trips
        SET available_seats = available_seats + $2
        WHERE id = $1
          AND available_seats + $2 >= 0
          AND available_seats + $2 <= seats
        RETURNING available_seats`,
		string(tripID), delta,
	)
	var n int
	err := row.Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.classifyMiss(ctx, tripID, delta)
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// classifyMiss decides why the guarded update matched nothing.
func (s *Store) classifyMiss(ctx context.Context, tripID types.ID, delta int) error {
	row := s.db.QueryRow(ctx, `SELECT 1 FROM trips WHERE id = $1`, string(tripID))
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if delta < 0 {
		return ErrInsufficientCapacity
	}
	// Crediting past capacity means our bookkeeping raced with another writer.
	return ErrConflict
}
