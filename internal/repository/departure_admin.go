package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// A route departs at most once per UTC calendar day, so a travel date
// resolves to a single departure when a booking is moved.

func utcDay(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// CreateDeparture inserts d and assigns its ID.  It fails with
// ErrDepartureExists when the route already departs on that day.
func (s *SQLStore) CreateDeparture(ctx context.Context, d *model.Departure) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	start, end := utcDay(d.DepartsAt)
	var existing uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM departures WHERE route_code = ? AND departs_at >= ? AND departs_at < ? LIMIT 1 FOR UPDATE`,
		d.RouteCode, start, end).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("departure %d: %w", existing, ErrDepartureExists)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if d.Status == "" {
		d.Status = model.DepartureScheduled
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO departures (route_code, origin, destination, transport_type, departs_at, total_seats, seats_per_row, price_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RouteCode, d.Origin, d.Destination, d.TransportType, d.DepartsAt.UTC(),
		d.TotalSeats, d.SeatsPerRow, d.PriceCents, d.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	d.ID = uint64(id)
	return nil
}

// SetDepartureStatus changes the status of a departure.  Existing bookings
// are left untouched; a departure that is no longer SCHEDULED simply stops
// accepting new seats.
func (s *SQLStore) SetDepartureStatus(ctx context.Context, id uint64, status string) (*model.Departure, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE departures SET status = ? WHERE id = ?`, status, id); err != nil {
		return nil, err
	}
	return getDeparture(ctx, s.db, id, "")
}

// CreateDeparture mirrors SQLStore.CreateDeparture.
func (s *MemoryStore) CreateDeparture(_ context.Context, d *model.Departure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.state.departures {
		if other.RouteCode == d.RouteCode && sameUTCDay(other.DepartsAt, d.DepartsAt) {
			return fmt.Errorf("departure %d: %w", other.ID, ErrDepartureExists)
		}
	}
	if d.Status == "" {
		d.Status = model.DepartureScheduled
	}
	s.state.nextDepID++
	d.ID = s.state.nextDepID
	d.DepartsAt = d.DepartsAt.UTC()
	s.state.departures[d.ID] = *d
	return nil
}

// SetDepartureStatus mirrors SQLStore.SetDepartureStatus.
func (s *MemoryStore) SetDepartureStatus(_ context.Context, id uint64, status string) (*model.Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.state.departures[id]
	if !ok {
		return nil, fmt.Errorf("departure %d: %w", id, booking.ErrNotFound)
	}
	d.Status = status
	s.state.departures[id] = d
	return &d, nil
}
