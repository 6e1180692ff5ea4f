package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// SQLStore implements booking.Store on MySQL.  Bookers of a departure lock
// its row with SELECT ... FOR UPDATE before re-reading the booked seats, and
// transactions run at READ COMMITTED so that re-read always observes the
// latest committed seat rows.  The unique key on
// seat_assignments(departure_id, active_seat) backs this up: a second booked
// row for a seat fails with error 1062, reported as booking.ErrSeatConflict.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a store bound to db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// DB exposes the underlying handle for repositories sharing the pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const departureColumns = `id, route_code, origin, destination, transport_type, departs_at, total_seats, seats_per_row, price_cents, status`

const bookingColumns = `id, user_id, departure_id, status, contact_name, contact_email, contact_phone, passengers, total_amount_cents, created_at, updated_at`

// Departure implements booking.Store.
func (s *SQLStore) Departure(ctx context.Context, id uint64) (*model.Departure, error) {
	return getDeparture(ctx, s.db, id, "")
}

// BookedSeats implements booking.Store.  Outside a transaction the result is
// advisory.
func (s *SQLStore) BookedSeats(ctx context.Context, departureID uint64) ([]string, error) {
	return bookedSeats(ctx, s.db, departureID, "")
}

// Booking implements booking.Store.
func (s *SQLStore) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	return getBooking(ctx, s.db, id, "")
}

// ListBookingsByUser implements booking.Store.  Bookings are ordered newest
// first.
func (s *SQLStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.listBookings(ctx, `WHERE user_id = ?`, userID)
}

// ListBookingsByDeparture implements booking.Store.
func (s *SQLStore) ListBookingsByDeparture(ctx context.Context, departureID uint64) ([]model.Booking, error) {
	return s.listBookings(ctx, `WHERE departure_id = ?`, departureID)
}

// RunInTx implements booking.Store.  The transaction is rolled back unless
// fn returns nil and the commit succeeds.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// sqlTx adapts *sql.Tx to booking.Tx.
type sqlTx struct{ tx *sql.Tx }

func (t *sqlTx) Departure(ctx context.Context, id uint64) (*model.Departure, error) {
	return getDeparture(ctx, t.tx, id, "")
}

func (t *sqlTx) DepartureForUpdate(ctx context.Context, id uint64) (*model.Departure, error) {
	return getDeparture(ctx, t.tx, id, " FOR UPDATE")
}

func (t *sqlTx) DepartureOnDate(ctx context.Context, routeCode string, day time.Time) (*model.Departure, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	q := `SELECT ` + departureColumns + ` FROM departures
          WHERE route_code = ? AND departs_at >= ? AND departs_at < ?
          ORDER BY departs_at, id LIMIT 1`
	d, err := scanDeparture(t.tx.QueryRowContext(ctx, q, routeCode, start, start.Add(24*time.Hour)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route %s on %s: %w", routeCode, start.Format(time.DateOnly), booking.ErrNotFound)
	}
	return d, err
}

func (t *sqlTx) BookedSeats(ctx context.Context, departureID uint64) ([]string, error) {
	return bookedSeats(ctx, t.tx, departureID, " FOR UPDATE")
}

func (t *sqlTx) BookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return getBooking(ctx, t.tx, id, " FOR UPDATE")
}

// InsertBooking inserts the bookings row and populates the generated ID.
func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	passengers, err := json.Marshal(b.Passengers)
	if err != nil {
		return fmt.Errorf("encode passengers: %w", err)
	}
	const q = `INSERT INTO bookings (user_id, departure_id, status, contact_name, contact_email, contact_phone, passengers, total_amount_cents, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, b.UserID, b.DepartureID, b.Status,
		b.Contact.Name, b.Contact.Email, b.Contact.Phone, passengers, b.TotalAmountCents,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// InsertSeatAssignments inserts all rows in a single statement.  Passing an
// empty slice has no effect.
func (t *sqlTx) InsertSeatAssignments(ctx context.Context, seats []model.SeatAssignment) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_assignments (departure_id, seat_number, booking_id, status) VALUES `
	args := make([]any, 0, len(seats)*4)
	for i, sa := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, sa.DepartureID, sa.SeatNumber, sa.BookingID, sa.Status)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return fmt.Errorf("insert seat assignments: %w", booking.ErrSeatConflict)
		}
		return fmt.Errorf("insert seat assignments: %w", err)
	}
	return nil
}

// CancelSeatAssignments flips the booking's booked rows to cancelled.
func (t *sqlTx) CancelSeatAssignments(ctx context.Context, bookingID uint64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT seat_number FROM seat_assignments WHERE booking_id = ? AND status = 'booked' ORDER BY id FOR UPDATE`,
		bookingID)
	if err != nil {
		return nil, err
	}
	released, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	if len(released) == 0 {
		return released, nil
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE seat_assignments SET status = 'cancelled' WHERE booking_id = ? AND status = 'booked'`,
		bookingID); err != nil {
		return nil, fmt.Errorf("cancel seat assignments: %w", err)
	}
	return released, nil
}

// UpdateBooking persists the mutable booking columns.
func (t *sqlTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	passengers, err := json.Marshal(b.Passengers)
	if err != nil {
		return fmt.Errorf("encode passengers: %w", err)
	}
	const q = `UPDATE bookings SET departure_id = ?, status = ?, passengers = ?, total_amount_cents = ?, updated_at = ? WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, b.DepartureID, b.Status, passengers, b.TotalAmountCents, b.UpdatedAt.UTC(), b.ID)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("booking %d: %w", b.ID, booking.ErrNotFound)
	}
	return nil
}

func getDeparture(ctx context.Context, q queryer, id uint64, lock string) (*model.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE id = ?` + lock
	d, err := scanDeparture(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("departure %d: %w", id, booking.ErrNotFound)
	}
	return d, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeparture(row rowScanner) (*model.Departure, error) {
	var d model.Departure
	if err := row.Scan(&d.ID, &d.RouteCode, &d.Origin, &d.Destination, &d.TransportType,
		&d.DepartsAt, &d.TotalSeats, &d.SeatsPerRow, &d.PriceCents, &d.Status); err != nil {
		return nil, err
	}
	d.DepartsAt = d.DepartsAt.UTC()
	return &d, nil
}

func bookedSeats(ctx context.Context, q queryer, departureID uint64, lock string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seat_number FROM seat_assignments WHERE departure_id = ? AND status = 'booked' ORDER BY seat_number`+lock,
		departureID)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func getBooking(ctx context.Context, q queryer, id uint64, lock string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?` + lock
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT seat_number FROM seat_assignments WHERE booking_id = ? AND status = 'booked' ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	if b.Seats, err = scanStrings(rows); err != nil {
		return nil, err
	}
	return b, nil
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b          model.Booking
		phone      sql.NullString
		passengers []byte
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.DepartureID, &b.Status,
		&b.Contact.Name, &b.Contact.Email, &phone, &passengers, &b.TotalAmountCents,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Contact.Phone = phone.String
	b.Passengers = []model.Passenger{}
	if len(passengers) > 0 {
		if err := json.Unmarshal(passengers, &b.Passengers); err != nil {
			return nil, fmt.Errorf("decode passengers of booking %d: %w", b.ID, err)
		}
	}
	b.Seats = []string{}
	return &b, nil
}

// listBookings loads bookings matching where and fills their seats with a
// single IN query.
func (s *SQLStore) listBookings(ctx context.Context, where string, arg any) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings `+where+` ORDER BY created_at DESC, id DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		index[b.ID] = len(out)
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]any, 0, len(out))
	placeholders := make([]string, 0, len(out))
	for _, b := range out {
		ids = append(ids, b.ID)
		placeholders = append(placeholders, "?")
	}
	seatQuery := `SELECT booking_id, seat_number FROM seat_assignments
                  WHERE status = 'booked' AND booking_id IN (` + strings.Join(placeholders, ",") + `)
                  ORDER BY booking_id, id`
	srows, err := s.db.QueryContext(ctx, seatQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			bookingID uint64
			seat      string
		)
		if err := srows.Scan(&bookingID, &seat); err != nil {
			return nil, err
		}
		if idx, ok := index[bookingID]; ok {
			out[idx].Seats = append(out[idx].Seats, seat)
		}
	}
	return out, srows.Err()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
