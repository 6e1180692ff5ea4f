package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// MemoryStore is an in-process implementation of booking.Store.  A single
// mutex serialises transactions; each transaction works on a private copy of
// the state that replaces the shared state only when fn returns nil, which
// gives serializable, all-or-nothing semantics.  It backs STORE_DRIVER=memory
// and the engine's tests.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	departures map[uint64]model.Departure
	bookings   map[uint64]model.Booking
	seats      []model.SeatAssignment
	nextDepID  uint64
	nextBookID uint64
	nextSeatID uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		departures: make(map[uint64]model.Departure),
		bookings:   make(map[uint64]model.Booking),
	}}
}

// AddDeparture inserts a departure, assigning an ID when d.ID is zero, and
// returns the ID used.
func (s *MemoryStore) AddDeparture(d model.Departure) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		s.state.nextDepID++
		d.ID = s.state.nextDepID
	} else if d.ID > s.state.nextDepID {
		s.state.nextDepID = d.ID
	}
	if d.Status == "" {
		d.Status = model.DepartureScheduled
	}
	d.DepartsAt = d.DepartsAt.UTC()
	s.state.departures[d.ID] = d
	return d.ID
}

// SeatAssignments returns a copy of every seat row, booked and cancelled.
func (s *MemoryStore) SeatAssignments() []model.SeatAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.seats)
}

// Departure implements booking.Store.
func (s *MemoryStore) Departure(_ context.Context, id uint64) (*model.Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.departure(id)
}

// BookedSeats implements booking.Store.
func (s *MemoryStore) BookedSeats(_ context.Context, departureID uint64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.bookedSeats(departureID), nil
}

// Booking implements booking.Store.
func (s *MemoryStore) Booking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.booking(id)
}

// ListBookingsByUser implements booking.Store.
func (s *MemoryStore) ListBookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listBookings(func(b model.Booking) bool { return b.UserID == userID }), nil
}

// ListBookingsByDeparture implements booking.Store.
func (s *MemoryStore) ListBookingsByDeparture(_ context.Context, departureID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listBookings(func(b model.Booking) bool { return b.DepartureID == departureID }), nil
}

// ListDepartures returns scheduled future departures matching the filter,
// ordered by departure time.
func (s *MemoryStore) ListDepartures(_ context.Context, f DepartureFilter) ([]model.Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]model.Departure, 0)
	for _, d := range s.state.departures {
		if d.Status != model.DepartureScheduled || !d.DepartsAt.After(now) {
			continue
		}
		if f.Origin != "" && !strings.EqualFold(d.Origin, f.Origin) {
			continue
		}
		if f.Destination != "" && !strings.EqualFold(d.Destination, f.Destination) {
			continue
		}
		if f.Date != nil && !sameUTCDay(d.DepartsAt, *f.Date) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartsAt.Equal(out[j].DepartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartsAt.Before(out[j].DepartsAt)
	})
	limit := f.Limit
	if limit <= 0 || limit > defaultDepartureLimit {
		limit = defaultDepartureLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RunInTx implements booking.Store.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(ctx, &memTx{st: &work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// memTx operates on a transaction-private copy of the state.  Locks are
// implicit: the store mutex is held for the whole transaction.
type memTx struct{ st *memState }

func (t *memTx) Departure(_ context.Context, id uint64) (*model.Departure, error) {
	return t.st.departure(id)
}

func (t *memTx) DepartureForUpdate(_ context.Context, id uint64) (*model.Departure, error) {
	return t.st.departure(id)
}

func (t *memTx) DepartureOnDate(_ context.Context, routeCode string, day time.Time) (*model.Departure, error) {
	var found *model.Departure
	for _, d := range t.st.departures {
		if d.RouteCode != routeCode || !sameUTCDay(d.DepartsAt, day) {
			continue
		}
		if found == nil || d.DepartsAt.Before(found.DepartsAt) {
			cp := d
			found = &cp
		}
	}
	if found == nil {
		return nil, fmt.Errorf("route %s on %s: %w", routeCode, day.UTC().Format(time.DateOnly), booking.ErrNotFound)
	}
	return found, nil
}

func (t *memTx) BookedSeats(_ context.Context, departureID uint64) ([]string, error) {
	return t.st.bookedSeats(departureID), nil
}

func (t *memTx) BookingForUpdate(_ context.Context, id uint64) (*model.Booking, error) {
	return t.st.booking(id)
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.st.nextBookID++
	b.ID = t.st.nextBookID
	t.st.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (t *memTx) InsertSeatAssignments(_ context.Context, seats []model.SeatAssignment) error {
	for _, sa := range seats {
		for _, existing := range t.st.seats {
			if existing.Status == model.SeatBooked && existing.DepartureID == sa.DepartureID && existing.SeatNumber == sa.SeatNumber {
				return fmt.Errorf("seat %s on departure %d: %w", sa.SeatNumber, sa.DepartureID, booking.ErrSeatConflict)
			}
		}
		t.st.nextSeatID++
		sa.ID = t.st.nextSeatID
		t.st.seats = append(t.st.seats, sa)
	}
	return nil
}

func (t *memTx) CancelSeatAssignments(_ context.Context, bookingID uint64) ([]string, error) {
	var released []string
	for i := range t.st.seats {
		if t.st.seats[i].BookingID == bookingID && t.st.seats[i].Status == model.SeatBooked {
			t.st.seats[i].Status = model.SeatCancelled
			released = append(released, t.st.seats[i].SeatNumber)
		}
	}
	return released, nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *model.Booking) error {
	if _, ok := t.st.bookings[b.ID]; !ok {
		return fmt.Errorf("booking %d: %w", b.ID, booking.ErrNotFound)
	}
	t.st.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (st *memState) clone() memState {
	out := *st
	out.departures = make(map[uint64]model.Departure, len(st.departures))
	for k, v := range st.departures {
		out.departures[k] = v
	}
	out.bookings = make(map[uint64]model.Booking, len(st.bookings))
	for k, v := range st.bookings {
		out.bookings[k] = copyBooking(v)
	}
	out.seats = slices.Clone(st.seats)
	return out
}

func (st *memState) departure(id uint64) (*model.Departure, error) {
	d, ok := st.departures[id]
	if !ok {
		return nil, fmt.Errorf("departure %d: %w", id, booking.ErrNotFound)
	}
	return &d, nil
}

func (st *memState) booking(id uint64) (*model.Booking, error) {
	b, ok := st.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, booking.ErrNotFound)
	}
	cp := copyBooking(b)
	cp.Seats = st.bookingSeats(id)
	return &cp, nil
}

func (st *memState) bookedSeats(departureID uint64) []string {
	out := make([]string, 0)
	for _, sa := range st.seats {
		if sa.DepartureID == departureID && sa.Status == model.SeatBooked {
			out = append(out, sa.SeatNumber)
		}
	}
	sort.Strings(out)
	return out
}

func (st *memState) bookingSeats(bookingID uint64) []string {
	out := make([]string, 0)
	for _, sa := range st.seats {
		if sa.BookingID == bookingID && sa.Status == model.SeatBooked {
			out = append(out, sa.SeatNumber)
		}
	}
	return out
}

func (st *memState) listBookings(keep func(model.Booking) bool) []model.Booking {
	out := make([]model.Booking, 0)
	for _, b := range st.bookings {
		if keep(b) {
			cp := copyBooking(b)
			cp.Seats = st.bookingSeats(b.ID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func copyBooking(b model.Booking) model.Booking {
	b.Seats = slices.Clone(b.Seats)
	b.Passengers = slices.Clone(b.Passengers)
	return b
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
