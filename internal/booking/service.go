// Package booking is the authoritative gate for seat commitment.  Every
// change to a departure's booked-seat set happens inside a storage
// transaction that first locks the departure and re-reads that set, so two
// concurrent requests for the same seat can never both commit.  Earlier
// availability reads are advisory only and exist for fast feedback.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/seatmap"
)

// Event types emitted after a durable change.
const (
	EventBookingCreated   = "booking_created"
	EventBookingModified  = "booking_modified"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
)

// DefaultModificationCutoff is how long before departure a booking freezes.
const DefaultModificationCutoff = 2 * time.Hour

// postCommitTimeout bounds the best-effort broadcasts after a commit.
const postCommitTimeout = 5 * time.Second

// Actor is the caller on whose behalf an operation runs.
type Actor struct {
	UserID uint64
	Admin  bool
}

// CreateRequest describes a new booking.  Seats and Passengers pair up one
// to one.
type CreateRequest struct {
	Actor       Actor
	DepartureID uint64
	Seats       []string
	Passengers  []model.Passenger
	Contact     model.Contact
}

// ModifyRequest changes the seats and/or the departure of a booking.  A zero
// DepartureID and nil TravelDate keep the current departure; a TravelDate
// moves the booking to the same route on that day.  Nil Seats keeps the
// current seat labels.  Nil Passengers re-seats the existing passengers in
// order.
type ModifyRequest struct {
	Actor       Actor
	BookingID   uint64
	Seats       []string
	DepartureID uint64
	TravelDate  *time.Time
	Passengers  []model.Passenger
}

// Availability is an advisory snapshot of a departure's seats.
type Availability struct {
	DepartureID    uint64   `json:"departure_id"`
	TotalSeats     int      `json:"total_seats"`
	AvailableSeats int      `json:"available_seats"`
	BookedSeats    []string `json:"booked_seats"`
	Layout         []string `json:"layout"`
}

// Service implements createBooking, modifyBooking and cancelBooking.
type Service struct {
	store        Store
	availability AvailabilityPublisher
	events       []EventPublisher
	pricer       Pricer
	cutoff       time.Duration
	advisory     bool
	now          func() time.Time
	log          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAvailabilityPublisher sets where post-commit snapshots are sent.
func WithAvailabilityPublisher(p AvailabilityPublisher) Option {
	return func(s *Service) { s.availability = p }
}

// WithEventPublisher adds a receiver of booking events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = append(s.events, p)
		}
	}
}

// WithPricer overrides the flat per-seat fare.
func WithPricer(p Pricer) Option { return func(s *Service) { s.pricer = p } }

// WithModificationCutoff sets the freeze window before departure.
func WithModificationCutoff(d time.Duration) Option { return func(s *Service) { s.cutoff = d } }

// WithAdvisoryChecks toggles the non-transactional prechecks.  Turning them
// off under load does not affect correctness.
func WithAdvisoryChecks(on bool) Option { return func(s *Service) { s.advisory = on } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService builds a Service over store.  It panics on a nil store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("nil store passed to booking.NewService")
	}
	s := &Service{
		store:    store,
		pricer:   FlatPricer{},
		cutoff:   DefaultModificationCutoff,
		advisory: true,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates the request, then atomically re-reads the
// departure's booked seats and commits the booking with one seat
// assignment per seat, or fails with a *SeatConflictError naming the seats
// that are taken.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	if req.DepartureID == 0 {
		return nil, invalid("departure_id", "is required")
	}
	seats, err := normalizeSeats(req.Seats)
	if err != nil {
		return nil, err
	}
	if len(req.Passengers) != len(seats) {
		return nil, invalid("passengers", fmt.Sprintf("got %d passengers for %d seats", len(req.Passengers), len(seats)))
	}
	if err := validateContact(req.Contact); err != nil {
		return nil, err
	}
	if s.advisory {
		if err := s.precheck(ctx, req.DepartureID, seats, nil); err != nil {
			return nil, err
		}
	}

	var created *model.Booking
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		dep, err := tx.DepartureForUpdate(ctx, req.DepartureID)
		if err != nil {
			return err
		}
		if err := s.checkDeparture(dep, seats); err != nil {
			return err
		}
		booked, err := tx.BookedSeats(ctx, dep.ID)
		if err != nil {
			return err
		}
		if taken := collisions(seats, booked); len(taken) > 0 {
			return &SeatConflictError{DepartureID: dep.ID, Seats: taken}
		}
		amount, err := s.pricer.Price(dep, seats)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		b := &model.Booking{
			UserID:           req.Actor.UserID,
			DepartureID:      dep.ID,
			Status:           model.BookingConfirmed,
			Seats:            seats,
			Passengers:       seatPassengers(req.Passengers, seats),
			Contact:          req.Contact,
			TotalAmountCents: amount,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.InsertSeatAssignments(ctx, assignments(b)); err != nil {
			return asConflict(err, dep.ID, seats)
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, EventBookingCreated, created, created.DepartureID)
	return created, nil
}

// ModifyBooking swaps a booking's seats and/or departure in one
// transaction: the old assignments are cancelled, the target departure's
// booked set is re-read, and the new assignments are inserted unless they
// collide with another booking.
func (s *Service) ModifyBooking(ctx context.Context, req ModifyRequest) (*model.Booking, error) {
	if req.BookingID == 0 {
		return nil, invalid("booking_id", "is required")
	}
	var newSeats []string
	if req.Seats != nil {
		var err error
		if newSeats, err = normalizeSeats(req.Seats); err != nil {
			return nil, err
		}
	}
	if s.advisory {
		if err := s.precheckModify(ctx, req, newSeats); err != nil {
			return nil, err
		}
	}

	var (
		updated *model.Booking
		oldDep  uint64
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if err := authorize(req.Actor, b); err != nil {
			return err
		}
		if !b.Open() {
			return invalid("booking_id", "booking is "+strings.ToLower(b.Status))
		}
		targetID, err := s.targetDeparture(ctx, tx, b, req)
		if err != nil {
			return err
		}
		cur, target, err := lockDepartures(ctx, tx, b.DepartureID, targetID)
		if err != nil {
			return err
		}
		if !s.now().Add(s.cutoff).Before(cur.DepartsAt) {
			return ErrModificationWindowClosed
		}
		seats := newSeats
		if seats == nil {
			seats = slices.Clone(b.Seats)
		}
		if target.ID == cur.ID && sameSeats(seats, b.Seats) {
			return invalid("seats", "no change requested")
		}
		if err := s.checkDeparture(target, seats); err != nil {
			return err
		}
		passengers, err := reseat(b.Passengers, req.Passengers, seats)
		if err != nil {
			return err
		}

		if _, err := tx.CancelSeatAssignments(ctx, b.ID); err != nil {
			return err
		}
		booked, err := tx.BookedSeats(ctx, target.ID)
		if err != nil {
			return err
		}
		if taken := collisions(seats, booked); len(taken) > 0 {
			return &SeatConflictError{DepartureID: target.ID, Seats: taken}
		}
		amount, err := s.pricer.Price(target, seats)
		if err != nil {
			return err
		}
		oldDep = b.DepartureID
		b.DepartureID = target.ID
		b.Seats = seats
		b.Passengers = passengers
		b.TotalAmountCents = amount
		b.UpdatedAt = s.now().UTC()
		if err := tx.InsertSeatAssignments(ctx, assignments(b)); err != nil {
			return asConflict(err, target.ID, seats)
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, EventBookingModified, updated, oldDep, updated.DepartureID)
	return updated, nil
}

// CancelBooking flips all of a booking's seat assignments to cancelled and
// marks the booking cancelled.
func (s *Service) CancelBooking(ctx context.Context, actor Actor, bookingID uint64) (*model.Booking, error) {
	if bookingID == 0 {
		return nil, invalid("booking_id", "is required")
	}
	var cancelled *model.Booking
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := authorize(actor, b); err != nil {
			return err
		}
		if !b.Open() {
			return invalid("booking_id", "booking is "+strings.ToLower(b.Status))
		}
		// Cancelling also mutates the booked set, so it takes the same
		// departure lock and re-read as the writers that add seats.
		if _, err := tx.DepartureForUpdate(ctx, b.DepartureID); err != nil {
			return err
		}
		if _, err := tx.BookedSeats(ctx, b.DepartureID); err != nil {
			return err
		}
		if _, err := tx.CancelSeatAssignments(ctx, b.ID); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		b.UpdatedAt = s.now().UTC()
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, EventBookingCancelled, cancelled, cancelled.DepartureID)
	return cancelled, nil
}

// CompleteBooking marks a confirmed booking as travelled.  Its seats stay
// booked.  Only admins may complete bookings.
func (s *Service) CompleteBooking(ctx context.Context, actor Actor, bookingID uint64) (*model.Booking, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	var completed *model.Booking
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.Open() {
			return invalid("booking_id", "booking is "+strings.ToLower(b.Status))
		}
		b.Status = model.BookingCompleted
		b.UpdatedAt = s.now().UTC()
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		completed = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, EventBookingCompleted, completed)
	return completed, nil
}

// GetBooking returns a booking visible to actor.
func (s *Service) GetBooking(ctx context.Context, actor Actor, bookingID uint64) (*model.Booking, error) {
	b, err := s.store.Booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookings returns the actor's own bookings, newest first.
func (s *Service) ListBookings(ctx context.Context, actor Actor) ([]model.Booking, error) {
	return s.store.ListBookingsByUser(ctx, actor.UserID)
}

// ListDepartureBookings returns every booking of a departure.  Admin only.
func (s *Service) ListDepartureBookings(ctx context.Context, actor Actor, departureID uint64) ([]model.Booking, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	if _, err := s.store.Departure(ctx, departureID); err != nil {
		return nil, err
	}
	return s.store.ListBookingsByDeparture(ctx, departureID)
}

// Availability returns an advisory snapshot for polling clients.  It is
// never used to gate a commit.
func (s *Service) Availability(ctx context.Context, departureID uint64) (*Availability, error) {
	dep, err := s.store.Departure(ctx, departureID)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.BookedSeats(ctx, departureID)
	if err != nil {
		return nil, err
	}
	sort.Strings(booked)
	free := dep.TotalSeats - len(booked)
	if free < 0 {
		free = 0
	}
	return &Availability{
		DepartureID:    dep.ID,
		TotalSeats:     dep.TotalSeats,
		AvailableSeats: free,
		BookedSeats:    booked,
		Layout:         seatmap.Layout(dep.TotalSeats, dep.SeatsPerRow),
	}, nil
}

// precheck is the advisory, non-transactional half of the double check.
// ownSeats are seats the caller already holds on the departure and that
// therefore do not collide.
func (s *Service) precheck(ctx context.Context, departureID uint64, seats, ownSeats []string) error {
	dep, err := s.store.Departure(ctx, departureID)
	if err != nil {
		return err
	}
	if err := s.checkDeparture(dep, seats); err != nil {
		return err
	}
	booked, err := s.store.BookedSeats(ctx, departureID)
	if err != nil {
		return err
	}
	booked = slices.DeleteFunc(booked, func(seat string) bool { return slices.Contains(ownSeats, seat) })
	if taken := collisions(seats, booked); len(taken) > 0 {
		return &SeatConflictError{DepartureID: departureID, Seats: taken}
	}
	return nil
}

func (s *Service) precheckModify(ctx context.Context, req ModifyRequest, newSeats []string) error {
	b, err := s.store.Booking(ctx, req.BookingID)
	if err != nil {
		return err
	}
	if err := authorize(req.Actor, b); err != nil {
		return err
	}
	if req.DepartureID != 0 && req.DepartureID != b.DepartureID {
		seats := newSeats
		if seats == nil {
			seats = b.Seats
		}
		return s.precheck(ctx, req.DepartureID, seats, nil)
	}
	if newSeats != nil && req.TravelDate == nil {
		return s.precheck(ctx, b.DepartureID, newSeats, b.Seats)
	}
	return nil
}

// checkDeparture verifies the departure accepts bookings and that every
// seat label exists on its seat map.
func (s *Service) checkDeparture(dep *model.Departure, seats []string) error {
	switch {
	case dep.Status == model.DepartureCancelled:
		return invalid("departure_id", "departure is cancelled")
	case !dep.Bookable(s.now()):
		return invalid("departure_id", "departure is in the past")
	}
	for _, seat := range seats {
		if !seatmap.Valid(seat, dep.TotalSeats, dep.SeatsPerRow) {
			return invalid("seats", fmt.Sprintf("seat %s does not exist on departure %d", seat, dep.ID))
		}
	}
	return nil
}

// targetDeparture resolves which departure a modification lands on.
func (s *Service) targetDeparture(ctx context.Context, tx Tx, b *model.Booking, req ModifyRequest) (uint64, error) {
	if req.DepartureID != 0 {
		return req.DepartureID, nil
	}
	if req.TravelDate == nil {
		return b.DepartureID, nil
	}
	cur, err := tx.Departure(ctx, b.DepartureID)
	if err != nil {
		return 0, err
	}
	if sameDay(cur.DepartsAt, *req.TravelDate) {
		return cur.ID, nil
	}
	next, err := tx.DepartureOnDate(ctx, cur.RouteCode, *req.TravelDate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("no departure of route %s on %s: %w", cur.RouteCode, req.TravelDate.UTC().Format(time.DateOnly), ErrNotFound)
		}
		return 0, err
	}
	return next.ID, nil
}

// lockDepartures locks the current and target departures in ascending ID
// order so that two modifications moving in opposite directions cannot
// deadlock.
func lockDepartures(ctx context.Context, tx Tx, currentID, targetID uint64) (*model.Departure, *model.Departure, error) {
	ids := []uint64{currentID}
	if targetID != currentID {
		ids = append(ids, targetID)
		slices.Sort(ids)
	}
	locked := make(map[uint64]*model.Departure, len(ids))
	for _, id := range ids {
		d, err := tx.DepartureForUpdate(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = d
	}
	return locked[currentID], locked[targetID], nil
}

// afterCommit runs the best-effort broadcasts.  The booking is already
// durable, so failures are logged and swallowed.
func (s *Service) afterCommit(ctx context.Context, eventType string, b *model.Booking, departures ...uint64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()
	seen := make(map[uint64]bool, len(departures))
	for _, id := range departures {
		if id == 0 || seen[id] || s.availability == nil {
			continue
		}
		seen[id] = true
		if err := s.availability.PublishAvailability(ctx, id); err != nil {
			s.log.Warn("broadcast_failure", "departure_id", id, "booking_id", b.ID, "error", err)
		}
	}
	for _, p := range s.events {
		if err := p.PublishBookingEvent(ctx, eventType, b); err != nil {
			s.log.Warn("booking_event_publish_failure", "event", eventType, "booking_id", b.ID, "error", err)
		}
	}
	s.log.Info(eventType, "booking_id", b.ID, "departure_id", b.DepartureID, "seats", b.Seats)
}

func authorize(actor Actor, b *model.Booking) error {
	if actor.Admin || actor.UserID == b.UserID {
		return nil
	}
	return ErrForbidden
}

// normalizeSeats upper-cases labels and rejects empty, blank or duplicate
// seats.  Order is preserved.
func normalizeSeats(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, invalid("seats", "at least one seat is required")
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		seat := seatmap.Normalize(r)
		if seat == "" {
			return nil, invalid("seats", "seat number must not be blank")
		}
		if len(seat) > seatmap.MaxLabelLen {
			return nil, invalid("seats", fmt.Sprintf("seat number longer than %d characters", seatmap.MaxLabelLen))
		}
		if _, dup := seen[seat]; dup {
			return nil, invalid("seats", "duplicate seat "+seat)
		}
		seen[seat] = struct{}{}
		out = append(out, seat)
	}
	return out, nil
}

func validateContact(c model.Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("contact.name", "is required")
	}
	if !strings.Contains(c.Email, "@") {
		return invalid("contact.email", "must be an email address")
	}
	return nil
}

// collisions returns the requested seats present in booked, in request order.
func collisions(requested, booked []string) []string {
	if len(booked) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(booked))
	for _, seat := range booked {
		set[seat] = struct{}{}
	}
	var taken []string
	for _, seat := range requested {
		if _, ok := set[seat]; ok {
			taken = append(taken, seat)
		}
	}
	return taken
}

// asConflict converts a store-level duplicate into a typed conflict.
func asConflict(err error, departureID uint64, seats []string) error {
	var sc *SeatConflictError
	if errors.Is(err, ErrSeatConflict) && !errors.As(err, &sc) {
		return &SeatConflictError{DepartureID: departureID, Seats: seats}
	}
	return err
}

func assignments(b *model.Booking) []model.SeatAssignment {
	out := make([]model.SeatAssignment, 0, len(b.Seats))
	for _, seat := range b.Seats {
		out = append(out, model.SeatAssignment{
			DepartureID: b.DepartureID,
			SeatNumber:  seat,
			BookingID:   b.ID,
			Status:      model.SeatBooked,
		})
	}
	return out
}

// seatPassengers stamps passenger i with seat i.
func seatPassengers(ps []model.Passenger, seats []string) []model.Passenger {
	out := make([]model.Passenger, len(ps))
	for i, p := range ps {
		p.SeatNumber = seats[i]
		out[i] = p
	}
	return out
}

// reseat picks the passenger list for a modified booking.
func reseat(current, requested []model.Passenger, seats []string) ([]model.Passenger, error) {
	ps := requested
	if ps == nil {
		ps = current
	}
	if len(ps) != len(seats) {
		return nil, invalid("passengers", fmt.Sprintf("got %d passengers for %d seats", len(ps), len(seats)))
	}
	return seatPassengers(ps, seats), nil
}

func sameSeats(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
