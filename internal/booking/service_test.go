package booking_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type availabilityRecorder struct {
	mu   sync.Mutex
	deps []uint64
	err  error
}

func (r *availabilityRecorder) PublishAvailability(_ context.Context, departureID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps = append(r.deps, departureID)
	return r.err
}

func (r *availabilityRecorder) published() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.deps...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) PublishBookingEvent(_ context.Context, eventType string, _ *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

type fixture struct {
	store  *repository.MemoryStore
	svc    *booking.Service
	avail  *availabilityRecorder
	events *eventRecorder
}

func newFixture(t *testing.T, opts ...booking.Option) *fixture {
	t.Helper()
	f := &fixture{store: repository.NewMemoryStore(), avail: &availabilityRecorder{}, events: &eventRecorder{}}
	opts = append([]booking.Option{
		booking.WithClock(func() time.Time { return now }),
		booking.WithAvailabilityPublisher(f.avail),
		booking.WithEventPublisher(f.events),
	}, opts...)
	f.svc = booking.NewService(f.store, opts...)
	return f
}

func (f *fixture) departure(route string, at time.Time, seats int) uint64 {
	return f.store.AddDeparture(model.Departure{
		RouteCode:   route,
		Origin:      "Istanbul",
		Destination: "Ankara",
		DepartsAt:   at,
		TotalSeats:  seats,
		SeatsPerRow: 4,
		PriceCents:  1000,
	})
}

func create(userID, departureID uint64, seats ...string) booking.CreateRequest {
	ps := make([]model.Passenger, len(seats))
	for i := range seats {
		ps[i] = model.Passenger{Name: fmt.Sprintf("passenger %d", i+1)}
	}
	return booking.CreateRequest{
		Actor:       booking.Actor{UserID: userID},
		DepartureID: departureID,
		Seats:       seats,
		Passengers:  ps,
		Contact:     model.Contact{Name: "Ada", Email: "ada@example.com"},
	}
}

func bookedCount(store *repository.MemoryStore, departureID uint64, seat string) int {
	n := 0
	for _, sa := range store.SeatAssignments() {
		if sa.DepartureID == departureID && sa.SeatNumber == seat && sa.Status == model.SeatBooked {
			n++
		}
	}
	return n
}

func requireConflict(t *testing.T, err error, seats ...string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrSeatConflict))
	var sc *booking.SeatConflictError
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, seats, sc.Seats)
}

func requireInvalid(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, booking.ErrInvalidRequest))
	var ir *booking.InvalidRequestError
	require.ErrorAs(t, err, &ir)
	assert.Equal(t, field, ir.Field)
}

func TestCreateBooking_Succeeds(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)

	b, err := f.svc.CreateBooking(context.Background(), create(1, dep, "a1", "A2"))
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, []string{"A1", "A2"}, b.Seats)
	assert.Equal(t, "A2", b.Passengers[1].SeatNumber)
	assert.Equal(t, uint32(2000), b.TotalAmountCents)
	assert.Equal(t, []uint64{dep}, f.avail.published())
	assert.Equal(t, []string{booking.EventBookingCreated}, f.events.events)

	got, err := f.svc.GetBooking(context.Background(), booking.Actor{UserID: 1}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, got.Seats)
}

// Departure D has seats A1..A3.  X books A1 while Y books A1+A2: exactly one
// of them wins, under every interleaving.
func TestCreateBooking_ConcurrentOverlapOneWinner(t *testing.T) {
	for round := 0; round < 50; round++ {
		f := newFixture(t)
		dep := f.departure("R1", now.Add(48*time.Hour), 3)

		var (
			wg   sync.WaitGroup
			errX error
			errY error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errX = f.svc.CreateBooking(context.Background(), create(1, dep, "A1"))
		}()
		go func() {
			defer wg.Done()
			_, errY = f.svc.CreateBooking(context.Background(), create(2, dep, "A1", "A2"))
		}()
		wg.Wait()

		switch {
		case errX == nil:
			requireConflict(t, errY, "A1")
			assert.Equal(t, 0, bookedCount(f.store, dep, "A2"))
		case errY == nil:
			requireConflict(t, errX, "A1")
			assert.Equal(t, 1, bookedCount(f.store, dep, "A2"))
		default:
			t.Fatalf("round %d: both failed: %v / %v", round, errX, errY)
		}
		assert.Equal(t, 1, bookedCount(f.store, dep, "A1"))
	}
}

func TestCreateBooking_MutualExclusionUnderLoad(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 40)

	const attempts = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.CreateBooking(context.Background(), create(uint64(i+1), dep, "B2", fmt.Sprintf("J%d", i%4+1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, booking.ErrSeatConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, bookedCount(f.store, dep, "B2"))
}

func TestCreateBooking_AtomicOnConflict(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	_, err := f.svc.CreateBooking(context.Background(), create(1, dep, "A2"))
	require.NoError(t, err)
	before := len(f.store.SeatAssignments())

	_, err = f.svc.CreateBooking(context.Background(), create(2, dep, "A1", "A2", "A3"))
	requireConflict(t, err, "A2")
	assert.Len(t, f.store.SeatAssignments(), before)
	assert.Equal(t, 0, bookedCount(f.store, dep, "A1"))
	assert.Equal(t, 0, bookedCount(f.store, dep, "A3"))

	mine, err := f.svc.ListBookings(context.Background(), booking.Actor{UserID: 2})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

// staleStore answers advisory reads from an outdated snapshot while
// transactions see the real state.
type staleStore struct {
	*repository.MemoryStore
}

func (staleStore) BookedSeats(context.Context, uint64) ([]string, error) { return []string{}, nil }

func TestCreateBooking_StaleAdvisoryReadIsNotTrusted(t *testing.T) {
	mem := repository.NewMemoryStore()
	dep := mem.AddDeparture(model.Departure{RouteCode: "R1", DepartsAt: now.Add(48 * time.Hour), TotalSeats: 8, SeatsPerRow: 4, PriceCents: 1000})
	svc := booking.NewService(staleStore{mem}, booking.WithClock(func() time.Time { return now }))

	_, err := svc.CreateBooking(context.Background(), create(1, dep, "A1"))
	require.NoError(t, err)

	// The advisory check sees A1 free; the transactional re-read does not.
	_, err = svc.CreateBooking(context.Background(), create(2, dep, "A1"))
	requireConflict(t, err, "A1")
	assert.Equal(t, 1, bookedCount(mem, dep, "A1"))
}

func TestCreateBooking_AdvisoryPrecheckRejectsEarly(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	_, err := f.svc.CreateBooking(context.Background(), create(1, dep, "A1"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(context.Background(), create(2, dep, "A1", "B1"))
	requireConflict(t, err, "A1")
}

func TestCreateBooking_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	past := f.departure("R1", now.Add(-time.Hour), 8)
	cancelled := f.store.AddDeparture(model.Departure{RouteCode: "R1", DepartsAt: now.Add(time.Hour), TotalSeats: 8, SeatsPerRow: 4, Status: model.DepartureCancelled})
	ctx := context.Background()

	mismatch := create(1, dep, "A1", "A2")
	mismatch.Passengers = mismatch.Passengers[:1]
	noContact := create(1, dep, "A1")
	noContact.Contact = model.Contact{}
	badEmail := create(1, dep, "A1")
	badEmail.Contact.Email = "nope"

	cases := []struct {
		name  string
		req   booking.CreateRequest
		field string
	}{
		{"no departure", create(1, 0, "A1"), "departure_id"},
		{"no seats", create(1, dep), "seats"},
		{"blank seat", create(1, dep, " "), "seats"},
		{"duplicate seat", create(1, dep, "A1", "a1"), "seats"},
		{"passenger count", mismatch, "passengers"},
		{"contact name", noContact, "contact.name"},
		{"contact email", badEmail, "contact.email"},
		{"seat off the map", create(1, dep, "C1"), "seats"},
		{"row label overflow", create(1, dep, strings.Repeat("Z", 14)+"1"), "seats"},
		{"row label too long", create(1, dep, "ZZZZ1"), "seats"},
		{"past departure", create(1, past, "A1"), "departure_id"},
		{"cancelled departure", create(1, cancelled, "A1"), "departure_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(ctx, tc.req)
			requireInvalid(t, err, tc.field)
		})
	}
	assert.Empty(t, f.store.SeatAssignments())
}

func TestCreateBooking_TransactionValidatesWithoutAdvisory(t *testing.T) {
	f := newFixture(t, booking.WithAdvisoryChecks(false))
	past := f.departure("R1", now.Add(-time.Hour), 8)

	_, err := f.svc.CreateBooking(context.Background(), create(1, past, "A1"))
	requireInvalid(t, err, "departure_id")

	_, err = f.svc.CreateBooking(context.Background(), create(1, 999, "A1"))
	assert.True(t, errors.Is(err, booking.ErrNotFound))
}

func TestCreateBooking_BroadcastFailureIsSwallowed(t *testing.T) {
	var logs bytes.Buffer
	f := newFixture(t, booking.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
	f.avail.err = errors.New("broker down")
	dep := f.departure("R1", now.Add(48*time.Hour), 8)

	b, err := f.svc.CreateBooking(context.Background(), create(1, dep, "A1"))
	require.NoError(t, err)
	assert.Equal(t, 1, bookedCount(f.store, dep, "A1"))
	assert.NotZero(t, b.ID)
	assert.Contains(t, logs.String(), "broadcast_failure")
}

func TestCreateBooking_CancelledRequestContextStillBroadcasts(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)

	ctx, cancel := context.WithCancel(context.Background())
	avail := &ctxCheckingPublisher{cancel: cancel}
	svc := booking.NewService(f.store, booking.WithClock(func() time.Time { return now }), booking.WithAvailabilityPublisher(avail))
	_, err := svc.CreateBooking(ctx, create(1, dep, "A1"))
	require.NoError(t, err)
	assert.NoError(t, avail.seen)
}

// ctxCheckingPublisher cancels the request context before checking the
// context it was handed.
type ctxCheckingPublisher struct {
	cancel context.CancelFunc
	seen   error
}

func (p *ctxCheckingPublisher) PublishAvailability(ctx context.Context, _ uint64) error {
	p.cancel()
	p.seen = ctx.Err()
	return nil
}

func TestModifyBooking_ChangeSeats(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, create(1, dep, "A1", "A2"))
	require.NoError(t, err)

	// Keeping A2 does not collide with the booking's own seat.
	m, err := f.svc.ModifyBooking(ctx, booking.ModifyRequest{
		Actor: booking.Actor{UserID: 1}, BookingID: b.ID, Seats: []string{"A2", "A3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A3"}, m.Seats)
	assert.Equal(t, "A3", m.Passengers[1].SeatNumber)
	assert.Equal(t, 0, bookedCount(f.store, dep, "A1"))
	assert.Equal(t, 1, bookedCount(f.store, dep, "A2"))
	assert.Equal(t, 1, bookedCount(f.store, dep, "A3"))
	assert.Equal(t, []string{booking.EventBookingCreated, booking.EventBookingModified}, f.events.events)

	// History is kept: the A1 and old A2 rows are cancelled, not deleted.
	assert.Len(t, f.store.SeatAssignments(), 4)
}

func TestModifyBooking_ConflictKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	mine, err := f.svc.CreateBooking(ctx, create(1, dep, "A1"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, create(2, dep, "B1"))
	require.NoError(t, err)

	for _, advisory := range []bool{true, false} {
		svc := booking.NewService(f.store, booking.WithClock(func() time.Time { return now }), booking.WithAdvisoryChecks(advisory))
		_, err = svc.ModifyBooking(ctx, booking.ModifyRequest{
			Actor: booking.Actor{UserID: 1}, BookingID: mine.ID, Seats: []string{"A1", "B1"},
			Passengers: []model.Passenger{{Name: "x"}, {Name: "y"}},
		})
		requireConflict(t, err, "B1")
	}
	assert.Equal(t, 1, bookedCount(f.store, dep, "A1"), "rolled back modification keeps the old seat")
	got, err := f.svc.GetBooking(ctx, booking.Actor{UserID: 1}, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, got.Seats)
}

func TestModifyBooking_NewTravelDate(t *testing.T) {
	f := newFixture(t)
	day1 := f.departure("IST-ANK", now.Add(24*time.Hour), 8)
	day2 := f.departure("IST-ANK", now.Add(48*time.Hour), 8)
	f.departure("IST-IZM", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, create(1, day1, "A1"))
	require.NoError(t, err)

	travel := now.Add(48 * time.Hour)
	m, err := f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: booking.Actor{UserID: 1}, BookingID: b.ID, TravelDate: &travel})
	require.NoError(t, err)
	assert.Equal(t, day2, m.DepartureID)
	assert.Equal(t, []string{"A1"}, m.Seats)
	assert.Equal(t, 0, bookedCount(f.store, day1, "A1"))
	assert.Equal(t, 1, bookedCount(f.store, day2, "A1"))
	// Both departures are rebroadcast.
	assert.Equal(t, []uint64{day1, day1, day2}, f.avail.published())

	missing := now.Add(96 * time.Hour)
	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: booking.Actor{UserID: 1}, BookingID: b.ID, TravelDate: &missing})
	assert.True(t, errors.Is(err, booking.ErrNotFound))
}

func TestModifyBooking_ExplicitDepartureConflict(t *testing.T) {
	f := newFixture(t)
	from := f.departure("R1", now.Add(24*time.Hour), 8)
	to := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, create(1, from, "A1"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, create(2, to, "A1"))
	require.NoError(t, err)

	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: booking.Actor{UserID: 1}, BookingID: b.ID, DepartureID: to})
	requireConflict(t, err, "A1")
	assert.Equal(t, 1, bookedCount(f.store, from, "A1"))
}

func TestModifyBooking_Rejections(t *testing.T) {
	f := newFixture(t)
	soon := f.departure("R1", now.Add(time.Hour), 8)
	later := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	owner := booking.Actor{UserID: 1}

	b, err := f.svc.CreateBooking(ctx, create(1, soon, "A1"))
	require.NoError(t, err)
	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: owner, BookingID: b.ID, Seats: []string{"A2"}})
	assert.ErrorIs(t, err, booking.ErrModificationWindowClosed)

	c, err := f.svc.CreateBooking(ctx, create(1, later, "A1"))
	require.NoError(t, err)
	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: owner, BookingID: c.ID, Seats: []string{"a1"}})
	requireInvalid(t, err, "seats")

	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: booking.Actor{UserID: 2}, BookingID: c.ID, Seats: []string{"A3"}})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: owner, BookingID: 999, Seats: []string{"A3"}})
	assert.True(t, errors.Is(err, booking.ErrNotFound))

	_, err = f.svc.CancelBooking(ctx, owner, c.ID)
	require.NoError(t, err)
	_, err = f.svc.ModifyBooking(ctx, booking.ModifyRequest{Actor: owner, BookingID: c.ID, Seats: []string{"A3"}})
	requireInvalid(t, err, "booking_id")
}

func TestCancelBooking_ReleasesSeats(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, create(1, dep, "A1", "A2"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, booking.Actor{UserID: 2}, b.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	c, err := f.svc.CancelBooking(ctx, booking.Actor{UserID: 1}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, c.Status)
	assert.Equal(t, 0, bookedCount(f.store, dep, "A1"))

	avail, err := f.svc.Availability(ctx, dep)
	require.NoError(t, err)
	assert.Empty(t, avail.BookedSeats)
	assert.Equal(t, 8, avail.AvailableSeats)

	_, err = f.svc.CancelBooking(ctx, booking.Actor{UserID: 1}, b.ID)
	requireInvalid(t, err, "booking_id")

	// The released seat can be booked again.
	_, err = f.svc.CreateBooking(ctx, create(3, dep, "A1"))
	require.NoError(t, err)
	assert.Equal(t, []string{booking.EventBookingCreated, booking.EventBookingCancelled, booking.EventBookingCreated}, f.events.events)
}

func TestCancelBooking_AdminMayCancelAny(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, create(1, dep, "A1"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, booking.Actor{UserID: 99, Admin: true}, b.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, booking.Actor{UserID: 1}, 0)
	requireInvalid(t, err, "booking_id")
}

func TestCompleteBooking(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	b, err := f.svc.CreateBooking(ctx, create(1, dep, "A1"))
	require.NoError(t, err)

	_, err = f.svc.CompleteBooking(ctx, booking.Actor{UserID: 1}, b.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	c, err := f.svc.CompleteBooking(ctx, booking.Actor{UserID: 7, Admin: true}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, c.Status)
	assert.Equal(t, 1, bookedCount(f.store, dep, "A1"), "completed bookings keep their seats")

	_, err = f.svc.CancelBooking(ctx, booking.Actor{UserID: 1}, b.ID)
	requireInvalid(t, err, "booking_id")
}

func TestListDepartureBookings(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 8)
	ctx := context.Background()
	_, err := f.svc.CreateBooking(ctx, create(1, dep, "A1"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, create(2, dep, "A2"))
	require.NoError(t, err)

	_, err = f.svc.ListDepartureBookings(ctx, booking.Actor{UserID: 1}, dep)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	list, err := f.svc.ListDepartureBookings(ctx, booking.Actor{Admin: true}, dep)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.svc.ListDepartureBookings(ctx, booking.Actor{Admin: true}, 404)
	assert.True(t, errors.Is(err, booking.ErrNotFound))
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	dep := f.departure("R1", now.Add(48*time.Hour), 6)
	_, err := f.svc.CreateBooking(context.Background(), create(1, dep, "B2", "A1"))
	require.NoError(t, err)

	a, err := f.svc.Availability(context.Background(), dep)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, a.BookedSeats)
	assert.Equal(t, 4, a.AvailableSeats)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "B1", "B2"}, a.Layout)
}

func TestCreateBooking_AmountOverflowRejected(t *testing.T) {
	f := newFixture(t)
	dep := f.store.AddDeparture(model.Departure{
		RouteCode: "R1", DepartsAt: now.Add(48 * time.Hour), TotalSeats: 8, SeatsPerRow: 4, PriceCents: math.MaxUint32,
	})

	_, err := f.svc.CreateBooking(context.Background(), create(1, dep, "A1", "A2"))
	requireInvalid(t, err, "seats")
	assert.Empty(t, f.store.SeatAssignments())

	b, err := f.svc.CreateBooking(context.Background(), create(1, dep, "A1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), b.TotalAmountCents)
}

func TestFlatPricer(t *testing.T) {
	d := &model.Departure{PriceCents: 2500}
	amount, err := booking.FlatPricer{}.Price(d, []string{"A1", "A2", "A3"})
	require.NoError(t, err)
	assert.Equal(t, uint32(7500), amount)

	d.PriceCents = math.MaxUint32/2 + 1
	_, err = booking.FlatPricer{}.Price(d, []string{"A1", "A2"})
	assert.ErrorIs(t, err, booking.ErrInvalidRequest)
}
