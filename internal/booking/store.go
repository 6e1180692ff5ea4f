package booking

import (
	"context"
	"math"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// Store is the persistent storage the engine commits against.  Reads on the
// Store itself are non-transactional and only ever used for advisory checks;
// every mutation goes through RunInTx.  Lookups of missing rows return an
// error wrapping ErrNotFound.
type Store interface {
	Departure(ctx context.Context, id uint64) (*model.Departure, error)
	BookedSeats(ctx context.Context, departureID uint64) ([]string, error)
	Booking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListBookingsByDeparture(ctx context.Context, departureID uint64) ([]model.Booking, error)
	// RunInTx executes fn all-or-nothing with at least read-committed
	// isolation.  A non-nil error from fn rolls every write back.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available inside RunInTx.
type Tx interface {
	// Departure reads a departure without locking it.
	Departure(ctx context.Context, id uint64) (*model.Departure, error)
	// DepartureForUpdate loads a departure and locks it until the
	// transaction ends.  Writers of a departure's seats lock it first so that
	// concurrent bookers of one departure are serialised.
	DepartureForUpdate(ctx context.Context, id uint64) (*model.Departure, error)
	// DepartureOnDate finds the departure of a route leaving on the given
	// calendar day (UTC) without locking it.
	DepartureOnDate(ctx context.Context, routeCode string, day time.Time) (*model.Departure, error)
	// BookedSeats re-reads the authoritative booked set for a departure.
	BookedSeats(ctx context.Context, departureID uint64) ([]string, error)
	BookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	// InsertBooking stores b and assigns its ID.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// InsertSeatAssignments appends booked rows.  A store that detects a
	// duplicate booked seat returns an error wrapping ErrSeatConflict.
	InsertSeatAssignments(ctx context.Context, seats []model.SeatAssignment) error
	// CancelSeatAssignments flips every booked row of the booking to
	// cancelled and returns the released seat numbers.
	CancelSeatAssignments(ctx context.Context, bookingID uint64) ([]string, error)
	// UpdateBooking persists departure, status, passengers and amount.
	UpdateBooking(ctx context.Context, b *model.Booking) error
}

// AvailabilityPublisher pushes a departure's authoritative snapshot to live
// subscribers.
type AvailabilityPublisher interface {
	PublishAvailability(ctx context.Context, departureID uint64) error
}

// EventPublisher receives durable booking state changes.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, eventType string, b *model.Booking) error
}

// Pricer computes the amount charged for a set of seats.  An amount that
// cannot be represented is an error.
type Pricer interface {
	Price(d *model.Departure, seats []string) (uint32, error)
}

// FlatPricer charges the departure's flat fare for every seat.
type FlatPricer struct{}

// Price implements Pricer.
func (FlatPricer) Price(d *model.Departure, seats []string) (uint32, error) {
	total := uint64(d.PriceCents) * uint64(len(seats))
	if total > math.MaxUint32 {
		return 0, invalid("seats", "total amount exceeds the payable limit")
	}
	return uint32(total), nil
}
