package realtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// SeatSource reads a departure's seat inventory and authoritative booked
// set.  booking.Store satisfies it.
type SeatSource interface {
	Departure(ctx context.Context, id uint64) (*model.Departure, error)
	BookedSeats(ctx context.Context, departureID uint64) ([]string, error)
}

// Broadcaster turns durable booking changes into live messages.
type Broadcaster struct {
	pub   Publisher
	seats SeatSource
}

var (
	_ booking.AvailabilityPublisher = (*Broadcaster)(nil)
	_ booking.EventPublisher        = (*Broadcaster)(nil)
)

// NewBroadcaster returns a broadcaster reading from seats and publishing
// through pub.
func NewBroadcaster(pub Publisher, seats SeatSource) *Broadcaster {
	if pub == nil || seats == nil {
		panic("nil dependency passed to realtime.NewBroadcaster")
	}
	return &Broadcaster{pub: pub, seats: seats}
}

// PublishAvailability publishes the departure's current seat_update to
// every subscriber of its channel, the booking client included.
func (b *Broadcaster) PublishAvailability(ctx context.Context, departureID uint64) error {
	dep, err := b.seats.Departure(ctx, departureID)
	if err != nil {
		return fmt.Errorf("load departure %d: %w", departureID, err)
	}
	booked, err := b.seats.BookedSeats(ctx, departureID)
	if err != nil {
		return fmt.Errorf("load booked seats of departure %d: %w", departureID, err)
	}
	booked = slices.Clone(booked)
	slices.Sort(booked)
	free := dep.TotalSeats - len(booked)
	if free < 0 {
		free = 0
	}
	env, err := NewEnvelope(TypeSeatUpdate, SeatUpdate{
		DepartureID:    departureID,
		AvailableSeats: free,
		BookedSeats:    booked,
	})
	if err != nil {
		return err
	}
	return b.pub.Publish(ctx, DepartureChannel(departureID), env, "")
}

// PublishBookingEvent notifies the admin channel of a booking change.
func (b *Broadcaster) PublishBookingEvent(ctx context.Context, eventType string, bk *model.Booking) error {
	seats := bk.Seats
	if seats == nil {
		seats = []string{}
	}
	env, err := NewEnvelope(eventType, BookingNotice{
		BookingID:        bk.ID,
		DepartureID:      bk.DepartureID,
		UserID:           bk.UserID,
		Status:           bk.Status,
		Seats:            seats,
		TotalAmountCents: bk.TotalAmountCents,
	})
	if err != nil {
		return err
	}
	return b.pub.Publish(ctx, AdminBookingsChannel, env, "")
}
