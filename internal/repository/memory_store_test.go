package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

func TestMemoryStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewMemoryStore()
	dep := s.AddDeparture(model.Departure{RouteCode: "R", DepartsAt: time.Now().Add(time.Hour), TotalSeats: 4, SeatsPerRow: 2})
	boom := errors.New("boom")

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		b := &model.Booking{DepartureID: dep, Status: model.BookingConfirmed}
		require.NoError(t, tx.InsertBooking(ctx, b))
		require.NoError(t, tx.InsertSeatAssignments(ctx, []model.SeatAssignment{
			{DepartureID: dep, SeatNumber: "A1", BookingID: b.ID, Status: model.SeatBooked},
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.SeatAssignments())
	_, err = s.Booking(context.Background(), 1)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestMemoryStore_DuplicateBookedSeat(t *testing.T) {
	s := NewMemoryStore()
	dep := s.AddDeparture(model.Departure{RouteCode: "R", DepartsAt: time.Now().Add(time.Hour), TotalSeats: 4, SeatsPerRow: 2})
	seat := func(bookingID uint64) []model.SeatAssignment {
		return []model.SeatAssignment{{DepartureID: dep, SeatNumber: "A1", BookingID: bookingID, Status: model.SeatBooked}}
	}
	ctx := context.Background()

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		return tx.InsertSeatAssignments(ctx, seat(1))
	}))
	err := s.RunInTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		return tx.InsertSeatAssignments(ctx, seat(2))
	})
	assert.ErrorIs(t, err, booking.ErrSeatConflict)

	// Once cancelled the seat can be booked again; history is kept.
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx booking.Tx) error {
		released, err := tx.CancelSeatAssignments(ctx, 1)
		assert.Equal(t, []string{"A1"}, released)
		if err != nil {
			return err
		}
		return tx.InsertSeatAssignments(ctx, seat(2))
	}))
	rows := s.SeatAssignments()
	require.Len(t, rows, 2)
	assert.Equal(t, model.SeatCancelled, rows[0].Status)
	assert.Equal(t, model.SeatBooked, rows[1].Status)
}

func TestMemoryStore_DepartureOnDate(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	late := s.AddDeparture(model.Departure{RouteCode: "R", DepartsAt: base.Add(20 * time.Hour)})
	early := s.AddDeparture(model.Departure{RouteCode: "R", DepartsAt: base.Add(6 * time.Hour)})
	s.AddDeparture(model.Departure{RouteCode: "OTHER", DepartsAt: base.Add(time.Hour)})
	_ = late

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		d, err := tx.DepartureOnDate(ctx, "R", base.Add(13*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, early, d.ID)

		_, err = tx.DepartureOnDate(ctx, "R", base.Add(48*time.Hour))
		assert.ErrorIs(t, err, booking.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_ListDepartures(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	a := s.AddDeparture(model.Departure{Origin: "Istanbul", Destination: "Ankara", DepartsAt: now.Add(2 * time.Hour)})
	b := s.AddDeparture(model.Departure{Origin: "Istanbul", Destination: "Izmir", DepartsAt: now.Add(time.Hour)})
	s.AddDeparture(model.Departure{Origin: "Istanbul", Destination: "Ankara", DepartsAt: now.Add(-time.Hour)})
	s.AddDeparture(model.Departure{Origin: "Istanbul", Destination: "Ankara", DepartsAt: now.Add(time.Hour), Status: model.DepartureCancelled})

	all, err := s.ListDepartures(context.Background(), DepartureFilter{Origin: "istanbul"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b, all[0].ID)
	assert.Equal(t, a, all[1].ID)

	toAnkara, err := s.ListDepartures(context.Background(), DepartureFilter{Destination: "ANKARA"})
	require.NoError(t, err)
	require.Len(t, toAnkara, 1)
	assert.Equal(t, a, toAnkara[0].ID)
}
