package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

func newDeparture(route string, at time.Time) *model.Departure {
	return &model.Departure{
		RouteCode: route, Origin: "Istanbul", Destination: "Ankara", TransportType: "bus",
		DepartsAt: at, TotalSeats: 12, SeatsPerRow: 4, PriceCents: 2500,
	}
}

func TestSQLStore_CreateDeparture(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM departures WHERE route_code = \? .* FOR UPDATE`).
		WithArgs("IST-ANK", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO departures`).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	d := newDeparture("IST-ANK", at)
	require.NoError(t, store.CreateDeparture(context.Background(), d))
	assert.Equal(t, uint64(11), d.ID)
	assert.Equal(t, model.DepartureScheduled, d.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateDepartureSameDay(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM departures`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectRollback()

	err := store.CreateDeparture(context.Background(), newDeparture("IST-ANK", fixedNow))
	assert.ErrorIs(t, err, ErrDepartureExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SetDepartureStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE departures SET status = \? WHERE id = \?`).
		WithArgs(model.DepartureCancelled, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows([]string{"id", "route_code", "origin", "destination", "transport_type", "departs_at", "total_seats", "seats_per_row", "price_cents", "status"}).
		AddRow(7, "IST-ANK", "Istanbul", "Ankara", "bus", fixedNow, 12, 4, 2500, model.DepartureCancelled)
	mock.ExpectQuery(`SELECT .* FROM departures WHERE id = \?`).WithArgs(7).WillReturnRows(rows)

	d, err := store.SetDepartureStatus(context.Background(), 7, model.DepartureCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.DepartureCancelled, d.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_CreateDepartureOncePerRouteDay(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	morning := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	first := newDeparture("IST-ANK", morning)
	require.NoError(t, s.CreateDeparture(ctx, first))
	assert.NotZero(t, first.ID)

	err := s.CreateDeparture(ctx, newDeparture("IST-ANK", morning.Add(10*time.Hour)))
	assert.ErrorIs(t, err, ErrDepartureExists)

	require.NoError(t, s.CreateDeparture(ctx, newDeparture("IST-ANK", morning.Add(24*time.Hour))))
	require.NoError(t, s.CreateDeparture(ctx, newDeparture("ANK-IZM", morning)))
}

func TestMemoryStore_SetDepartureStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id := s.AddDeparture(*newDeparture("IST-ANK", fixedNow.Add(48*time.Hour)))

	d, err := s.SetDepartureStatus(ctx, id, model.DepartureCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.DepartureCancelled, d.Status)

	_, err = s.SetDepartureStatus(ctx, 999, model.DepartureCancelled)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}
