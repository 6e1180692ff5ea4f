package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
)

// DepartureCatalog is the read side of departure storage.
type DepartureCatalog interface {
	Departure(ctx context.Context, id uint64) (*model.Departure, error)
	ListDepartures(ctx context.Context, f repository.DepartureFilter) ([]model.Departure, error)
}

// DepartureHandler serves the public departure endpoints.
type DepartureHandler struct {
	Catalog  DepartureCatalog
	Bookings *booking.Service
}

func NewDepartureHandler(catalog DepartureCatalog, svc *booking.Service) *DepartureHandler {
	if catalog == nil || svc == nil {
		panic("nil dependency passed to NewDepartureHandler")
	}
	return &DepartureHandler{Catalog: catalog, Bookings: svc}
}

// List handles GET /v1/departures?origin=&destination=&date=YYYY-MM-DD&limit=.
func (h *DepartureHandler) List(c echo.Context) error {
	f := repository.DepartureFilter{
		Origin:      strings.TrimSpace(c.QueryParam("origin")),
		Destination: strings.TrimSpace(c.QueryParam("destination")),
	}
	if v := c.QueryParam("date"); v != "" {
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		f.Date = &day
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		f.Limit = n
	}
	items, err := h.Catalog.ListDepartures(c.Request().Context(), f)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/departures/:id.
func (h *DepartureHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	d, err := h.Catalog.Departure(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Seats handles GET /v1/departures/:id/seats, the polling fallback for
// clients without a live connection.
func (h *DepartureHandler) Seats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	a, err := h.Bookings.Availability(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, a)
}
