package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
)

// DepartureScheduler is the write side of departure storage.
type DepartureScheduler interface {
	CreateDeparture(ctx context.Context, d *model.Departure) error
	SetDepartureStatus(ctx context.Context, id uint64, status string) (*model.Departure, error)
}

// AdminDepartureHandler lets admins schedule departures and change their
// status.
type AdminDepartureHandler struct {
	Scheduler DepartureScheduler
	now       func() time.Time
}

func NewAdminDepartureHandler(s DepartureScheduler) *AdminDepartureHandler {
	if s == nil {
		panic("nil scheduler passed to NewAdminDepartureHandler")
	}
	return &AdminDepartureHandler{Scheduler: s, now: time.Now}
}

type createDepartureReq struct {
	RouteCode     string `json:"route_code"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	TransportType string `json:"transport_type"`
	DepartsAt     string `json:"departs_at"`
	TotalSeats    int    `json:"total_seats"`
	SeatsPerRow   int    `json:"seats_per_row"`
	PriceCents    uint32 `json:"price_cents"`
}

var transportTypes = map[string]bool{"bus": true, "train": true, "flight": true}

// Create handles POST /v1/admin/departures.  A route departs at most once
// per UTC day; a second departure that day is a 409.
func (h *AdminDepartureHandler) Create(c echo.Context) error {
	var body createDepartureReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d := model.Departure{
		RouteCode:     strings.ToUpper(strings.TrimSpace(body.RouteCode)),
		Origin:        strings.TrimSpace(body.Origin),
		Destination:   strings.TrimSpace(body.Destination),
		TransportType: strings.ToLower(strings.TrimSpace(body.TransportType)),
		TotalSeats:    body.TotalSeats,
		SeatsPerRow:   body.SeatsPerRow,
		PriceCents:    body.PriceCents,
	}
	if d.SeatsPerRow == 0 {
		d.SeatsPerRow = 4
	}
	if field, msg := validateDeparture(&d); field != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "field": field, "message": msg})
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(body.DepartsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "field": "departs_at", "message": "must be RFC 3339"})
	}
	if !at.After(h.now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "field": "departs_at", "message": "must be in the future"})
	}
	d.DepartsAt = at.UTC()

	if err := h.Scheduler.CreateDeparture(c.Request().Context(), &d); err != nil {
		if errors.Is(err, repository.ErrDepartureExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "route already departs that day"})
		}
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// SetStatus handles PATCH /v1/admin/departures/:id/status.
func (h *AdminDepartureHandler) SetStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status := strings.ToUpper(strings.TrimSpace(body.Status))
	switch status {
	case model.DepartureScheduled, model.DepartureCancelled, model.DepartureDeparted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "field": "status", "message": "must be SCHEDULED, CANCELLED or DEPARTED"})
	}
	d, err := h.Scheduler.SetDepartureStatus(c.Request().Context(), id, status)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func validateDeparture(d *model.Departure) (field, msg string) {
	switch {
	case d.RouteCode == "":
		return "route_code", "is required"
	case d.Origin == "" || d.Destination == "":
		return "origin", "origin and destination are required"
	case !transportTypes[d.TransportType]:
		return "transport_type", "must be bus, train or flight"
	case d.TotalSeats < 1 || d.TotalSeats > 1000:
		return "total_seats", "must be between 1 and 1000"
	case d.SeatsPerRow < 1 || d.SeatsPerRow > 26:
		return "seats_per_row", "must be between 1 and 26"
	}
	return "", ""
}
