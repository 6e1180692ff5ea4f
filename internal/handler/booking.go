package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
	"github.com/iliyamo/travel-seat-reservation/internal/middleware"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// BookingHandler exposes the booking engine to customers and admins.  It
// expects JWTAuth to have run.
type BookingHandler struct {
	Bookings *booking.Service
}

// NewBookingHandler panics on a nil service.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: svc}
}

type createBookingReq struct {
	DepartureID uint64            `json:"departure_id"`
	Seats       []string          `json:"seats"`
	Passengers  []model.Passenger `json:"passengers"`
	Contact     model.Contact     `json:"contact"`
}

// modifyBookingReq is the PATCH body.  Absent fields keep their value;
// travel_date is YYYY-MM-DD.
type modifyBookingReq struct {
	Seats       []string          `json:"seats"`
	DepartureID uint64            `json:"departure_id"`
	TravelDate  string            `json:"travel_date"`
	Passengers  []model.Passenger `json:"passengers"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	act, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Bookings.CreateBooking(c.Request().Context(), booking.CreateRequest{
		Actor:       act,
		DepartureID: req.DepartureID,
		Seats:       req.Seats,
		Passengers:  req.Passengers,
		Contact:     req.Contact,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	act, id, ok := actorAndID(c, "id")
	if !ok {
		return nil
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), act, id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Modify handles PATCH /v1/bookings/:id.
func (h *BookingHandler) Modify(c echo.Context) error {
	act, id, ok := actorAndID(c, "id")
	if !ok {
		return nil
	}
	var req modifyBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	mr := booking.ModifyRequest{
		Actor:       act,
		BookingID:   id,
		Seats:       req.Seats,
		DepartureID: req.DepartureID,
		Passengers:  req.Passengers,
	}
	if req.TravelDate != "" {
		day, err := time.Parse(time.DateOnly, req.TravelDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid_request", "field": "travel_date", "message": "must be YYYY-MM-DD",
			})
		}
		mr.TravelDate = &day
	}
	b, err := h.Bookings.ModifyBooking(c.Request().Context(), mr)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id and DELETE /v1/admin/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	act, id, ok := actorAndID(c, "id")
	if !ok {
		return nil
	}
	b, err := h.Bookings.CancelBooking(c.Request().Context(), act, id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Complete handles POST /v1/admin/bookings/:id/complete.
func (h *BookingHandler) Complete(c echo.Context) error {
	act, id, ok := actorAndID(c, "id")
	if !ok {
		return nil
	}
	b, err := h.Bookings.CompleteBooking(c.Request().Context(), act, id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	act, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Bookings.ListBookings(c.Request().Context(), act)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// DepartureBookings handles GET /v1/admin/departures/:id/bookings.
func (h *BookingHandler) DepartureBookings(c echo.Context) error {
	act, id, ok := actorAndID(c, "id")
	if !ok {
		return nil
	}
	list, err := h.Bookings.ListDepartureBookings(c.Request().Context(), act, id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

func actor(c echo.Context) (booking.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return booking.Actor{}, false
	}
	return booking.Actor{UserID: id, Admin: middleware.Role(c) == model.RoleAdmin}, true
}

// actorAndID resolves the caller and a positive path ID.  When it reports
// false the error response has already been written.
func actorAndID(c echo.Context, param string) (booking.Actor, uint64, bool) {
	act, ok := actor(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return act, 0, false
	}
	id, ok := pathID(c, param)
	if !ok {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + param})
		return act, 0, false
	}
	return act, id, true
}

func pathID(c echo.Context, param string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	return id, err == nil && id != 0
}
