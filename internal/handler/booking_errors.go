package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/booking"
)

// bookingError writes the HTTP response for an error returned by the
// booking engine.
func bookingError(c echo.Context, err error) error {
	var conflict *booking.SeatConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":             "seat_conflict",
			"message":           "some seats are no longer available",
			"departure_id":      conflict.DepartureID,
			"conflicting_seats": conflict.Seats,
		})
	}
	if errors.Is(err, booking.ErrSeatConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_conflict", "conflicting_seats": []string{}})
	}
	var invalid *booking.InvalidRequestError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid_request",
			"field":   invalid.Field,
			"message": invalid.Reason,
		})
	}
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, booking.ErrModificationWindowClosed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "modification_window_closed"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	slog.Error("booking_request_failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
}
