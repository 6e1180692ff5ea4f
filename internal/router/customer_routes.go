package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/handler"
	"github.com/iliyamo/travel-seat-reservation/internal/middleware"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// RegisterCustomer registers the booking endpoints.  They require a valid
// JWT and pass through the rate limiter; ownership is checked by the
// booking engine, so admins may use them too.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
		limit,
	)
	g.POST("/bookings", h.Create)
	g.GET("/bookings/:id", h.Get)
	g.PATCH("/bookings/:id", h.Modify)
	g.DELETE("/bookings/:id", h.Cancel)
	g.GET("/my-bookings", h.Mine)
}

// RegisterAdmin registers the back-office endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, d *handler.AdminDepartureHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/bookings/:id/complete", h.Complete)
	g.DELETE("/bookings/:id", h.Cancel)
	g.GET("/departures/:id/bookings", h.DepartureBookings)
	g.POST("/departures", d.Create)
	g.PATCH("/departures/:id/status", d.SetStatus)
}
