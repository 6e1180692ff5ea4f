// Package router registers the HTTP API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/handler"
	"github.com/iliyamo/travel-seat-reservation/internal/middleware"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// RegisterRoutes registers the unauthenticated endpoints: health probes,
// the departure catalogue and the websocket.  cache wraps the departure
// listing only; seat availability is always read fresh.
func RegisterRoutes(e *echo.Echo, d *handler.DepartureHandler, ws *handler.WSHandler, cache echo.MiddlewareFunc, checks ...handler.Check) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks...))

	e.GET("/v1/departures", d.List, cache)
	e.GET("/v1/departures/:id", d.Get)
	e.GET("/v1/departures/:id/seats", d.Seats)

	e.GET("/ws", ws.Handle)
}

// RegisterAuth registers token endpoints under /v1/auth and the protected
// /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes a refresh token or a bearer token, so it is not behind
	// JWTAuth.
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
}
