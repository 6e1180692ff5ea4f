// Package repository implements storage for the booking engine, users and
// refresh tokens, on MySQL and in memory.  Booking-related lookups report
// missing rows with booking.ErrNotFound; the account repositories use the
// sentinels below.
package repository

import "errors"

// ErrEmailExists is returned when registering an email that is already
// taken.  Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidRefresh is returned for unknown, revoked or expired refresh
// tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// ErrDepartureExists is returned when a route already has a departure on
// the requested day.
var ErrDepartureExists = errors.New("route already departs that day")
