package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.  Handlers translate them into HTTP responses; use
// errors.Is to test for them since most are wrapped or carried by typed
// errors below.
var (
	// ErrSeatConflict means one or more requested seats are already booked.
	// The client should drop the colliding seats and retry.
	ErrSeatConflict = errors.New("seat conflict")
	// ErrInvalidRequest means the request is malformed and must be corrected
	// before it is retried.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound means the departure or booking does not exist.
	ErrNotFound = errors.New("not found")
	// ErrModificationWindowClosed means the change falls inside the cutoff
	// before departure.  It is not retryable.
	ErrModificationWindowClosed = errors.New("modification window closed")
	// ErrForbidden means the booking belongs to another customer.
	ErrForbidden = errors.New("forbidden")
)

// SeatConflictError names exactly the requested seats that collided with the
// authoritative booked set so the client can deselect only those.
type SeatConflictError struct {
	DepartureID uint64
	Seats       []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats no longer available on departure %d: %s", e.DepartureID, strings.Join(e.Seats, ","))
}

// Is makes errors.Is(err, ErrSeatConflict) true.
func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatConflict }

// InvalidRequestError identifies the offending field of a malformed request.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRequest) true.
func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(field, reason string) error {
	return &InvalidRequestError{Field: field, Reason: reason}
}
