package model

import "time"

// Booking statuses.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// Booking aggregates the seats, passengers and contact details of one
// purchase on one departure.  It is created together with its seat
// assignments in a single transaction.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – customer who owns the booking.
//  DepartureID      – departure the seats belong to.
//  Status           – CONFIRMED, CANCELLED or COMPLETED.
//  Seats            – seat labels currently held (status=booked).
//  Passengers       – one passenger per seat.
//  Contact          – who to reach about the booking.
//  TotalAmountCents – amount charged for all seats.
type Booking struct {
	ID               uint64      `json:"id"`
	UserID           uint64      `json:"user_id"`
	DepartureID      uint64      `json:"departure_id"`
	Status           string      `json:"status"`
	Seats            []string    `json:"seats"`
	Passengers       []Passenger `json:"passengers"`
	Contact          Contact     `json:"contact"`
	TotalAmountCents uint32      `json:"total_amount_cents"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Passenger travels on one seat of a booking.
type Passenger struct {
	Name       string `json:"name"`
	DocumentNo string `json:"document_no,omitempty"`
	SeatNumber string `json:"seat_number"`
}

// Contact holds the booking's contact information.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Open reports whether the booking can still be modified or cancelled.
func (b *Booking) Open() bool { return b.Status == BookingConfirmed }
