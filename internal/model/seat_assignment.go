package model

// Seat assignment statuses.
const (
	SeatBooked    = "booked"
	SeatCancelled = "cancelled"
)

// SeatAssignment binds one seat on one departure to one booking.  Rows are
// never deleted: cancellation and modification flip Status to cancelled and
// new rows are appended.  For a given DepartureID and SeatNumber at most one
// row is booked at any time.
type SeatAssignment struct {
	ID          uint64 // seat_assignments.id
	DepartureID uint64 // seat_assignments.departure_id
	SeatNumber  string // seat_assignments.seat_number
	BookingID   uint64 // seat_assignments.booking_id
	Status      string // seat_assignments.status
}
