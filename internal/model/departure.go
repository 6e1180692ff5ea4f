package model

import "time"

// Departure statuses.
const (
	DepartureScheduled = "SCHEDULED"
	DepartureCancelled = "CANCELLED"
	DepartureDeparted  = "DEPARTED"
)

// Departure is a scheduled trip instance (a route on a specific date and
// time) with a fixed seat inventory.  Seats are laid out SeatsPerRow to a
// row and labelled by the seatmap package (A1, A2, ... B1, ...).
//
// Fields:
//  ID            – primary key identifier.
//  RouteCode     – identifies the route; departures of one route share it.
//  Origin        – departure city or station.
//  Destination   – arrival city or station.
//  TransportType – bus, train or flight.
//  DepartsAt     – scheduled departure time (UTC).
//  TotalSeats    – seat inventory of the vehicle.
//  SeatsPerRow   – seat map width.
//  PriceCents    – flat per-seat fare.
//  Status        – SCHEDULED, CANCELLED or DEPARTED.
type Departure struct {
	ID            uint64    `json:"id"`             // departures.id
	RouteCode     string    `json:"route_code"`     // departures.route_code
	Origin        string    `json:"origin"`         // departures.origin
	Destination   string    `json:"destination"`    // departures.destination
	TransportType string    `json:"transport_type"` // departures.transport_type
	DepartsAt     time.Time `json:"departs_at"`     // departures.departs_at
	TotalSeats    int       `json:"total_seats"`    // departures.total_seats
	SeatsPerRow   int       `json:"seats_per_row"`  // departures.seats_per_row
	PriceCents    uint32    `json:"price_cents"`    // departures.price_cents
	Status        string    `json:"status"`         // departures.status
}

// Bookable reports whether new seats may be committed against d at now.
func (d *Departure) Bookable(now time.Time) bool {
	return d.Status == DepartureScheduled && d.DepartsAt.After(now)
}
