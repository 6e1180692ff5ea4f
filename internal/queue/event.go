// Package queue carries durable booking events over RabbitMQ: a publisher
// the booking engine notifies after each commit and a consumer that appends
// every event to the booking log.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// DefaultQueue is the durable queue booking events are routed to.
const DefaultQueue = "booking.events"

// BookingEvent is published when a booking is created, modified, cancelled
// or completed.  It contains enough for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type BookingEvent struct {
	Type             string   `json:"type"`
	BookingID        uint64   `json:"booking_id"`
	UserID           uint64   `json:"user_id"`
	DepartureID      uint64   `json:"departure_id"`
	Status           string   `json:"status"`
	Seats            []string `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	OccurredAt       string   `json:"occurred_at"`
}

// NewBookingEvent snapshots b.
func NewBookingEvent(eventType string, b *model.Booking, at time.Time) BookingEvent {
	seats := append([]string(nil), b.Seats...)
	if seats == nil {
		seats = []string{}
	}
	return BookingEvent{
		Type:             eventType,
		BookingID:        b.ID,
		UserID:           b.UserID,
		DepartureID:      b.DepartureID,
		Status:           b.Status,
		Seats:            seats,
		TotalAmountCents: b.TotalAmountCents,
		OccurredAt:       at.UTC().Format(time.RFC3339),
	}
}

// LogLine renders ev as one human-friendly line ending in a newline.
func (ev BookingEvent) LogLine() string {
	return fmt.Sprintf("[%s] %s | booking_id=%d | user_id=%d | departure_id=%d | status=%s | total=%d cents | seats=[%s]\n",
		ev.OccurredAt, ev.Type, ev.BookingID, ev.UserID, ev.DepartureID, ev.Status, ev.TotalAmountCents, strings.Join(ev.Seats, ","))
}
