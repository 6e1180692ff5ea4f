// Package realtime carries live seat traffic between connected shoppers:
// a channel broker, per-connection sessions, the seat intent relay and the
// availability broadcaster.  Nothing here is persisted.
package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Message types exchanged with clients.
const (
	TypeConnected     = "connected"
	TypeSubscribe     = "subscribe"
	TypeSubscribed    = "subscribed"
	TypeUnsubscribe   = "unsubscribe"
	TypeUnsubscribed  = "unsubscribed"
	TypeSeatSelection = "seat_selection"
	TypeSeatUpdate    = "seat_update"
)

// AdminBookingsChannel receives booking lifecycle notifications.
const AdminBookingsChannel = "admin:bookings"

const departurePrefix = "departure:"

// Envelope is the frame sent to clients: {"type": ..., "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data under the given type.
func NewEnvelope(typ string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", typ, err)
	}
	return Envelope{Type: typ, Data: raw}, nil
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty data", e.Type)
	}
	return json.Unmarshal(e.Data, v)
}

// ConnectedData is the first frame of every session.
type ConnectedData struct {
	ClientID string `json:"clientId"`
}

// ChannelData acknowledges subscribe and unsubscribe requests.
type ChannelData struct {
	Channel string `json:"channel"`
}

// SeatSelection is a client's full current set of highlighted seats on one
// departure.  An empty SelectedSeats clears the client's selection.
type SeatSelection struct {
	DepartureID   uint64   `json:"departureId"`
	SelectedSeats []string `json:"selectedSeats"`
	ClientID      string   `json:"clientId"`
}

// SeatUpdate is the authoritative availability snapshot of a departure.
// Clients replace their view with it rather than merging.
type SeatUpdate struct {
	DepartureID    uint64   `json:"departureId"`
	AvailableSeats int      `json:"availableSeats"`
	BookedSeats    []string `json:"bookedSeats"`
}

// BookingNotice is published on AdminBookingsChannel after a booking changes.
type BookingNotice struct {
	BookingID        uint64   `json:"bookingId"`
	DepartureID      uint64   `json:"departureId"`
	UserID           uint64   `json:"userId"`
	Status           string   `json:"status"`
	Seats            []string `json:"seats"`
	TotalAmountCents uint32   `json:"totalAmountCents"`
}

// inbound is the loosely-typed client frame.  The channel of a subscribe
// request may be given at the top level or inside data.
type inbound struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func (in inbound) channel() string {
	if in.Channel != "" {
		return in.Channel
	}
	var cd ChannelData
	if len(in.Data) > 0 && json.Unmarshal(in.Data, &cd) == nil {
		return cd.Channel
	}
	return ""
}

// DepartureChannel names the channel of a departure.  Clients compute the
// same name from the departure ID.
func DepartureChannel(departureID uint64) string {
	return departurePrefix + strconv.FormatUint(departureID, 10)
}

// ParseDepartureChannel extracts the departure ID from a departure channel
// name.
func ParseDepartureChannel(channel string) (uint64, bool) {
	rest, ok := strings.CutPrefix(channel, departurePrefix)
	if !ok || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
