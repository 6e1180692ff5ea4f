package realtime

import (
	"context"
	"log/slog"
	"time"
)

// relayPublishTimeout bounds publishes triggered by timers and disconnects,
// which have no request context.
const relayPublishTimeout = 5 * time.Second

// Relay echoes tentative seat selections to the other shoppers on a
// departure.  It never checks seats against bookings: the booking engine is
// the only authority.  Selections that are not refreshed within the TTL are
// cleared for everyone by publishing an empty selection on the client's
// behalf.
type Relay struct {
	pub        Publisher
	selections *selectionTracker
	log        *slog.Logger
}

// NewRelay returns a relay publishing through pub.  A ttl <= 0 uses
// DefaultSelectionTTL.
func NewRelay(pub Publisher, ttl time.Duration, log *slog.Logger) *Relay {
	if pub == nil {
		panic("nil publisher passed to realtime.NewRelay")
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Relay{pub: pub, log: log}
	r.selections = newSelectionTracker(ttl, r.expire)
	return r
}

// Forward republishes sel to the departure's channel, excluding the sender.
// Seat labels go out exactly as the client sent them.  The clientId carried
// to peers is always senderID, whatever the client put in the frame.
func (r *Relay) Forward(ctx context.Context, senderID string, sel SeatSelection) {
	if sel.DepartureID == 0 {
		r.log.Debug("seat_selection_ignored", "client_id", senderID, "reason", "missing departureId")
		return
	}
	if sel.SelectedSeats == nil {
		sel.SelectedSeats = []string{}
	}
	sel.ClientID = senderID
	r.selections.touch(senderID, sel.DepartureID, len(sel.SelectedSeats) > 0)
	r.publish(ctx, sel)
}

// Disconnect clears every live selection of a departed client.
func (r *Relay) Disconnect(ctx context.Context, clientID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), relayPublishTimeout)
	defer cancel()
	for _, dep := range r.selections.drop(clientID) {
		r.publish(ctx, SeatSelection{DepartureID: dep, SelectedSeats: []string{}, ClientID: clientID})
	}
}

// Close stops all pending expiry timers.
func (r *Relay) Close() { r.selections.stop() }

func (r *Relay) expire(clientID string, departureID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	r.log.Debug("seat_selection_expired", "client_id", clientID, "departure_id", departureID)
	r.publish(ctx, SeatSelection{DepartureID: departureID, SelectedSeats: []string{}, ClientID: clientID})
}

func (r *Relay) publish(ctx context.Context, sel SeatSelection) {
	env, err := NewEnvelope(TypeSeatSelection, sel)
	if err != nil {
		r.log.Warn("seat_selection_encode_fail", "client_id", sel.ClientID, "error", err)
		return
	}
	if err := r.pub.Publish(ctx, DepartureChannel(sel.DepartureID), env, sel.ClientID); err != nil {
		r.log.Warn("seat_selection_publish_fail", "client_id", sel.ClientID, "departure_id", sel.DepartureID, "error", err)
	}
}
