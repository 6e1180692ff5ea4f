package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultSendBuffer is the outbound queue length of a session.
const DefaultSendBuffer = 64

// Session is one connected client.  It is transport agnostic: an adapter
// feeds inbound frames to HandleFrame and drains Outbound.
type Session struct {
	id     string
	broker *Broker
	relay  *Relay
	log    *slog.Logger
	admin  atomic.Bool

	out       chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session with a fresh client ID and queues the
// connected acknowledgement.
func NewSession(broker *Broker, relay *Relay, sendBuffer int, log *slog.Logger) *Session {
	if broker == nil || relay == nil {
		panic("nil broker or relay passed to realtime.NewSession")
	}
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		id:     uuid.NewString(),
		broker: broker,
		relay:  relay,
		out:    make(chan Envelope, sendBuffer),
		done:   make(chan struct{}),
	}
	s.log = log.With("client_id", s.id)
	s.reply(TypeConnected, ConnectedData{ClientID: s.id})
	return s
}

// GrantAdmin allows the session to subscribe to AdminBookingsChannel.
func (s *Session) GrantAdmin() { s.admin.Store(true) }

// ID implements Client.
func (s *Session) ID() string { return s.id }

// Send implements Client.  It drops env when the queue is full or the
// session is closed.
func (s *Session) Send(env Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// Outbound yields frames to write to the client.
func (s *Session) Outbound() <-chan Envelope { return s.out }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// HandleFrame processes one inbound text frame.  Malformed frames and
// unknown types are ignored.
func (s *Session) HandleFrame(ctx context.Context, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		s.log.Debug("ws_frame_ignored", "reason", "malformed", "error", err)
		return
	}
	switch in.Type {
	case TypeSubscribe:
		ch := in.channel()
		if ch == "" {
			s.log.Debug("ws_frame_ignored", "reason", "missing channel", "type", in.Type)
			return
		}
		if ch == AdminBookingsChannel && !s.admin.Load() {
			// Refused: the client is told it is not subscribed.
			s.log.Debug("ws_subscribe_refused", "channel", ch)
			s.reply(TypeUnsubscribed, ChannelData{Channel: ch})
			return
		}
		if s.broker.Subscribe(s, ch) {
			s.log.Debug("ws_subscribed", "channel", ch)
		}
		s.reply(TypeSubscribed, ChannelData{Channel: ch})
	case TypeUnsubscribe:
		ch := in.channel()
		if ch == "" {
			s.log.Debug("ws_frame_ignored", "reason", "missing channel", "type", in.Type)
			return
		}
		s.broker.Unsubscribe(s, ch)
		s.reply(TypeUnsubscribed, ChannelData{Channel: ch})
	case TypeSeatSelection:
		var sel SeatSelection
		if len(in.Data) == 0 || json.Unmarshal(in.Data, &sel) != nil {
			s.log.Debug("ws_frame_ignored", "reason", "malformed seat_selection")
			return
		}
		s.relay.Forward(ctx, s.id, sel)
	default:
		s.log.Debug("ws_frame_ignored", "reason", "unknown type", "type", in.Type)
	}
}

// Close leaves every channel and clears the client's tentative
// selections.  It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		close(s.done)
		left := s.broker.UnsubscribeAll(s)
		s.relay.Disconnect(ctx, s.id)
		s.log.Debug("ws_session_closed", "channels", len(left))
	})
}

func (s *Session) reply(typ string, data any) {
	env, err := NewEnvelope(typ, data)
	if err != nil {
		s.log.Warn("ws_encode_fail", "type", typ, "error", err)
		return
	}
	if !s.Send(env) {
		s.log.Debug("ws_reply_dropped", "type", typ)
	}
}
