package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// Client is a connected subscriber.  Send must not block: a client that
// cannot take the envelope right now drops it.
type Client interface {
	ID() string
	Send(env Envelope) bool
}

// Publisher delivers an envelope to every subscriber of a channel except
// the client named by excludeClientID (empty excludes nobody).  Delivery is
// at-most-once and fire-and-forget; an error only reports that the message
// could not be handed to the transport.
type Publisher interface {
	Publish(ctx context.Context, channel string, env Envelope, excludeClientID string) error
}

// Broker is the in-process channel registry.  It only reaches clients
// connected to this process; see RedisFanout for multi-instance delivery.
type Broker struct {
	mu       sync.RWMutex
	channels map[string]map[string]Client
	log      *slog.Logger
}

var _ Publisher = (*Broker)(nil)

// NewBroker returns an empty broker.
func NewBroker(log *slog.Logger) *Broker {
	if log == nil {
		log = slog.Default()
	}
	return &Broker{channels: make(map[string]map[string]Client), log: log}
}

// Subscribe adds c to channel.  It reports whether c was not yet
// subscribed; subscribing twice is not an error.
func (b *Broker) Subscribe(c Client, channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.channels[channel]
	if !ok {
		subs = make(map[string]Client)
		b.channels[channel] = subs
	}
	if _, exists := subs[c.ID()]; exists {
		return false
	}
	subs[c.ID()] = c
	return true
}

// Unsubscribe removes c from channel and prunes the channel once empty.
// It reports whether c was subscribed.
func (b *Broker) Unsubscribe(c Client, channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(c.ID(), channel)
}

// UnsubscribeAll removes c from every channel and returns the channels it
// left.
func (b *Broker) UnsubscribeAll(c Client) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var left []string
	for channel := range b.channels {
		if b.remove(c.ID(), channel) {
			left = append(left, channel)
		}
	}
	return left
}

func (b *Broker) remove(clientID, channel string) bool {
	subs, ok := b.channels[channel]
	if !ok {
		return false
	}
	if _, ok := subs[clientID]; !ok {
		return false
	}
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(b.channels, channel)
	}
	return true
}

// Publish implements Publisher.  Publishing to a channel without
// subscribers is a no-op.  It never returns an error.
func (b *Broker) Publish(_ context.Context, channel string, env Envelope, excludeClientID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, c := range b.channels[channel] {
		if id == excludeClientID {
			continue
		}
		if !c.Send(env) {
			b.log.Debug("broker_drop", "channel", channel, "client_id", id, "type", env.Type)
		}
	}
	return nil
}

// Subscribers returns the number of clients subscribed to channel.
func (b *Broker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}
