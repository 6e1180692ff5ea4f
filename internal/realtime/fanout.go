package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultFanoutPrefix namespaces the Redis pub/sub channels.
const DefaultFanoutPrefix = "seatres:"

const maxFanoutBackoff = 30 * time.Second

// fanoutMessage is the payload carried between instances.
type fanoutMessage struct {
	Origin   string   `json:"origin"`
	Exclude  string   `json:"exclude,omitempty"`
	Envelope Envelope `json:"envelope"`
}

// RedisFanout extends a local Broker across instances.  Every publish is
// delivered locally first and then sent to Redis; Run re-delivers messages
// from other instances to the local broker.
type RedisFanout struct {
	local  *Broker
	rdb    *redis.Client
	origin string
	prefix string
	log    *slog.Logger

	// first wait between subscription attempts in Serve
	retryMin time.Duration
}

var _ Publisher = (*RedisFanout)(nil)

// NewRedisFanout bridges local to rdb.  origin must be unique per instance.
func NewRedisFanout(local *Broker, rdb *redis.Client, origin string, log *slog.Logger) *RedisFanout {
	if local == nil || rdb == nil {
		panic("nil broker or redis client passed to realtime.NewRedisFanout")
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisFanout{local: local, rdb: rdb, origin: origin, prefix: DefaultFanoutPrefix, log: log, retryMin: time.Second}
}

// Publish implements Publisher.  Local subscribers are served even when
// Redis is unreachable; the Redis error is returned.
func (f *RedisFanout) Publish(ctx context.Context, channel string, env Envelope, excludeClientID string) error {
	_ = f.local.Publish(ctx, channel, env, excludeClientID)
	payload, err := json.Marshal(fanoutMessage{Origin: f.origin, Exclude: excludeClientID, Envelope: env})
	if err != nil {
		return fmt.Errorf("encode fanout message: %w", err)
	}
	if err := f.rdb.Publish(ctx, f.prefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Serve runs the subscription until ctx is cancelled, resubscribing with
// exponential backoff whenever it fails, including when Redis is down at
// start.  ready, if not nil, is closed after the first confirmed
// subscription.
func (f *RedisFanout) Serve(ctx context.Context, ready chan<- struct{}) error {
	var once sync.Once
	onReady := func() {
		if ready != nil {
			once.Do(func() { close(ready) })
		}
	}
	backoff := f.retryMin
	for {
		subscribed, err := f.run(ctx, onReady)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			backoff = f.retryMin
		}
		f.log.Warn("fanout_resubscribe", "error", err, "retry_in", backoff)
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if backoff < maxFanoutBackoff {
			backoff *= 2
		}
	}
}

// Run subscribes to every fan-out channel and blocks until ctx is done.
// ready, if not nil, is closed once the subscription is confirmed.  It
// does not retry; see Serve.
func (f *RedisFanout) Run(ctx context.Context, ready chan<- struct{}) error {
	_, err := f.run(ctx, func() {
		if ready != nil {
			close(ready)
		}
	})
	return err
}

func (f *RedisFanout) run(ctx context.Context, onReady func()) (subscribed bool, err error) {
	sub := f.rdb.PSubscribe(ctx, f.prefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("redis psubscribe: %w", err)
	}
	onReady()
	f.log.Info("fanout_started", "origin", f.origin)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return true, errors.New("redis subscription closed")
			}
			f.deliver(ctx, m)
		}
	}
}

func (f *RedisFanout) deliver(ctx context.Context, m *redis.Message) {
	var fm fanoutMessage
	if err := json.Unmarshal([]byte(m.Payload), &fm); err != nil {
		f.log.Warn("fanout_decode_fail", "channel", m.Channel, "error", err)
		return
	}
	if fm.Origin == f.origin {
		return
	}
	channel := strings.TrimPrefix(m.Channel, f.prefix)
	_ = f.local.Publish(ctx, channel, fm.Envelope, fm.Exclude)
}
