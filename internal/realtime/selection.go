package realtime

import (
	"sort"
	"sync"
	"time"
)

// DefaultSelectionTTL is how long a tentative selection lives without a
// fresh update from its client.
const DefaultSelectionTTL = 2 * time.Minute

type selectionKey struct {
	clientID    string
	departureID uint64
}

type selectionEntry struct {
	timer *time.Timer
	gen   uint64
}

// selectionTracker expires tentative selections.  It stores no seats, only
// one timer per (client, departure) with a live non-empty selection.
type selectionTracker struct {
	ttl    time.Duration
	expire func(clientID string, departureID uint64)

	mu      sync.Mutex
	entries map[selectionKey]*selectionEntry
	gen     uint64
	stopped bool
}

func newSelectionTracker(ttl time.Duration, expire func(clientID string, departureID uint64)) *selectionTracker {
	if ttl <= 0 {
		ttl = DefaultSelectionTTL
	}
	return &selectionTracker{
		ttl:     ttl,
		expire:  expire,
		entries: make(map[selectionKey]*selectionEntry),
	}
}

// touch records an update.  A non-empty selection (re)starts the timer; an
// empty one cancels it.
func (t *selectionTracker) touch(clientID string, departureID uint64, live bool) {
	key := selectionKey{clientID, departureID}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		e.timer.Stop()
		delete(t.entries, key)
	}
	if !live || t.stopped {
		return
	}
	t.gen++
	gen := t.gen
	t.entries[key] = &selectionEntry{
		gen:   gen,
		timer: time.AfterFunc(t.ttl, func() { t.fire(key, gen) }),
	}
}

// fire publishes the expiry while holding mu, so a concurrent touch for the
// same client cannot be forwarded before the clear it supersedes.
func (t *selectionTracker) fire(key selectionKey, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || e.gen != gen {
		// Superseded by a newer update or already dropped.
		return
	}
	delete(t.entries, key)
	t.expire(key.clientID, key.departureID)
}

// drop cancels every timer of a client and returns the departures it had a
// live selection on, in ascending order.
func (t *selectionTracker) drop(clientID string) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var deps []uint64
	for key, e := range t.entries {
		if key.clientID != clientID {
			continue
		}
		e.timer.Stop()
		delete(t.entries, key)
		deps = append(deps, key.departureID)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	return deps
}

// live reports whether the client has an unexpired selection on departure.
func (t *selectionTracker) live(clientID string, departureID uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[selectionKey{clientID, departureID}]
	return ok
}

func (t *selectionTracker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for key, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, key)
	}
}
