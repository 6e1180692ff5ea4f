package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s *Session) {
	for {
		select {
		case <-s.Outbound():
		default:
			return
		}
	}
}

func waitSelection(t *testing.T, s *Session, within time.Duration) SeatSelection {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case env := <-s.Outbound():
			if env.Type != TypeSeatSelection {
				continue
			}
			var sel SeatSelection
			require.NoError(t, env.Decode(&sel))
			return sel
		case <-deadline:
			t.Fatal("no seat_selection received")
			return SeatSelection{}
		}
	}
}

func TestRelay_SelectionReachesPeersButNotSender(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, time.Minute, nil)
	defer r.Close()
	ctx := context.Background()

	x := newTestSession(t, b, r)
	z := newTestSession(t, b, r)
	for _, s := range []*Session{x, z} {
		s.HandleFrame(ctx, []byte(`{"type":"subscribe","channel":"departure:9"}`))
		drain(s)
	}

	x.HandleFrame(ctx, []byte(`{"type":"seat_selection","data":{"departureId":9,"selectedSeats":["B4"],"clientId":"someone-else"}}`))

	sel := waitSelection(t, z, time.Second)
	assert.Equal(t, uint64(9), sel.DepartureID)
	assert.Equal(t, []string{"B4"}, sel.SelectedSeats)
	assert.Equal(t, x.ID(), sel.ClientID, "clientId is the sender's session id")
	assertQuiet(t, x)
}

func TestRelay_NeverRejects(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, time.Minute, nil)
	defer r.Close()
	peer := &fakeClient{id: "peer"}
	b.Subscribe(peer, DepartureChannel(1))

	// Seats are not checked against bookings or the seat map, and labels are
	// forwarded untouched.
	r.Forward(context.Background(), "x", SeatSelection{DepartureID: 1, SelectedSeats: []string{"zz99", " a1 ", ""}})

	got := peer.envelopes()
	require.Len(t, got, 1)
	var sel SeatSelection
	require.NoError(t, got[0].Decode(&sel))
	assert.Equal(t, []string{"zz99", " a1 ", ""}, sel.SelectedSeats)
}

func TestRelay_PreservesSenderOrder(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, time.Minute, nil)
	defer r.Close()
	peer := &fakeClient{id: "peer"}
	b.Subscribe(peer, DepartureChannel(1))

	updates := [][]string{{"A1"}, {"A1", "A2"}, {"A2"}, {}}
	for _, seats := range updates {
		r.Forward(context.Background(), "x", SeatSelection{DepartureID: 1, SelectedSeats: seats})
	}
	got := peer.envelopes()
	require.Len(t, got, len(updates))
	for i, env := range got {
		var sel SeatSelection
		require.NoError(t, env.Decode(&sel))
		assert.Equal(t, updates[i], sel.SelectedSeats)
	}
}

func TestRelay_SelectionExpires(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, 50*time.Millisecond, nil)
	defer r.Close()
	peer := newTestSession(t, b, r)
	b.Subscribe(peer, DepartureChannel(3))
	drain(peer)

	r.Forward(context.Background(), "x", SeatSelection{DepartureID: 3, SelectedSeats: []string{"C1"}})
	assert.Equal(t, []string{"C1"}, waitSelection(t, peer, time.Second).SelectedSeats)

	expired := waitSelection(t, peer, 2*time.Second)
	assert.Equal(t, "x", expired.ClientID)
	assert.Empty(t, expired.SelectedSeats)
	assert.False(t, r.selections.live("x", 3))
}

func TestRelay_RefreshPostponesExpiry(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, 200*time.Millisecond, nil)
	defer r.Close()

	ctx := context.Background()
	r.Forward(ctx, "x", SeatSelection{DepartureID: 3, SelectedSeats: []string{"C1"}})
	time.Sleep(120 * time.Millisecond)
	r.Forward(ctx, "x", SeatSelection{DepartureID: 3, SelectedSeats: []string{"C2"}})
	time.Sleep(120 * time.Millisecond)
	assert.True(t, r.selections.live("x", 3), "refreshed selection is still live")
}

func TestRelay_EmptyUpdateCancelsTimer(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, 50*time.Millisecond, nil)
	defer r.Close()
	peer := &fakeClient{id: "peer"}
	b.Subscribe(peer, DepartureChannel(4))

	ctx := context.Background()
	r.Forward(ctx, "x", SeatSelection{DepartureID: 4, SelectedSeats: []string{"A1"}})
	r.Forward(ctx, "x", SeatSelection{DepartureID: 4, SelectedSeats: nil})
	assert.False(t, r.selections.live("x", 4))

	time.Sleep(150 * time.Millisecond)
	assert.Len(t, peer.envelopes(), 2, "no expiry message after an explicit clear")
}

func TestRelay_DisconnectClearsSelections(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, time.Minute, nil)
	defer r.Close()
	ctx := context.Background()

	x := NewSession(b, r, 16, nil)
	z := newTestSession(t, b, r)
	for _, s := range []*Session{x, z} {
		s.HandleFrame(ctx, []byte(`{"type":"subscribe","channel":"departure:2"}`))
		drain(s)
	}
	x.HandleFrame(ctx, []byte(`{"type":"seat_selection","data":{"departureId":2,"selectedSeats":["D3"]}}`))
	assert.Equal(t, []string{"D3"}, waitSelection(t, z, time.Second).SelectedSeats)

	x.Close(ctx)

	cleared := waitSelection(t, z, time.Second)
	assert.Equal(t, x.ID(), cleared.ClientID)
	assert.Empty(t, cleared.SelectedSeats)
	assert.False(t, r.selections.live(x.ID(), 2))
}

func TestRelay_IgnoresMissingDeparture(t *testing.T) {
	b := NewBroker(nil)
	r := NewRelay(b, time.Minute, nil)
	defer r.Close()
	r.Forward(context.Background(), "x", SeatSelection{SelectedSeats: []string{"A1"}})
	assert.False(t, r.selections.live("x", 0))
}

// gatedPublisher records selections and holds the first clear until
// released.
type gatedPublisher struct {
	mu       sync.Mutex
	got      [][]string
	clearing chan struct{}
	release  chan struct{}
	once     sync.Once
}

func (p *gatedPublisher) Publish(_ context.Context, _ string, env Envelope, _ string) error {
	var sel SeatSelection
	if err := env.Decode(&sel); err != nil {
		return err
	}
	if len(sel.SelectedSeats) == 0 {
		gate := false
		p.once.Do(func() { gate = true })
		if gate {
			close(p.clearing)
			<-p.release
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, sel.SelectedSeats)
	return nil
}

func (p *gatedPublisher) selections() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.got...)
}

func TestRelay_ExpiryNeverOvertakesFreshSelection(t *testing.T) {
	pub := &gatedPublisher{clearing: make(chan struct{}), release: make(chan struct{})}
	r := NewRelay(pub, 10*time.Millisecond, nil)
	defer r.Close()
	ctx := context.Background()

	r.Forward(ctx, "x", SeatSelection{DepartureID: 1, SelectedSeats: []string{"A1"}})
	select {
	case <-pub.clearing:
	case <-time.After(2 * time.Second):
		t.Fatal("selection did not expire")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Forward(ctx, "x", SeatSelection{DepartureID: 1, SelectedSeats: []string{"A2"}})
	}()
	time.Sleep(30 * time.Millisecond)
	close(pub.release)
	<-done

	assert.Equal(t, [][]string{{"A1"}, {}, {"A2"}}, pub.selections())
}
