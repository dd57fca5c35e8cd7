package duel

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"quickdraw/internal/events"
	"quickdraw/internal/gamedata"
	"quickdraw/internal/leaderboard"
	"quickdraw/internal/players"

	"github.com/jonboulle/clockwork"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, n int) error
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	msgs   []events.ServerMessage
	direct map[string][]events.ServerMessage
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{direct: make(map[string][]events.ServerMessage)}
}

func (f *fakeBroadcaster) Publish(msg events.ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeBroadcaster) SendTo(id string, msg events.ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct[id] = append(f.direct[id], msg)
}

func (f *fakeBroadcaster) count(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) last(t *testing.T, msgType string, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].Type == msgType {
			if err := json.Unmarshal(f.msgs[i].Payload, v); err != nil {
				t.Fatalf("decoding %s: %v", msgType, err)
			}
			return
		}
	}
	t.Fatalf("no %q message broadcast", msgType)
}

type memBackend struct {
	mu    sync.Mutex
	data  []byte
	err   error
	saves int
}

func (m *memBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memBackend) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memBackend) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []events.RoundResult
}

func (r *recordingPublisher) PublishResult(ctx context.Context, res events.RoundResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *recordingPublisher) all() []events.RoundResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.RoundResult(nil), r.results...)
}

const testJitter = 1500 * time.Millisecond

type harness struct {
	c       *Coordinator
	clock   fakeClock
	bc      *fakeBroadcaster
	lb      *leaderboard.Store
	backend *memBackend
	pub     *recordingPublisher
	emptied []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		bc:      newFakeBroadcaster(),
		backend: &memBackend{},
		pub:     &recordingPublisher{},
	}
	h.lb = leaderboard.NewStore(h.backend, leaderboard.WithClock(h.clock))
	h.c = New(Options{
		Code:        "TEST",
		Timings:     DefaultTimings(),
		Clock:       h.clock,
		Leaderboard: h.lb,
		Broadcaster: h.bc,
		Publisher:   h.pub,
		Jitter:      func(min, max time.Duration) time.Duration { return testJitter },
		OnEmpty:     func(code string) { h.emptied = append(h.emptied, code) },
	})
	return h
}

func (h *harness) join(t *testing.T, id, name string) JoinResult {
	t.Helper()
	res, err := h.c.handleJoin(id, name)
	if err != nil {
		t.Fatalf("join(%s) error: %v", id, err)
	}
	return res
}

// fire advances the clock by d and runs the timer that fires.
func (h *harness) fire(t *testing.T, d time.Duration) {
	t.Helper()
	ch := h.c.timerC()
	if ch == nil {
		t.Fatal("no phase timer armed")
	}
	h.clock.Advance(d)
	select {
	case <-ch:
		h.c.handleTimer()
	case <-time.After(time.Second):
		t.Fatalf("timer did not fire after %v", d)
	}
}

// toDraw seats a and b, readies both and runs the clock to the draw signal.
func (h *harness) toDraw(t *testing.T) {
	t.Helper()
	if h.c.state.Players.Count() == 0 {
		h.join(t, "a", "Alice")
		h.join(t, "b", "Bob")
	}
	h.c.handleReady("a")
	h.c.handleReady("b")
	h.fire(t, time.Second)
	h.fire(t, time.Second)
	h.fire(t, testJitter)
	if h.c.state.Phase != gamedata.PhaseDraw {
		t.Fatalf("phase = %q, want draw", h.c.state.Phase)
	}
}

func (h *harness) player(t *testing.T, id string) *players.Player {
	t.Helper()
	p := h.c.state.Players.Get(id)
	if p == nil {
		t.Fatalf("player %s not seated", id)
	}
	return p
}
