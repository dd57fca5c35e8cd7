package duel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quickdraw/internal/events"
	"quickdraw/internal/gamedata"
	"quickdraw/internal/leaderboard"
	"quickdraw/internal/players"
)

func TestJoin_SeedsPlayerFromLeaderboard(t *testing.T) {
	h := newHarness(t)
	h.lb.RecordResult("Alice", true, 210)
	h.lb.RecordResult("Alice", false, 400)

	res := h.join(t, "a", "  Alice ")
	if res.Username != "Alice" || res.PlayerID != "a" || res.Room != "TEST" {
		t.Errorf("JoinResult = %+v", res)
	}

	p := h.player(t, "a")
	if p.Wins != 1 || p.TotalGames != 2 || p.FastestReaction != 210 {
		t.Errorf("player stats = wins %d games %d fastest %d, want 1/2/210", p.Wins, p.TotalGames, p.FastestReaction)
	}
	if p.ReactionTime != players.EarlyShot {
		t.Errorf("ReactionTime = %d, want %d", p.ReactionTime, players.EarlyShot)
	}

	if got := h.bc.direct["a"]; len(got) != 1 || got[0].Type != events.TypeWelcome {
		t.Errorf("direct messages to a = %v, want one welcome", got)
	}
	if h.bc.count(events.TypeState) != 1 {
		t.Errorf("state broadcasts = %d, want 1", h.bc.count(events.TypeState))
	}
	if h.c.Seats() != 1 {
		t.Errorf("Seats() = %d, want 1", h.c.Seats())
	}
}

func TestJoin_FullRoom(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")
	if h.bc.count(events.TypeFull) != 0 {
		t.Error("full should not be sent with one player")
	}
	h.join(t, "b", "Bob")
	if h.bc.count(events.TypeFull) != 1 {
		t.Errorf("full broadcasts = %d, want 1", h.bc.count(events.TypeFull))
	}

	_, err := h.c.handleJoin("c", "Carol")
	if !errors.Is(err, ErrRoomFull) {
		t.Errorf("third join error = %v, want ErrRoomFull", err)
	}
	if h.c.state.Players.Count() != 2 {
		t.Errorf("players = %d, want 2", h.c.state.Players.Count())
	}
	if _, ok := h.lb.Get("Carol"); ok {
		t.Error("a refused join must not create a leaderboard entry")
	}
}

func TestJoin_GuestNames(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")

	dup := h.join(t, "b", "Alice")
	if !strings.HasPrefix(dup.Username, "Guest-") {
		t.Errorf("duplicate name got %q, want a guest name", dup.Username)
	}

	h2 := newHarness(t)
	for _, raw := range []string{"", "x", "bad\x00name"} {
		res := h2.join(t, "p-"+raw, raw)
		if !strings.HasPrefix(res.Username, "Guest-") {
			t.Errorf("join(%q) username = %q, want a guest name", raw, res.Username)
		}
		h2.c.handleLeave("p-" + raw)
	}
}

func TestJoin_ClaimsSeededEntry(t *testing.T) {
	h := newHarness(t)
	if err := h.lb.EnsureMinimumPopulation(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	ai := h.lb.TopN(1)[0]
	saves := h.backend.saveCount()

	h.join(t, "a", ai.Username)

	p := h.player(t, "a")
	if p.Wins != 0 || p.TotalGames != 0 || p.FastestReaction != players.NoReaction {
		t.Errorf("claimed player stats = %d/%d/%d, want zeroed", p.Wins, p.TotalGames, p.FastestReaction)
	}
	e, _ := h.lb.Get(ai.Username)
	if e.IsAI {
		t.Error("entry should no longer be AI after a real player claims it")
	}
	if h.backend.saveCount() != saves+1 {
		t.Errorf("saves = %d, want %d", h.backend.saveCount(), saves+1)
	}

	h.join(t, "b", "Bob")
	h.toDraw(t)
	h.clock.Advance(150 * time.Millisecond)
	h.c.handleShoot("a")
	h.clock.Advance(100 * time.Millisecond)
	h.c.handleShoot("b")

	e, _ = h.lb.Get(ai.Username)
	if e.Wins != 1 || e.TotalGames != 1 || e.FastestReaction != 150 || e.IsAI {
		t.Errorf("entry after win = %+v, want 1 win, 1 game, fastest 150", e)
	}
}

func TestRound_FasterPlayerWins(t *testing.T) {
	h := newHarness(t)
	h.lb.RecordResult("Alice", false, 500)
	h.toDraw(t)

	if h.c.state.DrawSignalTime != h.clock.Now().UnixMilli() {
		t.Errorf("DrawSignalTime = %d, want %d", h.c.state.DrawSignalTime, h.clock.Now().UnixMilli())
	}

	h.clock.Advance(120 * time.Millisecond)
	h.c.handleShoot("a")
	if h.c.state.Phase != gamedata.PhaseDraw {
		t.Fatalf("phase after one shot = %q, want draw", h.c.state.Phase)
	}
	h.clock.Advance(180 * time.Millisecond)
	h.c.handleShoot("b")

	a, b := h.player(t, "a"), h.player(t, "b")
	if a.ReactionTime != 120 || b.ReactionTime != 300 {
		t.Errorf("reactions = %d/%d, want 120/300", a.ReactionTime, b.ReactionTime)
	}
	if h.c.state.Phase != gamedata.PhaseResult {
		t.Errorf("phase = %q, want result", h.c.state.Phase)
	}
	if a.Wins != 1 || b.Wins != 0 {
		t.Errorf("wins = %d/%d, want 1/0", a.Wins, b.Wins)
	}
	if a.TotalGames != 2 || b.TotalGames != 1 {
		t.Errorf("totalGames = %d/%d, want 2/1", a.TotalGames, b.TotalGames)
	}
	if a.FastestReaction != 120 || b.FastestReaction != 300 {
		t.Errorf("fastest = %d/%d, want 120/300", a.FastestReaction, b.FastestReaction)
	}

	e, _ := h.lb.Get("Alice")
	if e.Wins != 1 || e.TotalGames != 2 || e.FastestReaction != 120 {
		t.Errorf("leaderboard Alice = %+v", e)
	}
	if h.backend.saveCount() == 0 {
		t.Error("leaderboard should be saved when a round resolves")
	}

	var result events.RoundResult
	h.bc.last(t, events.TypeResult, &result)
	if result.Winner != "Alice" || result.EarlyShot {
		t.Errorf("result = %+v, want Alice winning cleanly", result)
	}
	if pub := h.pub.all(); len(pub) != 1 || pub[0].Winner != "Alice" {
		t.Errorf("published results = %+v", pub)
	}

	h.fire(t, 3*time.Second)
	if h.c.state.Phase != gamedata.PhaseWaiting {
		t.Errorf("phase after result delay = %q, want waiting", h.c.state.Phase)
	}
	if a.Ready || a.HasShot || a.ReactionTime != players.EarlyShot {
		t.Errorf("round flags not reset: %+v", a)
	}
	if a.Wins != 1 {
		t.Errorf("wins after reset = %d, want 1", a.Wins)
	}
}

func TestRound_EarlyShotLoses(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")
	h.join(t, "b", "Bob")
	h.c.handleReady("a")
	h.c.handleReady("b")
	h.fire(t, time.Second)
	h.fire(t, time.Second)
	if h.c.state.Phase != gamedata.PhaseSteady {
		t.Fatalf("phase = %q, want steady", h.c.state.Phase)
	}

	h.c.handleShoot("a")
	if p := h.player(t, "a"); p.ReactionTime != players.EarlyShot || !p.HasShot {
		t.Errorf("early shot = %+v, want reaction -1 and hasShot", p)
	}
	if h.c.state.Phase != gamedata.PhaseSteady {
		t.Errorf("phase = %q, want steady", h.c.state.Phase)
	}

	h.fire(t, testJitter)
	h.clock.Advance(2 * time.Second)
	h.c.handleShoot("b")

	a, b := h.player(t, "a"), h.player(t, "b")
	if b.Wins != 1 || a.Wins != 0 {
		t.Errorf("wins = %d/%d, want 0/1", a.Wins, b.Wins)
	}
	if a.FastestReaction != players.NoReaction {
		t.Errorf("early shooter fastest = %d, want unchanged", a.FastestReaction)
	}
	var result events.RoundResult
	h.bc.last(t, events.TypeResult, &result)
	if result.Winner != "Bob" || !result.EarlyShot {
		t.Errorf("result = %+v, want Bob winning by early shot", result)
	}
}

func TestRound_BothEarlyResolvesImmediately(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")
	h.join(t, "b", "Bob")
	h.c.handleReady("a")
	h.c.handleReady("b")

	h.c.handleShoot("a")
	h.c.handleShoot("b")

	if h.c.state.Phase != gamedata.PhaseResult {
		t.Fatalf("phase = %q, want result", h.c.state.Phase)
	}
	a, b := h.player(t, "a"), h.player(t, "b")
	if a.Wins+b.Wins != 0 {
		t.Errorf("wins = %d/%d, want none", a.Wins, b.Wins)
	}
	if a.TotalGames != 1 || b.TotalGames != 1 {
		t.Errorf("totalGames = %d/%d, want 1/1", a.TotalGames, b.TotalGames)
	}

	// The countdown timer was replaced by the result timer.
	h.fire(t, 3*time.Second)
	if h.c.state.Phase != gamedata.PhaseWaiting {
		t.Errorf("phase = %q, want waiting", h.c.state.Phase)
	}
}

func TestRound_Tie(t *testing.T) {
	h := newHarness(t)
	h.toDraw(t)
	h.clock.Advance(200 * time.Millisecond)
	h.c.handleShoot("a")
	h.c.handleShoot("b")

	a, b := h.player(t, "a"), h.player(t, "b")
	if a.Wins != 0 || b.Wins != 0 {
		t.Errorf("tie wins = %d/%d, want 0/0", a.Wins, b.Wins)
	}
	var result events.RoundResult
	h.bc.last(t, events.TypeResult, &result)
	if result.Winner != "" {
		t.Errorf("Winner = %q, want none", result.Winner)
	}
}

func TestShoot_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.toDraw(t)

	h.clock.Advance(150 * time.Millisecond)
	h.c.handleShoot("a")
	states := h.bc.count(events.TypeState)
	h.clock.Advance(100 * time.Millisecond)
	h.c.handleShoot("a")

	if p := h.player(t, "a"); p.ReactionTime != 150 {
		t.Errorf("ReactionTime = %d, want 150", p.ReactionTime)
	}
	if h.bc.count(events.TypeState) != states {
		t.Error("a duplicate shot should not broadcast")
	}
	if h.c.state.Phase != gamedata.PhaseDraw {
		t.Errorf("phase = %q, want draw", h.c.state.Phase)
	}
}

func TestShoot_IgnoredOutsideRound(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")
	h.join(t, "b", "Bob")

	h.c.handleShoot("a")
	if p := h.player(t, "a"); p.HasShot {
		t.Error("a shot while waiting should be ignored")
	}

	h.c.handleShoot("ghost")
	h.c.handleReady("ghost")
	h.c.handleLeave("ghost")
	if h.c.state.Players.Count() != 2 {
		t.Error("messages from unknown connections must not change the room")
	}
}

func TestReady_NeedsTwoPlayers(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")
	h.c.handleReady("a")

	if h.c.state.Phase != gamedata.PhaseWaiting {
		t.Errorf("phase = %q, want waiting", h.c.state.Phase)
	}
	if h.c.timerC() != nil {
		t.Error("no timer should be armed with one player")
	}

	h.join(t, "b", "Bob")
	h.c.handleReady("b")
	if h.c.state.Phase != gamedata.PhaseCountdown {
		t.Errorf("phase = %q, want countdown", h.c.state.Phase)
	}

	// A repeated ready mid-round does not restart anything.
	h.c.handleReady("a")
	h.fire(t, time.Second)
	if h.c.state.Phase != gamedata.PhaseReady {
		t.Errorf("phase = %q, want ready", h.c.state.Phase)
	}
}

func TestLeave_CancelsRound(t *testing.T) {
	h := newHarness(t)
	h.join(t, "a", "Alice")
	h.join(t, "b", "Bob")
	h.c.handleReady("a")
	h.c.handleReady("b")
	h.fire(t, time.Second)
	h.fire(t, time.Second)
	h.c.handleShoot("a")

	h.c.handleLeave("b")

	if h.c.state.Phase != gamedata.PhaseWaiting {
		t.Errorf("phase = %q, want waiting", h.c.state.Phase)
	}
	if h.c.timerC() != nil {
		t.Error("pending timer should be cancelled")
	}
	a := h.player(t, "a")
	if a.Ready || a.HasShot || a.ReactionTime != players.EarlyShot {
		t.Errorf("remaining player not reset: %+v", a)
	}
	if a.TotalGames != 0 {
		t.Errorf("TotalGames = %d, want 0 (voided round)", a.TotalGames)
	}
	if e, ok := h.lb.Get("Bob"); ok && e.TotalGames != 0 {
		t.Errorf("leaver stats changed: %+v", e)
	}

	if len(h.emptied) != 0 {
		t.Error("OnEmpty should not fire while a player remains")
	}

	h.c.handleLeave("a")
	if len(h.emptied) != 1 || h.emptied[0] != "TEST" {
		t.Errorf("emptied = %v, want [TEST]", h.emptied)
	}
}

func TestFastestReaction_NeverIncreases(t *testing.T) {
	h := newHarness(t)
	reactions := []time.Duration{200 * time.Millisecond, 350 * time.Millisecond, 180 * time.Millisecond}
	want := []int64{200, 200, 180}

	for i, d := range reactions {
		h.toDraw(t)
		h.clock.Advance(d)
		h.c.handleShoot("a")
		h.clock.Advance(time.Second)
		h.c.handleShoot("b")

		if got := h.player(t, "a").FastestReaction; got != want[i] {
			t.Errorf("round %d: FastestReaction = %d, want %d", i+1, got, want[i])
		}
		h.fire(t, 3*time.Second)
	}
	if e, _ := h.lb.Get("Alice"); e.FastestReaction != 180 || e.TotalGames != 3 {
		t.Errorf("leaderboard Alice = %+v, want fastest 180 over 3 games", e)
	}
}

func TestSaveFailure_KeepsPlaying(t *testing.T) {
	h := newHarness(t)
	h.backend.err = errors.New("disk full")
	h.toDraw(t)
	h.clock.Advance(100 * time.Millisecond)
	h.c.handleShoot("a")
	h.clock.Advance(100 * time.Millisecond)
	h.c.handleShoot("b")

	if h.c.state.Phase != gamedata.PhaseResult {
		t.Fatalf("phase = %q, want result", h.c.state.Phase)
	}
	if h.player(t, "a").Wins != 1 {
		t.Error("in-memory stats should survive a failed save")
	}
	if e, _ := h.lb.Get("Alice"); e.Wins != 1 {
		t.Error("leaderboard memory should survive a failed save")
	}
	h.fire(t, 3*time.Second)
}

func waitPhase(t *testing.T, c *Coordinator, want gamedata.Phase) gamedata.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := c.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() error: %v", err)
		}
		if snap.GamePhase == want {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("phase never reached %q", want)
	return gamedata.Snapshot{}
}

func TestCoordinator_RunFullRound(t *testing.T) {
	h := newHarness(t)
	go h.c.Run()
	defer h.c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.c.Join(ctx, "a", "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.c.Join(ctx, "b", "Bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.c.Join(ctx, "c", "Carol"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("third Join error = %v, want ErrRoomFull", err)
	}

	h.c.Ready("a")
	h.c.Ready("b")

	for _, d := range []time.Duration{time.Second, time.Second, testJitter} {
		if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("waiting for phase timer: %v", err)
		}
		h.clock.Advance(d)
	}
	snap := waitPhase(t, h.c, gamedata.PhaseDraw)
	if snap.DrawSignalTime != h.clock.Now().UnixMilli() {
		t.Errorf("drawSignalTime = %d, want %d", snap.DrawSignalTime, h.clock.Now().UnixMilli())
	}

	h.clock.Advance(120 * time.Millisecond)
	h.c.Shoot("a")
	waitShot(t, h.c, "a")
	h.clock.Advance(180 * time.Millisecond)
	h.c.Shoot("b")

	snap = waitPhase(t, h.c, gamedata.PhaseResult)
	if snap.Players["a"].ReactionTime != 120 || snap.Players["b"].ReactionTime != 300 {
		t.Errorf("reactions = %d/%d, want 120/300", snap.Players["a"].ReactionTime, snap.Players["b"].ReactionTime)
	}
	if snap.Players["a"].Wins != 1 {
		t.Errorf("a wins = %d, want 1", snap.Players["a"].Wins)
	}

	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(3 * time.Second)
	waitPhase(t, h.c, gamedata.PhaseWaiting)
	if h.c.Phase() != gamedata.PhaseWaiting {
		t.Errorf("Phase() = %q, want waiting", h.c.Phase())
	}
}

func waitShot(t *testing.T, c *Coordinator, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := c.Snapshot(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if snap.Players[id].HasShot {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%s never recorded a shot", id)
}

func TestCoordinator_StopRejectsJoin(t *testing.T) {
	h := newHarness(t)
	go h.c.Run()
	h.c.Stop()
	h.c.Stop()

	select {
	case <-h.c.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}

	_, err := h.c.Join(context.Background(), "a", "Alice")
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Join after Stop error = %v, want ErrStopped", err)
	}
	if _, err := h.c.Snapshot(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Snapshot after Stop error = %v, want ErrStopped", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{Code: "ZZZZ", Leaderboard: leaderboard.NewStore(&memBackend{}), Broadcaster: newFakeBroadcaster()})
	if c.timings != DefaultTimings() {
		t.Errorf("timings = %+v, want defaults", c.timings)
	}
	if c.Phase() != gamedata.PhaseWaiting {
		t.Errorf("Phase() = %q, want waiting", c.Phase())
	}
	for i := 0; i < 100; i++ {
		d := c.jitter(time.Second, 3*time.Second)
		if d < time.Second || d >= 3*time.Second {
			t.Fatalf("jitter = %v, want within [1s, 3s)", d)
		}
	}
}
