package duel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"quickdraw/internal/events"
	"quickdraw/internal/gamedata"
	"quickdraw/internal/leaderboard"
	"quickdraw/internal/metrics"
	"quickdraw/internal/players"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomFull = players.ErrRoomFull
	ErrStopped  = errors.New("room stopped")
)

const (
	inboxSize   = 256
	saveTimeout = 5 * time.Second
)

// Leaderboard is the subset of the leaderboard store a room writes to.
type Leaderboard interface {
	Claim(username string) (leaderboard.Entry, bool)
	RecordResult(username string, won bool, reaction int64) leaderboard.Entry
	Save(ctx context.Context) error
}

// Broadcaster delivers server messages to the room's connections.
type Broadcaster interface {
	Publish(msg events.ServerMessage)
	SendTo(id string, msg events.ServerMessage)
}

type Options struct {
	Code        string
	Timings     Timings
	Clock       clockwork.Clock
	Leaderboard Leaderboard
	Broadcaster Broadcaster
	Publisher   events.Publisher
	Metrics     metrics.Recorder
	Jitter      JitterFunc

	// OnEmpty is called from the room goroutine when the last player leaves.
	OnEmpty func(code string)
}

// Coordinator is the single writer of one room's session state. Every
// mutation, whether from a client message or a phase timer, runs on the
// goroutine started by Run.
type Coordinator struct {
	code    string
	timings Timings
	clock   clockwork.Clock
	lb      Leaderboard
	bc      Broadcaster
	pub     events.Publisher
	metrics metrics.Recorder
	jitter  JitterFunc
	onEmpty func(string)
	logger  zerolog.Logger

	inbox    chan any
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	state *gamedata.State
	timer clockwork.Timer

	seats atomic.Int32
	phase atomic.Value
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		code:    opts.Code,
		timings: opts.Timings,
		clock:   opts.Clock,
		lb:      opts.Leaderboard,
		bc:      opts.Broadcaster,
		pub:     opts.Publisher,
		metrics: opts.Metrics,
		jitter:  opts.Jitter,
		onEmpty: opts.OnEmpty,
		logger:  log.With().Str("room", opts.Code).Logger(),
		inbox:   make(chan any, inboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		state:   gamedata.NewState(),
	}
	if c.timings == (Timings{}) {
		c.timings = DefaultTimings()
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.pub == nil {
		c.pub = events.NopPublisher{}
	}
	if c.metrics == nil {
		c.metrics = metrics.NoOp{}
	}
	if c.jitter == nil {
		c.jitter = uniformJitter
	}
	c.phase.Store(gamedata.PhaseWaiting)
	return c
}

func (c *Coordinator) Code() string { return c.code }

// Seats returns the number of seated players as of the last processed command.
func (c *Coordinator) Seats() int { return int(c.seats.Load()) }

func (c *Coordinator) Phase() gamedata.Phase { return c.phase.Load().(gamedata.Phase) }

// Run processes commands and timer firings until Stop is called.
func (c *Coordinator) Run() {
	defer close(c.done)
	defer c.cancelTimer()

	for {
		// Stop may be called from inside a handler via OnEmpty; nothing
		// queued after that point is processed.
		select {
		case <-c.quit:
			return
		default:
		}

		select {
		case <-c.quit:
			return
		case cmd := <-c.inbox:
			c.handle(cmd)
		case <-c.timerC():
			c.handleTimer()
		}
	}
}

// Stop ends Run. It does not wait; use Done for that.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Join seats connID under username. It fails with ErrRoomFull when both
// seats are taken.
func (c *Coordinator) Join(ctx context.Context, connID, username string) (JoinResult, error) {
	reply := make(chan joinReply, 1)
	if err := c.send(ctx, joinCmd{ConnID: connID, Username: username, Reply: reply}); err != nil {
		return JoinResult{}, err
	}
	select {
	case r := <-reply:
		return r.Result, r.Err
	case <-ctx.Done():
		// The join is already queued and will seat the player; queue its
		// removal behind it so no seat is left without a connection.
		c.Leave(connID)
		return JoinResult{}, ctx.Err()
	case <-c.done:
		select {
		case r := <-reply:
			return r.Result, r.Err
		default:
			return JoinResult{}, ErrStopped
		}
	}
}

func (c *Coordinator) Leave(connID string) {
	c.send(context.Background(), leaveCmd{ConnID: connID})
}

func (c *Coordinator) Ready(connID string) {
	c.send(context.Background(), readyCmd{ConnID: connID})
}

func (c *Coordinator) Shoot(connID string) {
	c.send(context.Background(), shootCmd{ConnID: connID})
}

// Snapshot returns the current replicated state.
func (c *Coordinator) Snapshot(ctx context.Context) (gamedata.Snapshot, error) {
	reply := make(chan gamedata.Snapshot, 1)
	if err := c.send(ctx, snapshotCmd{Reply: reply}); err != nil {
		return gamedata.Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return gamedata.Snapshot{}, ctx.Err()
	case <-c.done:
		return gamedata.Snapshot{}, ErrStopped
	}
}

func (c *Coordinator) send(ctx context.Context, cmd any) error {
	select {
	case c.inbox <- cmd:
		return nil
	case <-c.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handle(cmd any) {
	switch m := cmd.(type) {
	case joinCmd:
		res, err := c.handleJoin(m.ConnID, m.Username)
		m.Reply <- joinReply{Result: res, Err: err}
	case leaveCmd:
		c.handleLeave(m.ConnID)
	case readyCmd:
		c.handleReady(m.ConnID)
	case shootCmd:
		c.handleShoot(m.ConnID)
	case snapshotCmd:
		m.Reply <- c.state.Snapshot()
	default:
		c.logger.Warn().Type("cmd", cmd).Msg("unknown command")
	}
}

// broadcastState pushes the full snapshot to every connection and refreshes
// the values readable from other goroutines.
func (c *Coordinator) broadcastState() {
	c.seats.Store(int32(c.state.Players.Count()))
	c.phase.Store(c.state.Phase)

	msg, err := events.Encode(events.TypeState, c.state.Snapshot())
	if err != nil {
		c.logger.Error().Err(err).Msg("encoding state")
		return
	}
	c.bc.Publish(msg)
}

func (c *Coordinator) emit(msgType string, payload any) {
	msg, err := events.Encode(msgType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("type", msgType).Msg("encoding event")
		return
	}
	c.bc.Publish(msg)
}

func (c *Coordinator) saveLeaderboard() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	start := c.clock.Now()
	err := c.lb.Save(ctx)
	c.metrics.LeaderboardSave(err, c.clock.Since(start))
	if err != nil {
		c.logger.Error().Err(err).Msg("saving leaderboard")
	}
}
