package duel

import (
	"time"

	"quickdraw/internal/events"
	"quickdraw/internal/gamedata"
	"quickdraw/internal/metrics"
	"quickdraw/internal/players"
	"quickdraw/internal/utility"
)

func (c *Coordinator) handleJoin(connID, raw string) (JoinResult, error) {
	roster := c.state.Players
	if p := roster.Get(connID); p != nil {
		return JoinResult{PlayerID: p.ID, Username: p.Username, Room: c.code}, nil
	}
	if roster.Count() >= players.Capacity {
		return JoinResult{}, ErrRoomFull
	}

	name, ok := utility.SanitizeUsername(raw)
	if !ok || roster.HasUsername(name) {
		name = utility.GuestName()
		for roster.HasUsername(name) {
			name = utility.GuestName()
		}
	}

	entry, changed := c.lb.Claim(name)
	if changed {
		c.saveLeaderboard()
	}

	p := players.New(connID, name)
	p.Wins = entry.Wins
	p.TotalGames = entry.TotalGames
	p.FastestReaction = entry.FastestReaction
	if err := roster.Add(p); err != nil {
		return JoinResult{}, err
	}
	c.metrics.PlayerConnected()
	c.logger.Info().Str("player", connID).Str("username", name).Msg("player joined")

	res := JoinResult{PlayerID: connID, Username: name, Room: c.code}
	if msg, err := events.Encode(events.TypeWelcome, events.Welcome{ID: connID, Room: c.code, Username: name}); err == nil {
		c.bc.SendTo(connID, msg)
	}
	c.broadcastState()
	if roster.Count() == players.Capacity {
		c.emit(events.TypeFull, nil)
	}
	return res, nil
}

// handleLeave voids any round in progress: no stats change for either side.
func (c *Coordinator) handleLeave(connID string) {
	if !c.state.Players.Remove(connID) {
		return
	}
	c.metrics.PlayerDisconnected()
	if c.state.Phase.InRound() {
		c.metrics.RoundResolved(metrics.OutcomeVoid)
		c.logger.Info().Str("phase", string(c.state.Phase)).Msg("round voided by disconnect")
	}
	c.cancelTimer()
	c.state.Reset()
	c.logger.Info().Str("player", connID).Msg("player left")
	c.broadcastState()

	if c.state.Players.Count() == 0 && c.onEmpty != nil {
		c.onEmpty(c.code)
	}
}

func (c *Coordinator) handleReady(connID string) {
	p := c.state.Players.Get(connID)
	if p == nil {
		return
	}
	p.Ready = true
	if c.state.Phase == gamedata.PhaseWaiting && c.state.Players.AllReady() {
		c.state.Phase = gamedata.PhaseCountdown
		c.arm(c.timings.Countdown)
		c.logger.Debug().Msg("round starting")
	}
	c.broadcastState()
}

func (c *Coordinator) handleShoot(connID string) {
	now := c.clock.Now()
	p := c.state.Players.Get(connID)
	if p == nil || p.HasShot {
		return
	}
	if !c.state.Phase.InRound() {
		return
	}

	p.HasShot = true
	if c.state.Phase != gamedata.PhaseDraw {
		p.ReactionTime = players.EarlyShot
		c.metrics.EarlyShot()
	} else {
		p.ReactionTime = max(now.UnixMilli()-c.state.DrawSignalTime, 0)
		c.metrics.Reaction(time.Duration(p.ReactionTime) * time.Millisecond)
	}
	c.logger.Debug().Str("player", connID).Int64("reaction", p.ReactionTime).Msg("shot")

	if c.state.Players.AllShot() {
		c.resolve()
		return
	}
	c.broadcastState()
}

func (c *Coordinator) handleTimer() {
	now := c.clock.Now()
	c.timer = nil

	switch c.state.Phase {
	case gamedata.PhaseCountdown:
		c.state.Phase = gamedata.PhaseReady
		c.arm(c.timings.Ready)
	case gamedata.PhaseReady:
		c.state.Phase = gamedata.PhaseSteady
		c.arm(c.jitter(c.timings.SteadyMin, c.timings.SteadyMax))
	case gamedata.PhaseSteady:
		c.state.DrawSignalTime = now.UnixMilli()
		c.state.Phase = gamedata.PhaseDraw
	case gamedata.PhaseResult:
		c.state.Reset()
	default:
		c.logger.Warn().Str("phase", string(c.state.Phase)).Msg("timer fired with no pending transition")
		return
	}
	c.logger.Debug().Str("phase", string(c.state.Phase)).Msg("phase changed")
	c.broadcastState()
}
