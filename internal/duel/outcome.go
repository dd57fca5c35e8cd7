package duel

import (
	"context"

	"quickdraw/internal/events"
	"quickdraw/internal/gamedata"
	"quickdraw/internal/metrics"
	"quickdraw/internal/players"
)

const noWinner = -1

// decide returns the index of the winning reaction (0 or 1), or noWinner.
// An early shot loses to any legitimate reaction; two early shots and exact
// ties have no winner.
func decide(a, b int64) int {
	aEarly, bEarly := a == players.EarlyShot, b == players.EarlyShot
	switch {
	case aEarly && bEarly:
		return noWinner
	case aEarly:
		return 1
	case bEarly:
		return 0
	case a < b:
		return 0
	case b < a:
		return 1
	}
	return noWinner
}

func outcomeLabel(a, b int64, winner int) string {
	switch {
	case winner != noWinner:
		return metrics.OutcomeWin
	case a == players.EarlyShot && b == players.EarlyShot:
		return metrics.OutcomeNoWinner
	}
	return metrics.OutcomeTie
}

// settle applies one round to both players' in-memory stats and returns the
// winner index.
func settle(ps [2]*players.Player) int {
	winner := decide(ps[0].ReactionTime, ps[1].ReactionTime)
	for i, p := range ps {
		p.TotalGames++
		if p.ReactionTime >= 0 && p.ReactionTime < p.FastestReaction {
			p.FastestReaction = p.ReactionTime
		}
		if i == winner {
			p.Wins++
		}
	}
	return winner
}

// resolve enters the result phase. Stats are persisted before the reset
// timer is armed.
func (c *Coordinator) resolve() {
	list := c.state.Players.List()
	if len(list) != players.Capacity {
		c.logger.Warn().Int("players", len(list)).Msg("resolving round without two players, returning to waiting")
		c.cancelTimer()
		c.state.Reset()
		c.broadcastState()
		return
	}
	c.cancelTimer()
	c.state.Phase = gamedata.PhaseResult

	ps := [2]*players.Player{list[0], list[1]}
	winner := settle(ps)
	for i, p := range ps {
		entry := c.lb.RecordResult(p.Username, i == winner, p.ReactionTime)
		p.Wins = entry.Wins
		p.TotalGames = entry.TotalGames
		p.FastestReaction = entry.FastestReaction
	}
	c.saveLeaderboard()

	result := events.RoundResult{
		Room: c.code,
		Players: [2]events.ShotResult{
			{Username: ps[0].Username, ReactionTime: ps[0].ReactionTime},
			{Username: ps[1].Username, ReactionTime: ps[1].ReactionTime},
		},
		EarlyShot:  ps[0].ReactionTime == players.EarlyShot || ps[1].ReactionTime == players.EarlyShot,
		ResolvedAt: c.clock.Now(),
	}
	if winner != noWinner {
		result.Winner = ps[winner].Username
	}
	c.metrics.RoundResolved(outcomeLabel(ps[0].ReactionTime, ps[1].ReactionTime, winner))
	c.logger.Info().
		Str("winner", result.Winner).
		Int64("p1", ps[0].ReactionTime).
		Int64("p2", ps[1].ReactionTime).
		Msg("round resolved")

	c.emit(events.TypeResult, result)
	if err := c.pub.PublishResult(context.Background(), result); err != nil {
		c.logger.Warn().Err(err).Msg("publishing round result")
	}

	c.broadcastState()
	c.arm(c.timings.Result)
}
