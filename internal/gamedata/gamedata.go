package gamedata

import (
	"quickdraw/internal/players"
)

type Phase string

const (
	PhaseWaiting   = Phase("waiting")
	PhaseCountdown = Phase("countdown")
	PhaseReady     = Phase("ready")
	PhaseSteady    = Phase("steady")
	PhaseDraw      = Phase("draw")
	PhaseResult    = Phase("result")
)

// InRound reports whether a round has started and not yet been resolved.
func (p Phase) InRound() bool {
	switch p {
	case PhaseCountdown, PhaseReady, PhaseSteady, PhaseDraw:
		return true
	}
	return false
}

// State is the authoritative session state of one duel. It is owned by a
// single coordinator goroutine and is not safe for concurrent mutation.
type State struct {
	Phase          Phase
	DrawSignalTime int64
	Players        *players.Roster
}

func NewState() *State {
	return &State{
		Phase:   PhaseWaiting,
		Players: players.NewRoster(),
	}
}

// Reset returns the session to waiting and clears every player's round flags.
func (s *State) Reset() {
	s.Phase = PhaseWaiting
	s.DrawSignalTime = 0
	s.Players.ResetAll()
}

type PlayerView struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Ready           bool   `json:"ready"`
	HasShot         bool   `json:"hasShot"`
	ReactionTime    int64  `json:"reactionTime"`
	Wins            int    `json:"wins"`
	TotalGames      int    `json:"totalGames"`
	FastestReaction int64  `json:"fastestReaction"`
}

// Snapshot is the replicated form of State sent to clients.
type Snapshot struct {
	GamePhase      Phase                 `json:"gamePhase"`
	DrawSignalTime int64                 `json:"drawSignalTime"`
	Players        map[string]PlayerView `json:"players"`
}

func (s *State) Snapshot() Snapshot {
	list := s.Players.List()
	views := make(map[string]PlayerView, len(list))
	for _, p := range list {
		views[p.ID] = PlayerView{
			ID:              p.ID,
			Username:        p.Username,
			Ready:           p.Ready,
			HasShot:         p.HasShot,
			ReactionTime:    p.ReactionTime,
			Wins:            p.Wins,
			TotalGames:      p.TotalGames,
			FastestReaction: p.FastestReaction,
		}
	}
	return Snapshot{
		GamePhase:      s.Phase,
		DrawSignalTime: s.DrawSignalTime,
		Players:        views,
	}
}
