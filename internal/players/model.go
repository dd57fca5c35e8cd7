package players

// EarlyShot marks a reaction that was fired before the draw signal, or a
// round in which the player never shot.
const EarlyShot int64 = -1

// NoReaction is the fastestReaction value of a player with no recorded
// reaction yet.
const NoReaction int64 = 99999

// Player is one seated participant in a duel room. Wins, TotalGames and
// FastestReaction mirror the player's leaderboard entry.
type Player struct {
	ID       string
	Username string
	Ready    bool
	HasShot  bool

	ReactionTime    int64
	Wins            int
	TotalGames      int
	FastestReaction int64
}

func New(id, username string) *Player {
	return &Player{
		ID:              id,
		Username:        username,
		ReactionTime:    EarlyShot,
		FastestReaction: NoReaction,
	}
}

// ResetRound clears the per-round flags.
func (p *Player) ResetRound() {
	p.Ready = false
	p.HasShot = false
	p.ReactionTime = EarlyShot
}
