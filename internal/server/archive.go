package server

import (
	"context"

	"quickdraw/internal/db"
	"quickdraw/internal/events"
)

// archiveRounds stores every resolved round in the rounds table.
func archiveRounds(database *db.DB) events.Publisher {
	return events.PublisherFunc(func(ctx context.Context, r events.RoundResult) error {
		return database.RecordRound(ctx, db.RoundRecord{
			RoomCode:      r.Room,
			PlayerOne:     r.Players[0].Username,
			PlayerTwo:     r.Players[1].Username,
			ReactionOneMs: r.Players[0].ReactionTime,
			ReactionTwoMs: r.Players[1].ReactionTime,
			Winner:        r.Winner,
			ResolvedAt:    r.ResolvedAt,
		})
	})
}
